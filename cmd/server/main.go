package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/lock"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/outbox"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	accessTokenTTL  = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
	verifyLockTTL   = 30 * time.Second
)

// Swapped in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	srv, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer srv.Close()

	var wg sync.WaitGroup
	srv.startWorkers(ctx, &wg)

	err = startServerFunc(ctx, ":"+cfg.AppPort, srv.handler)
	stop()
	wg.Wait()
	return err
}

type server struct {
	handler http.Handler
	relay   *outbox.Relay
	limiter *middleware.RateLimiter
	closers []io.Closer
}

func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (*server, error) {
	log := logger.L()

	cookies, err := checkout.NewShippingCookies(cfg.CookieSecret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &server{limiter: middleware.NewRateLimiter()}

	var locker lock.Locker = lock.NoopLocker{}
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, verify calls run unlocked", zap.Error(err))
		} else {
			locker = lock.NewRedisLocker(client, "storefront:")
			s.closers = append(s.closers, client)
		}
	}

	var publisher outbox.Publisher = outbox.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = outbox.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing checkout events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	s.closers = append(s.closers, publisher)
	s.relay = outbox.NewRelay(outbox.NewRepository(database), publisher, cfg.OutboxPollInterval)

	engine := checkout.NewEngine(
		payment.NewPaystackGateway(cfg.PaystackSecretKey, cfg.PaystackBaseURL),
		checkout.NewSQLUnitOfWork(database),
		checkout.Options{
			CallbackURL: cfg.PaymentCallbackURL,
			Locker:      locker,
			LockTTL:     verifyLockTTL,
			Metrics:     metrics.NewCheckoutMetrics(reg),
		},
	)

	cartSvc := cart.NewService(
		cart.NewRepository(database),
		cart.SQLTx(database),
		product.NewRepository(database),
		cfg.DeliveryFee,
	)
	orderSvc := order.NewService(order.NewRepository(database))

	s.handler = transport.NewRouter(transport.RouterConfig{
		Payments:   transport.NewPaymentHandler(engine, cookies),
		Carts:      transport.NewCartHandler(cartSvc),
		Orders:     transport.NewOrderHandler(orderSvc),
		Tokens:     auth.NewIssuer(cfg.JWTSecret, accessTokenTTL),
		Limiter:    s.limiter,
		Metrics:    metrics.NewServerMetrics(reg),
		Gatherer:   reg,
		CORSOrigin: cfg.CORSOrigin,
	})
	return s, nil
}

func (s *server) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.relay.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.limiter.Run(ctx)
	}()
}

func (s *server) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.L().Warn("close failed", zap.Error(err))
		}
	}
}

// serve blocks until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.L().Info("server running", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
