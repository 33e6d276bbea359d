package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const (
	verifyAttempts      = 3
	defaultRetryBackoff = 250 * time.Millisecond
	maxResponseBytes    = 1 << 20
)

type paystackGateway struct {
	secretKey    string
	baseURL      string
	httpClient   *http.Client
	retryBackoff time.Duration
}

// ----------------- Constructor -----------------

func NewPaystackGateway(secretKey, baseURL string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Paystack secret key is empty")
	}

	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		retryBackoff: defaultRetryBackoff,
	}
}

// envelope is the common Paystack response wrapper.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID        int64      `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type refundData struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// ----------------- InitializeTransaction -----------------

func (p *paystackGateway) InitializeTransaction(
	ctx context.Context,
	email string,
	amountMinor int64,
	callbackURL string,
) (*InitializeResult, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("amount_minor", amountMinor))

	body := map[string]any{
		"email":        email,
		"amount":       amountMinor,
		"callback_url": callbackURL,
	}

	status, raw, err := p.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		log.Error("Paystack initialize request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if status < 200 || status > 299 {
		log.Error("Paystack returned non-success status",
			zap.Int("status", status),
			zap.ByteString("response", raw),
		)
		return nil, fmt.Errorf("%w: paystack initialize status %d", ErrGatewayUnavailable, status)
	}

	var res envelope[initializeData]
	if err := json.Unmarshal(raw, &res); err != nil || !res.Status || res.Data.Reference == "" {
		log.Error("Unexpected Paystack initialize response", zap.ByteString("response", raw))
		return nil, fmt.Errorf("%w: malformed initialize response", ErrGatewayUnavailable)
	}

	log.Info("Paystack transaction initialized", zap.String("reference", res.Data.Reference))

	return &InitializeResult{
		AuthorizationURL: res.Data.AuthorizationURL,
		AccessCode:       res.Data.AccessCode,
		Reference:        res.Data.Reference,
	}, nil
}

// ----------------- VerifyTransaction -----------------

// VerifyTransaction retries only ErrGatewayUnavailable, since a GET verify
// has no side effects at the provider.
func (p *paystackGateway) VerifyTransaction(ctx context.Context, reference string) (*Verification, error) {
	log := logger.FromCtx(ctx).With(zap.String("reference", reference))

	var lastErr error
	backoff := p.retryBackoff
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		v, err := p.verifyOnce(ctx, reference)
		if err == nil || !errors.Is(err, ErrGatewayUnavailable) {
			return v, err
		}
		lastErr = err

		if attempt == verifyAttempts {
			break
		}
		log.Warn("Paystack verify unavailable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (p *paystackGateway) verifyOnce(ctx context.Context, reference string) (*Verification, error) {
	status, raw, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case status >= 500 || status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: paystack verify status %d", ErrGatewayUnavailable, status)
	case status >= 400:
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, providerMessage(raw, status))
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: paystack verify status %d", ErrGatewayUnavailable, status)
	}

	var res envelope[verifyData]
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response", ErrGatewayUnavailable)
	}
	if !res.Status {
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, res.Message)
	}
	if res.Data.Status != "success" {
		return nil, fmt.Errorf("%w: transaction status %q", ErrVerificationFailed, res.Data.Status)
	}

	return &Verification{
		Status:          res.Data.Status,
		Reference:       res.Data.Reference,
		AmountPaidMinor: res.Data.Amount,
		Channel:         res.Data.Channel,
		TransactionID:   strconv.FormatInt(res.Data.ID, 10),
		CustomerEmail:   res.Data.Customer.Email,
		PaidAt:          res.Data.PaidAt,
	}, nil
}

// ----------------- Refund -----------------

func (p *paystackGateway) Refund(ctx context.Context, reference string, amountMinor int64, note string) (*Refund, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("reference", reference),
		zap.Int64("amount_minor", amountMinor),
	)

	body := map[string]any{
		"transaction":   reference,
		"amount":        amountMinor,
		"merchant_note": note,
	}

	status, raw, err := p.do(ctx, http.MethodPost, "/refund", body)
	if err != nil {
		log.Error("Paystack refund request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	if status < 200 || status > 299 {
		log.Error("Paystack refund rejected",
			zap.Int("status", status),
			zap.ByteString("response", raw),
		)
		return nil, fmt.Errorf("%w: %s", ErrRefundFailed, providerMessage(raw, status))
	}

	var res envelope[refundData]
	if err := json.Unmarshal(raw, &res); err != nil || !res.Status {
		return nil, fmt.Errorf("%w: unexpected refund response", ErrRefundFailed)
	}
	if res.Data.Status == "failed" {
		return nil, fmt.Errorf("%w: provider marked refund failed", ErrRefundFailed)
	}

	log.Info("Paystack refund accepted", zap.String("refund_status", res.Data.Status))
	return &Refund{Status: res.Data.Status, AmountMinor: res.Data.Amount}, nil
}

// ----------------- HTTP -----------------

func (p *paystackGateway) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read paystack response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func providerMessage(raw []byte, status int) string {
	var res envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &res); err == nil && res.Message != "" {
		return res.Message
	}
	return "paystack status " + strconv.Itoa(status)
}
