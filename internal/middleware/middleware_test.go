package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCors(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := CORS("http://localhost:3000")(nextHandler)

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", time.Hour)
	mw := Authenticate(issuer)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := auth.UserFrom(r.Context())
			assert.False(t, ok, "Context should not contain user")
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"invalid or expired token"}`, w.Body.String())
	})

	t.Run("Valid Token", func(t *testing.T) {
		token, err := issuer.Sign(auth.User{ID: 1, Email: "a@b.c", Role: "USER"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFrom(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), user.ID)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		token, err := issuer.Sign(auth.User{ID: 9})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFrom(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(9), user.ID)
		})

		mw(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token, err := auth.NewIssuer("test-secret", -time.Hour).Sign(auth.User{ID: 1})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := auth.UserFrom(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	w := httptest.NewRecorder()
	RequireAuth(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: 1}))
	w = httptest.NewRecorder()
	RequireAuth(ok).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(auth.RoleAdmin)(ok)

	tests := []struct {
		name string
		user *auth.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &auth.User{ID: 1, Role: "USER"}, http.StatusForbidden},
		{"admin", &auth.User{ID: 2, Role: auth.RoleAdmin}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", nil)
			if tt.user != nil {
				req = req.WithContext(auth.WithUser(req.Context(), *tt.user))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter()
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("Strict tier for payments", func(t *testing.T) {
		var codes []int
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
		assert.Equal(t, http.StatusOK, codes[0])
	})

	t.Run("Tiers have separate buckets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Authenticated users keyed by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: 42}))
		assert.Equal(t, "user:42", identity(req))

		req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set("X-Device-ID", "abc")
		assert.Equal(t, "device:abc", identity(req))
	})
}

func TestRateLimiter_Cleanup(t *testing.T) {
	l := NewRateLimiter()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.getVisitor("ip:1:general", limitGeneral, burstGeneral)
	require.Len(t, l.visitors, 1)

	now = now.Add(visitorTTL + time.Second)
	l.cleanup()
	assert.Empty(t, l.visitors)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sm := metrics.NewServerMetrics(reg)

	r := chi.NewRouter()
	r.Use(Metrics(sm))
	r.Get("/api/orders/{orderID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/123", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.Requests.WithLabelValues("/api/orders/{orderID}", "418")))
}
