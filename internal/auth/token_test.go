package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
		want   string
	}{
		{
			name:   "cookie wins over header",
			cookie: &http.Cookie{Name: AccessTokenCookie, Value: "cookie_token"},
			header: "Bearer header_token",
			want:   "cookie_token",
		},
		{
			name:   "bearer header",
			header: "Bearer header_token",
			want:   "header_token",
		},
		{
			name:   "empty cookie falls back to header",
			cookie: &http.Cookie{Name: AccessTokenCookie, Value: ""},
			header: "Bearer header_token",
			want:   "header_token",
		},
		{
			name:   "other cookie ignored",
			cookie: &http.Cookie{Name: "session", Value: "not_a_token"},
			want:   "",
		},
		{
			name:   "basic auth ignored",
			header: "Basic user:pass",
			want:   "",
		},
		{
			name: "nothing",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.want, ExtractAccessToken(req))
		})
	}
}

func TestExtractAccessToken_IssuedCookie(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Sign(User{ID: 3, Email: "a@b.co", Role: RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})

	u, err := issuer.Parse(ExtractAccessToken(req))
	require.NoError(t, err)
	assert.Equal(t, uint(3), u.ID)
	assert.True(t, u.IsAdmin())
}
