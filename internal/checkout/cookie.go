package checkout

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-be/internal/order"

	"golang.org/x/crypto/blake2b"
)

const (
	ShippingCookieName = "checkout_shipping"
	ShippingCookieTTL  = 15 * time.Minute
)

// ShippingCookies signs the shipping address between initialize and verify.
// The value is base64url(json) "." base64url(mac), bound to one user.
type ShippingCookies struct {
	key    []byte
	secure bool
	now    func() time.Time
}

type shippingPayload struct {
	UserID    uint                  `json:"u"`
	ExpiresAt int64                 `json:"e"`
	Address   order.ShippingAddress `json:"a"`
}

func NewShippingCookies(secret string, secure bool) (*ShippingCookies, error) {
	if secret == "" {
		return nil, errors.New("cookie secret is empty")
	}
	key := blake2b.Sum256([]byte(secret))
	return &ShippingCookies{key: key[:], secure: secure, now: time.Now}, nil
}

func (s *ShippingCookies) Encode(userID uint, addr order.ShippingAddress) (*http.Cookie, error) {
	body, err := json.Marshal(shippingPayload{
		UserID:    userID,
		ExpiresAt: s.now().Add(ShippingCookieTTL).Unix(),
		Address:   addr,
	})
	if err != nil {
		return nil, err
	}

	mac, err := s.sign(body)
	if err != nil {
		return nil, err
	}

	value := base64.RawURLEncoding.EncodeToString(body) + "." + base64.RawURLEncoding.EncodeToString(mac)
	return s.cookie(value, int(ShippingCookieTTL/time.Second)), nil
}

// Decode returns ErrShippingAddressRequired when the cookie is absent and
// ErrInvalidShippingCookie when it is tampered, expired or another user's.
func (s *ShippingCookies) Decode(r *http.Request, userID uint) (*order.ShippingAddress, error) {
	c, err := r.Cookie(ShippingCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrShippingAddressRequired
	}

	encBody, encMAC, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil, ErrInvalidShippingCookie
	}
	body, err := base64.RawURLEncoding.DecodeString(encBody)
	if err != nil {
		return nil, ErrInvalidShippingCookie
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(encMAC)
	if err != nil {
		return nil, ErrInvalidShippingCookie
	}

	wantMAC, err := s.sign(body)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidShippingCookie)
	}

	var p shippingPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, ErrInvalidShippingCookie
	}
	if s.now().Unix() > p.ExpiresAt {
		return nil, fmt.Errorf("%w: expired", ErrInvalidShippingCookie)
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: issued to another user", ErrInvalidShippingCookie)
	}
	return &p.Address, nil
}

// Clear expires the cookie in the browser.
func (s *ShippingCookies) Clear() *http.Cookie {
	return s.cookie("", -1)
}

func (s *ShippingCookies) sign(body []byte) ([]byte, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return nil, err
	}
	h.Write(body)
	return h.Sum(nil), nil
}

func (s *ShippingCookies) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     ShippingCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
