package transport

import (
	"fmt"
	"net/http"

	"storefront-be/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// currentUser returns the authenticated caller. Routes using it sit behind
// middleware.RequireAuth, so a missing user is a wiring bug reported as 401.
func currentUser(r *http.Request) (auth.User, error) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		return auth.User{}, auth.ErrUnauthenticated
	}
	return u, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", errBadRequest, name)
	}
	return id, nil
}
