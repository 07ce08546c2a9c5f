package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

const maxBodyBytes = 1 << 20

type principalKey struct{}

// WithPrincipal stores the authenticated caller in ctx
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by the JWT middleware
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// MustPrincipal writes 401 and returns false when the request is anonymous
func MustPrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		response.FromError(w, errs.ErrUnauthenticated)
	}
	return p, ok
}

// DecodeJSON reads a bounded JSON body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errs.ErrValidation, err)
	}
	return nil
}

func ResponseWithJson(w http.ResponseWriter, statusCode int, data interface{}) {
	response.WriteJSON(w, statusCode, data)
}
