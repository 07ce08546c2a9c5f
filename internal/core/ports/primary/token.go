package primary

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// TokenVerifier turns a bearer token into the authenticated principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Principal, error)
}
