package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/judge-relay.net/internal/config"
	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ primary.TokenVerifier = (*JWTServiceImpl)(nil)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", errs.ErrUnauthenticated)
)

type principalClaims struct {
	UserID  int64  `json:"user_id"`
	TeamID  *int64 `json:"team_id,omitempty"`
	EventID int64  `json:"event_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type JWTServiceImpl struct {
	HMACSecretKey string
	parser        *jwt.Parser
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		parser:        jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// GenerateTokenHMAC signs a principal with HS256. Tokens expire after ttl.
func (J *JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, p domain.Principal, ttl time.Duration) (string, error) {
	if J.HMACSecretKey == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := principalClaims{
		UserID:  p.UserID,
		TeamID:  p.TeamID,
		EventID: p.EventID,
		Role:    string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(J.HMACSecretKey))
}

func (J *JWTServiceImpl) VerifyToken(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" || J.HMACSecretKey == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	var claims principalClaims
	parsed, err := J.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return domain.Principal{}, ErrInvalidToken
	}

	role := domain.RoleUser
	if domain.Role(claims.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Principal{
		UserID:  claims.UserID,
		TeamID:  claims.TeamID,
		EventID: claims.EventID,
		Role:    role,
	}, nil
}
