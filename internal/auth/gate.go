package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/models"
)

const principalKey = "principal"

var (
	ErrMissingHeader = apperrors.Unauthorized(http.StatusUnauthorized, "Not authenticated")
	ErrMalformed     = apperrors.Unauthorized(http.StatusUnauthorized, "Invalid authorization header")
)

// Validator delegates a bearer token to an identity backend.
//
// Validate returns an *apperrors.Error with code EUnauthorized for every
// failure: the backend's status for a rejected token, 500 when the backend
// could not give a verdict.
type Validator interface {
	Validate(ctx context.Context, token string) (models.Principal, error)
	Live(ctx context.Context) error
}

// Gate authenticates requests. It never validates tokens itself.
type Gate struct {
	validator Validator
	log       *zap.Logger
}

func NewGate(v Validator, log *zap.Logger) *Gate {
	return &Gate{validator: v, log: log.Named("auth")}
}

// Authenticate checks the raw Authorization header value. Header problems
// are rejected here; the token itself is delegated exactly once.
func (g *Gate) Authenticate(ctx context.Context, header string) (models.Principal, error) {
	if header == "" {
		return models.Principal{}, ErrMissingHeader
	}

	token, ok := bearerToken(header)
	if !ok {
		return models.Principal{}, ErrMalformed
	}

	g.log.Info("Validating token with identity service")
	principal, err := g.validator.Validate(ctx, token)
	if err != nil {
		g.log.Warn("Token validation failed",
			zap.Int("status", apperrors.HTTPStatus(err)),
			zap.Error(err),
		)
		return models.Principal{}, err
	}

	g.log.Info("Token validation successful")
	return principal, nil
}

// Live reports whether the identity backend is up.
func (g *Gate) Live(ctx context.Context) error {
	return g.validator.Live(ctx)
}

// RequireAuth authenticates the request and puts the principal on the
// context for handlers. Failures are handed to the request lifecycle.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := g.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(c *gin.Context) (models.Principal, error) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, errors.New("no principal on request context")
	}
	p, ok := v.(models.Principal)
	if !ok {
		return models.Principal{}, errors.New("principal has unexpected type")
	}
	return p, nil
}

// bearerToken splits "<scheme> <token>". The scheme is not checked, only
// that one is present.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !found || scheme == "" || token == "" {
		return "", false
	}
	return token, true
}
