package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/httputil"
	"github.com/Keoroanthony/customer-gateway/internal/models"
)

// OIDCValidator delegates tokens to an OpenID provider's userinfo
// endpoint. The provider decides whether the access token is valid.
type OIDCValidator struct {
	issuer     string
	provider   *oidc.Provider
	httpClient *http.Client
}

// NewOIDCValidator runs provider discovery against issuer.
func NewOIDCValidator(ctx context.Context, issuer string, httpClient *http.Client) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("OIDC provider init error: %w", err)
	}

	return &OIDCValidator{
		issuer:     strings.TrimRight(issuer, "/"),
		provider:   provider,
		httpClient: httpClient,
	}, nil
}

func (v *OIDCValidator) Validate(ctx context.Context, token string) (models.Principal, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	info, err := v.provider.UserInfo(oidc.ClientContext(ctx, v.httpClient), src)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return models.Principal{}, internalValidationError(err)
		}
		return models.Principal{}, &apperrors.Error{
			Code:   apperrors.EUnauthorized,
			Status: http.StatusUnauthorized,
			Msg:    "Invalid token",
			Err:    err,
		}
	}

	var claims json.RawMessage
	if err := info.Claims(&claims); err != nil {
		return models.Principal{}, internalValidationError(fmt.Errorf("claims parse error: %w", err))
	}
	return models.NewPrincipal(claims), nil
}

// Live fetches the provider's discovery document.
func (v *OIDCValidator) Live(ctx context.Context) error {
	return httputil.Probe(ctx, v.httpClient, v.issuer+"/.well-known/openid-configuration")
}
