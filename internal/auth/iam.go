package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/httputil"
	"github.com/Keoroanthony/customer-gateway/internal/models"
)

const maxValidateReply = 1 << 20

// IAMValidator delegates to the identity service's /validate endpoint.
type IAMValidator struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewIAMValidator(baseURL string, httpClient *http.Client, log *zap.Logger) *IAMValidator {
	return &IAMValidator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.Named("iam"),
	}
}

func (v *IAMValidator) Validate(ctx context.Context, token string) (models.Principal, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return models.Principal{}, internalValidationError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/validate", bytes.NewReader(payload))
	if err != nil {
		return models.Principal{}, internalValidationError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return models.Principal{}, internalValidationError(err)
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp.StatusCode) {
		v.log.Debug("Identity service rejected token",
			zap.Int("status", resp.StatusCode),
			zap.String("body", httputil.ReadErrorBody(resp.Body)),
		)
		return models.Principal{}, apperrors.Unauthorized(resp.StatusCode, "Invalid token")
	}

	var reply struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxValidateReply)).Decode(&reply); err != nil {
		return models.Principal{}, internalValidationError(fmt.Errorf("decode validate reply: %w", err))
	}
	if len(reply.User) == 0 || string(reply.User) == "null" {
		return models.Principal{}, internalValidationError(fmt.Errorf("validate reply carries no user"))
	}

	return models.NewPrincipal(reply.User), nil
}

func (v *IAMValidator) Live(ctx context.Context) error {
	return httputil.Probe(ctx, v.httpClient, v.baseURL+"/health/live")
}

func internalValidationError(err error) error {
	return &apperrors.Error{
		Code:   apperrors.EUnauthorized,
		Status: http.StatusInternalServerError,
		Msg:    "Internal error during token validation",
		Err:    err,
	}
}
