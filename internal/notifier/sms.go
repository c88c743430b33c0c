package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/Keoroanthony/customer-gateway/configs"
	"github.com/Keoroanthony/customer-gateway/internal/httputil"
	"github.com/Keoroanthony/customer-gateway/internal/models"
)

type SMSResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Cost       string `json:"cost"`
			Status     string `json:"status"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// SMSSender sends the welcome SMS through the Africa's Talking messaging
// API.
type SMSSender struct {
	cfg        config.AfricaTalkingConfig
	httpClient *http.Client
}

func NewSMSSender(cfg config.AfricaTalkingConfig, httpClient *http.Client) *SMSSender {
	return &SMSSender{cfg: cfg, httpClient: httpClient}
}

func (s *SMSSender) Name() string { return "sms" }

func (s *SMSSender) Send(ctx context.Context, c models.Customer) error {
	if c.Phone == "" {
		return fmt.Errorf("customer %s has no phone number", c.ID)
	}

	message := fmt.Sprintf("Hi %s, your customer profile has been created. Thank you for registering with us!", c.Name)

	data := url.Values{}
	data.Set("username", s.cfg.Username)
	data.Set("to", c.Phone)
	data.Set("message", message)
	data.Set("from", s.cfg.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SMSURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SMS send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS API returned non-success status %d: %s", resp.StatusCode, httputil.ReadErrorBody(resp.Body))
	}

	var smsResp SMSResponse
	if err := json.NewDecoder(resp.Body).Decode(&smsResp); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	for _, r := range smsResp.SMSMessageData.Recipients {
		if r.StatusCode >= 400 {
			return fmt.Errorf("SMS to %s rejected: %s", r.Number, r.Status)
		}
	}
	return nil
}
