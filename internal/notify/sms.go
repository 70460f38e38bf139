package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httpclient"
)

// SMSConfig holds SMS gateway settings.
type SMSConfig struct {
	APIURL string
	APIKey string
	Sender string
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// SMSSender posts messages to an HTTP SMS gateway behind a circuit breaker.
type SMSSender struct {
	client *httpclient.CircuitBreakerClient
	cfg    SMSConfig
}

// NewSMSSender creates an SMS sender with the default retrying client.
func NewSMSSender(cfg SMSConfig, logger *slog.Logger) *SMSSender {
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("sms-gateway"),
		logger,
	)
	return NewSMSSenderWithClient(cfg, client)
}

// NewSMSSenderWithClient creates an SMS sender around an existing client.
func NewSMSSenderWithClient(cfg SMSConfig, client *httpclient.CircuitBreakerClient) *SMSSender {
	return &SMSSender{client: client, cfg: cfg}
}

// Name returns the name of this sender.
func (s *SMSSender) Name() string {
	return "sms-gateway"
}

// Send posts the message body to the gateway. Non-2xx replies are mapped to
// application errors.
func (s *SMSSender) Send(ctx context.Context, msg *Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("sms: no recipient")
	}

	body, err := json.Marshal(smsRequest{From: s.cfg.Sender, To: msg.Recipient, Text: msg.Body})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "sms gateway")
	}
	return nil
}
