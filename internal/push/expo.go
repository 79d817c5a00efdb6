// Package push delivers device notifications through the Expo push gateway.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/kit/log"
)

// DefaultEndpoint is the public Expo push API
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// expoMessage is the request body of one Expo push
type expoMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// expoResponse carries the push ticket
type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		Id      string `json:"id"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ExpoSender posts notifications to the Expo push API with the hertz client
type ExpoSender struct {
	httpClient  *client.Client
	endpoint    string
	accessToken string
	timeout     time.Duration
}

var _ service.PushSender = (*ExpoSender)(nil)

// NewExpoSender creates a new ExpoSender
func NewExpoSender(endpoint, accessToken string, timeout time.Duration) (*ExpoSender, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient, err := client.NewClient(
		client.WithDialTimeout(5*time.Second),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &ExpoSender{
		httpClient:  httpClient,
		endpoint:    endpoint,
		accessToken: accessToken,
		timeout:     timeout,
	}, nil
}

// Send delivers one notification and reports gateway-side rejections as errors
func (s *ExpoSender) Send(ctx context.Context, n *service.PushNotification) error {
	body, err := json.Marshal(&expoMessage{
		To:    n.Token,
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push: %w", err)
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(s.endpoint)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}
	req.SetBody(body)

	if err := s.httpClient.DoTimeout(ctx, req, resp, s.timeout); err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode())
	}

	var ticket expoResponse
	if err := json.Unmarshal(resp.Body(), &ticket); err != nil {
		return fmt.Errorf("failed to decode push ticket: %w", err)
	}
	if len(ticket.Errors) > 0 {
		return fmt.Errorf("push rejected: %s: %s", ticket.Errors[0].Code, ticket.Errors[0].Message)
	}
	if ticket.Data.Status != "ok" {
		return fmt.Errorf("push rejected: %s: %s", ticket.Data.Details.Error, ticket.Data.Message)
	}
	return nil
}

// NopSender drops notifications when pushing is disabled
type NopSender struct{}

// Send logs and discards n
func (NopSender) Send(ctx context.Context, n *service.PushNotification) error {
	log.CtxDebug(ctx, "push disabled, notification discarded: title=%s", n.Title)
	return nil
}
