// internal/events/webhook.go
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

// WebhookConfig configures the external bookkeeping sink.
type WebhookConfig struct {
	URL      string
	Timeout  time.Duration
	MaxTries uint
}

// Webhook posts settlement events as JSON to an external bookkeeping endpoint.
// Delivery is best-effort: failures are logged and counted.
type Webhook struct {
	config  WebhookConfig
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
	subs    []Subscription
}

func NewWebhook(config WebhookConfig, logger *zap.Logger, collector *metrics.Collector) *Webhook {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxTries == 0 {
		config.MaxTries = 3
	}
	return &Webhook{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout, Transport: http.DefaultTransport.(*http.Transport).Clone()},
		logger:  logger.Named("bookkeeping-webhook"),
		metrics: collector,
	}
}

// Attach subscribes the webhook to every settlement event on bus.
func (w *Webhook) Attach(bus *Bus) {
	for _, t := range []EventType{ClaimSettled, TradeSettled, LaunchCompleted, LaunchFailed} {
		w.subs = append(w.subs, bus.Subscribe(t, w))
	}
}

// Detach removes the subscriptions made by Attach.
func (w *Webhook) Detach() {
	for _, s := range w.subs {
		s.Unsubscribe()
	}
	w.subs = nil
}

// Close releases idle connections.
func (w *Webhook) Close() {
	w.client.CloseIdleConnections()
}

type webhookPayload struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Data Event     `json:"data"`
}

// Handle delivers one event. It returns the final delivery error after retries.
func (w *Webhook) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(webhookPayload{Type: event.Type(), Time: event.Timestamp(), Data: event})
	if err != nil {
		w.failed(event, err)
		return fmt.Errorf("encode event: %w", err)
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", string(event.Type()))

		resp, err := w.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return struct{}{}, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return struct{}{}, fmt.Errorf("bookkeeping endpoint returned %d", resp.StatusCode)
		default:
			return struct{}{}, backoff.Permanent(fmt.Errorf("bookkeeping endpoint returned %d", resp.StatusCode))
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(w.config.MaxTries)); err != nil {
		w.failed(event, err)
		return err
	}

	w.logger.Debug("Event delivered", zap.String("event_type", string(event.Type())))
	return nil
}

func (w *Webhook) failed(event Event, err error) {
	w.metrics.RecordBookkeepingFailure("webhook")
	w.logger.Warn("Bookkeeping webhook delivery failed",
		zap.String("event_type", string(event.Type())),
		zap.Error(err))
}
