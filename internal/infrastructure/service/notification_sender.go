// Package service contains thin infrastructure adapters that implement
// domain service interfaces.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/circuitbreaker"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
	"github.com/kurso-hub/kurso-learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK SENDER
// ══════════════════════════════════════════════════════════════════════════════

// WebhookSender implements notification.Sender by POSTing messages to the
// platform notification gateway. Delivery is best effort: the progress
// write that produced the notification has already committed.
type WebhookSender struct {
	webhookURL string
	apiKey     string
	httpClient *http.Client
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logger.Logger
}

// compile-time interface check
var _ notification.Sender = (*WebhookSender)(nil)

// WebhookSenderConfig contains configuration for the webhook sender.
type WebhookSenderConfig struct {
	// WebhookURL is the notification gateway endpoint.
	WebhookURL string

	// APIKey authenticates against the gateway (optional).
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewWebhookSender creates a new WebhookSender.
func NewWebhookSender(config WebhookSenderConfig) *WebhookSender {
	log := config.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("webhook_sender"))

	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	breaker := circuitbreaker.WebhookBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return &WebhookSender{
		webhookURL: config.WebhookURL,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
		retrier:    retry.WebhookRetrier(),
		breaker:    breaker,
		logger:     log,
	}
}

// webhookPayload is the wire format accepted by the notification gateway.
type webhookPayload struct {
	Kind       string    `json:"kind"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Send delivers a notification message to the gateway.
func (s *WebhookSender) Send(ctx context.Context, msg notification.Message) error {
	if !msg.Kind.IsValid() {
		return shared.ErrInvalidChannel
	}

	payload := webhookPayload{
		Kind:       string(msg.Kind),
		StudentID:  msg.StudentID.String(),
		CourseID:   msg.CourseID.String(),
		Title:      msg.Title,
		Body:       msg.Body,
		OccurredAt: msg.CreatedAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.post(ctx, data)
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotificationFailed, err)
	}

	s.logger.Debug("notification delivered",
		logger.String("kind", string(msg.Kind)),
		logger.StudentID(msg.StudentID.String()),
	)

	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG SENDER
// ══════════════════════════════════════════════════════════════════════════════

// LogSender implements notification.Sender by writing messages to the log.
// Used in development and when no gateway is configured.
type LogSender struct {
	logger *logger.Logger
}

// compile-time interface check
var _ notification.Sender = (*LogSender)(nil)

// NewLogSender creates a new LogSender.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Default()
	}
	return &LogSender{
		logger: log.With(logger.Component("log_sender")),
	}
}

// Send writes the notification to the log and reports success.
func (s *LogSender) Send(_ context.Context, msg notification.Message) error {
	s.logger.Info("notification",
		logger.String("kind", string(msg.Kind)),
		logger.StudentID(msg.StudentID.String()),
		logger.CourseID(msg.CourseID.String()),
		logger.String("title", msg.Title),
		logger.String("body", msg.Body),
	)
	return nil
}
