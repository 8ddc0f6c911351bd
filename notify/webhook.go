package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/signalbot/signals"
)

// WebhookSender posts the structured signal to any HTTP endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

type webhookPayload struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Signal  signals.Signal `json:"signal"`
	Sent    string         `json:"ts"`
}

func (w *WebhookSender) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(webhookPayload{
		Title:   m.Title,
		Message: m.Body,
		Signal:  m.Signal,
		Sent:    w.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookSender) Name() string { return "webhook" }

// LogSender writes signals to a logger. Useful when no channel is set up.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, m Message) error {
	s := m.Signal
	l.logger.InfoContext(ctx, m.Title,
		slog.String("kind", string(s.Kind)),
		slog.String("symbol", s.Symbol),
		slog.String("direction", string(s.Direction)),
		slog.Float64("entry", s.Entry),
		slog.Float64("sl", s.StopLoss),
		slog.Float64("tp", s.TakeProfit),
		slog.Float64("exit", s.ExitPrice),
		slog.String("result", string(s.Result)),
		slog.Time("candle_time", s.Time),
		slog.String("reason", s.Reason),
	)
	return nil
}

func (l *LogSender) Name() string { return "log" }
