// Package notify posts appointment lifecycle events to the configured
// automation webhook. Delivery is at-most-once: failures are logged and
// swallowed, never surfaced to the mutation that triggered them. The offline
// sync queue is the separate, retried tier.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"agendapastoral/backend/internal/domain"
)

type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionStatusChange Action = "status_change"
)

type payload struct {
	Agendamento domain.Appointment `json:"agendamento"`
	Action      Action             `json:"action"`
	Timestamp   string             `json:"timestamp"`
}

type Webhook struct {
	url    string
	client *http.Client
	log    *slog.Logger
	now    func() time.Time
}

func NewWebhook(url string, client *http.Client, log *slog.Logger) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Webhook{
		url:    url,
		client: client,
		log:    log.With(slog.String("component", "webhook")),
		now:    time.Now,
	}
}

// Notify fires one POST for the event. With no URL configured it does
// nothing. Any failure is logged only.
func (w *Webhook) Notify(ctx context.Context, action Action, appt domain.Appointment) {
	if w.url == "" {
		return
	}
	body, err := json.Marshal(payload{
		Agendamento: appt,
		Action:      action,
		Timestamp:   w.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		w.log.Warn("webhook payload encode failed", slog.Any("err", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Warn("webhook request build failed", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("webhook delivery failed", slog.String("action", string(action)), slog.Any("err", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.log.Warn("webhook rejected",
			slog.String("action", string(action)),
			slog.Int("status", resp.StatusCode),
		)
	}
}
