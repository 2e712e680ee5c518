// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
)

// ErrRateLimited is returned when an event is dropped by the rate limit.
var ErrRateLimited = errors.New("notification rate limit exceeded")

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// Kinds limits delivery to these kinds; empty means failures only.
	Kinds []Kind

	// Rate and Burst bound deliveries (events per second).
	Rate  float64
	Burst int

	// FailureThreshold consecutive delivery failures open the breaker for
	// Cooldown.
	FailureThreshold uint32
	Cooldown         time.Duration
}

// Webhook posts events as JSON to an HTTP endpoint.
type Webhook struct {
	cfg     WebhookConfig
	client  *http.Client
	kinds   map[Kind]bool
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewWebhook returns a webhook notifier. Zero values take defaults: 10s
// timeout, one event per minute with a burst of 5, breaker after 5
// consecutive failures for 1m.
func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1.0 / 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	kinds := cfg.Kinds
	if len(kinds) == 0 {
		kinds = []Kind{KindBackupFailed, KindMaintenanceStuck}
	}

	w := &Webhook{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		kinds:   make(map[Kind]bool, len(kinds)),
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
	for _, k := range kinds {
		w.kinds[k] = true
	}
	w.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notify-webhook",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Webhook circuit breaker changed state")
		},
	})
	return w
}

// Notify implements Notifier. Events of unselected kinds are ignored.
// KindMaintenanceStuck bypasses the rate limiter.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if !w.kinds[ev.Kind] {
		return nil
	}
	if ev.Kind != KindMaintenanceStuck && !w.limiter.Allow() {
		metrics.NotificationsTotal.WithLabelValues(string(ev.Kind), "rate_limited").Inc()
		return ErrRateLimited
	}

	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.post(ctx, ev)
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(ev.Kind), "error").Inc()
		return fmt.Errorf("webhook notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(string(ev.Kind), "sent").Inc()
	return nil
}

func (w *Webhook) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "nextbackup")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck,gosec // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
