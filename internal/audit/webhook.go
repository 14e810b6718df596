package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// WebhookConfig configures WebhookShipper.
type WebhookConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// BatchSize > 0 queues entries and posts them as a JSON array.
	BatchSize     int
	FlushInterval time.Duration
}

// WebhookShipper posts audit entries to an HTTP endpoint (SIEM collector, Slack relay).
type WebhookShipper struct {
	cfg    WebhookConfig
	client *http.Client

	queue     chan *Entry
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a webhook shipper. With batching enabled a background
// goroutine owns the pending batch until Close.
func NewWebhookShipper(cfg *WebhookConfig) (*WebhookShipper, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	c := *cfg
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     c,
		client:  &http.Client{Timeout: c.Timeout},
		queue:   make(chan *Entry, 1000),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if c.BatchSize > 0 {
		go ws.run()
	} else {
		close(ws.stopped)
	}
	return ws, nil
}

func (ws *WebhookShipper) run() {
	defer close(ws.stopped)

	ticker := time.NewTicker(ws.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, ws.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := ws.post(batch); err != nil {
			slog.Warn("audit webhook batch failed", "entries", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-ws.queue:
			batch = append(batch, entry)
			if len(batch) >= ws.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ws.done:
			for {
				select {
				case entry := <-ws.queue:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (ws *WebhookShipper) post(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.cfg.Timeout)
	defer cancel()
	return ws.send(ctx, data)
}

// Ship queues entry when batching, or posts it immediately. A full queue falls
// back to an immediate post.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *Entry) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.queue <- entry:
			return nil
		default:
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	return ws.send(ctx, data)
}

func (ws *WebhookShipper) send(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes any pending batch and stops the background goroutine.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() { close(ws.done) })
	<-ws.stopped
	return nil
}
