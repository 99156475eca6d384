// Package alert delivers swap state notifications through webhooks and
// email, with a per-condition cooldown so a sustained incident does not
// flood the recipients.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// httpTimeout bounds a single webhook delivery.
const httpTimeout = 10 * time.Second

// Payload is the JSON body posted to webhooks and the substance of email
// alerts.
type Payload struct {
	Condition   string    `json:"condition"`
	State       string    `json:"state"`
	SwapPercent float64   `json:"swap_percent"`
	Message     string    `json:"message"`
	Hostname    string    `json:"hostname,omitempty"`
	Time        time.Time `json:"time"`
}

// Sink delivers one alert payload.
type Sink interface {
	Send(ctx context.Context, p Payload) error
	Name() string
}

// Notifier fans an alert out to every configured sink, applying a
// per-condition cooldown across all of them.
type Notifier struct {
	sinks    []Sink
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier creates a notifier over the given sinks. If logger is nil,
// a no-op logger is used.
func NewNotifier(sinks []Sink, cooldown time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{
		sinks:    sinks,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Notify delivers the payload unless its condition fired within the
// cooldown window. Sink failures are logged and do not stop delivery to
// the remaining sinks; the cooldown starts as soon as delivery is
// attempted so a flapping sink cannot cause an alert storm.
func (n *Notifier) Notify(ctx context.Context, p Payload) {
	if len(n.sinks) == 0 {
		return
	}

	n.mu.Lock()
	if last, ok := n.lastSent[p.Condition]; ok && n.now().Sub(last) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[p.Condition] = n.now()
	n.mu.Unlock()

	if p.Time.IsZero() {
		p.Time = n.now()
	}

	for _, sink := range n.sinks {
		if err := sink.Send(ctx, p); err != nil {
			n.logger.Error("alert delivery failed",
				"sink", sink.Name(),
				"condition", p.Condition,
				"error", err,
			)
			continue
		}
		n.logger.Info("alert delivered", "sink", sink.Name(), "condition", p.Condition)
	}
}

// WebhookSink posts payloads as JSON to a single URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink for the given URL.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: httpTimeout},
	}
}

// Name identifies the sink in logs.
func (w *WebhookSink) Name() string { return "webhook" }

// Send posts the payload. Any non-2xx response is an error.
func (w *WebhookSink) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("alert: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alert: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert: webhook returned %s", resp.Status)
	}
	return nil
}

// sendMailFunc matches net/smtp.SendMail, swapped out in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSink sends plain-text alert mail through an SMTP relay.
type EmailSink struct {
	host string
	port int
	from string
	to   []string
	send sendMailFunc
}

// NewEmailSink creates an email sink for the given relay and recipients.
func NewEmailSink(host string, port int, from string, to []string) *EmailSink {
	return &EmailSink{
		host: host,
		port: port,
		from: from,
		to:   to,
		send: smtp.SendMail,
	}
}

// Name identifies the sink in logs.
func (e *EmailSink) Name() string { return "email" }

// Send composes and relays one alert message.
func (e *EmailSink) Send(ctx context.Context, p Payload) error {
	subject := fmt.Sprintf("swapwatch: %s (swap %.1f%%)", p.Condition, p.SwapPercent)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", p.Message)
	fmt.Fprintf(&msg, "State: %s\r\n", p.State)
	fmt.Fprintf(&msg, "Swap usage: %.1f%%\r\n", p.SwapPercent)
	if p.Hostname != "" {
		fmt.Fprintf(&msg, "Host: %s\r\n", p.Hostname)
	}
	fmt.Fprintf(&msg, "Time: %s\r\n", p.Time.Format(time.RFC3339))

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	if err := e.send(addr, nil, e.from, e.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("alert: send mail via %s: %w", addr, err)
	}
	return nil
}
