package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/modkit/internal/generate"
)

// RunEvent is the run summary published after every successful pass, so
// surrounding dev tooling (hot-reload servers, cache invalidators) can react
// without polling the output directory.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Reason    string    `json:"reason"`
	Modules   int       `json:"modules"`
	Changed   int       `json:"changed"`
	Unchanged int       `json:"unchanged"`
	Duration  int64     `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes run summaries to NATS.
type EventPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewEventPublisher connects to NATS.
func NewEventPublisher(url, subject string) (*EventPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("Publishing run events", slog.String("url", url), slog.String("subject", subject))
	return &EventPublisher{conn: conn, subject: subject}, nil
}

// PublishRun publishes one run summary.
func (p *EventPublisher) PublishRun(result *generate.Result, reason string) error {
	event := RunEvent{
		RunID:     result.RunID,
		Reason:    reason,
		Modules:   result.Modules,
		Changed:   result.Changed(),
		Unchanged: len(result.Artifacts) - result.Changed(),
		Duration:  result.Duration.Milliseconds(),
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *EventPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
