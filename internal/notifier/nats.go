// Package notifier publishes alert lifecycle events to NATS so downstream
// consumers (notification fan-out, SOAR hooks) can react without polling.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/pkg/logging"
)

const (
	subjectAlertCreated       = "graylake.alerts.created"
	subjectAlertStatusChanged = "graylake.alerts.status"
)

// Publisher emits alert events on NATS subjects.
type Publisher struct {
	conn *nats.Conn
	log  *logging.Logger
}

// New connects to the NATS server at url.
func New(url string, log *logging.Logger) (*Publisher, error) {
	if log == nil {
		log = logging.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("graylake-notifier"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: conn, log: log}, nil
}

type alertEnvelope struct {
	TenantID  string        `json:"tenant_id"`
	Alert     *models.Alert `json:"alert"`
	EmittedAt time.Time     `json:"emitted_at"`
}

// AlertCreated publishes a newly raised alert.
func (p *Publisher) AlertCreated(ctx context.Context, a *models.Alert) error {
	return p.publish(subjectAlertCreated, a)
}

// AlertStatusChanged publishes an open/closed transition.
func (p *Publisher) AlertStatusChanged(ctx context.Context, a *models.Alert) error {
	return p.publish(subjectAlertStatusChanged, a)
}

func (p *Publisher) publish(subject string, a *models.Alert) error {
	payload, err := json.Marshal(alertEnvelope{
		TenantID:  a.TenantID,
		Alert:     a,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages before disconnecting.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
