// Package detection evaluates ingested events against detection rules and
// raises deduplicated alerts. Rules only read; all alert-creation
// coordination goes through the alert store's uniqueness constraint.
package detection

import (
	"context"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
)

// Match describes a positive rule evaluation. The engine turns a Match into
// at most one open alert per dedupe key.
type Match struct {
	RuleName        string
	Severity        string
	Description     string
	DedupeKey       string
	Entities        map[string]string
	MatchedEventIDs []string
}

// Rule is one detection capability. Evaluate returns nil when the rule does
// not fire for the given event. Implementations must be side-effect free.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, tenantID string, event *models.Event) (*Match, error)
}

// EventReader is the read-only slice of the repository rules query against.
type EventReader interface {
	RecentEventsByIP(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error)
}

// AlertStore is the slice of the repository the engine writes through.
// CreateAlert must return repository.ErrDuplicateAlert when the open-alert
// uniqueness constraint is violated.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	FindOpenAlertByDedupeKey(ctx context.Context, tenantID, dedupeKey string) (*models.Alert, error)
}

// Notifier is told about newly created alerts. Implementations must not
// block the detection path for long; errors are logged and dropped.
type Notifier interface {
	AlertCreated(ctx context.Context, a *models.Alert) error
}
