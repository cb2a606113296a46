package service

import (
	"context"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/pkg/logging"
)

const (
	defaultAlertLimit = 25
	maxAlertLimit     = 100
)

// StatusNotifier is told about alert status transitions.
type StatusNotifier interface {
	AlertStatusChanged(ctx context.Context, a *models.Alert) error
}

// AlertService lists alerts and drives the open/closed lifecycle.
type AlertService struct {
	repo     repository.Repository
	notifier StatusNotifier
	log      *logging.Logger
}

// NewAlertService creates an AlertService. notifier may be nil.
func NewAlertService(repo repository.Repository, notifier StatusNotifier, log *logging.Logger) *AlertService {
	if log == nil {
		log = logging.Default()
	}
	return &AlertService{repo: repo, notifier: notifier, log: log}
}

// AlertListQuery carries raw (pre-validation) filter values.
type AlertListQuery struct {
	Status   string
	Severity string
	From     string
	To       string
	Query    string
	Limit    int
	Skip     int
}

// List returns the tenant's alerts newest-first with the page envelope.
func (s *AlertService) List(ctx context.Context, tenantID string, q *AlertListQuery) (*models.AlertPage, error) {
	f := &models.AlertFilter{Query: q.Query}

	if q.Status != "" {
		if !models.ValidAlertStatus(q.Status) {
			return nil, models.Invalid("status", `status must be either "open" or "closed"`)
		}
		f.Status = q.Status
	}
	if q.Severity != "" {
		if !models.ValidSeverity(q.Severity) {
			return nil, models.Invalid("severity", "severity must be one of: low, medium, high, critical")
		}
		f.Severity = q.Severity
	}

	var err error
	if f.From, err = parseTimeParam(q.From); err != nil {
		return nil, models.Invalid("from", "from must be a valid RFC 3339 timestamp")
	}
	if f.To, err = parseTimeParam(q.To); err != nil {
		return nil, models.Invalid("to", "to must be a valid RFC 3339 timestamp")
	}

	f.Limit = clampLimit(q.Limit, defaultAlertLimit, maxAlertLimit)
	if q.Skip > 0 {
		f.Skip = q.Skip
	}

	items, total, err := s.repo.ListAlerts(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	return &models.AlertPage{
		Items: items,
		Page:  models.Page{Limit: f.Limit, Skip: f.Skip, Total: total},
	}, nil
}

// Get returns one alert scoped to the tenant.
func (s *AlertService) Get(ctx context.Context, tenantID, id string) (*models.Alert, error) {
	return s.repo.GetAlertByID(ctx, tenantID, id)
}

// SetStatus transitions an alert between open and closed. Setting the
// current status is a no-op that still succeeds with stable close stamps.
// Reopening fails with ErrDuplicateAlert when a newer open alert already
// holds the same dedupe key. A missing alert and an alert owned by another
// tenant are reported identically.
func (s *AlertService) SetStatus(ctx context.Context, tenantID, id, status, actorID string) (*models.Alert, error) {
	if !models.ValidAlertStatus(status) {
		return nil, models.Invalid("status", `status must be either "open" or "closed"`)
	}

	alert, err := s.repo.SetAlertStatus(ctx, tenantID, id, status, actorID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.AlertStatusChanged(ctx, alert); err != nil {
			s.log.WarnContext(ctx, "alert status notification failed",
				"alert_id", alert.ID, "error", err)
		}
	}

	return alert, nil
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func clampLimit(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
