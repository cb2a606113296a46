package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/graylake-systems/graylake/internal/detection"
	"github.com/graylake-systems/graylake/internal/metrics"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/pkg/logging"
)

const (
	maxSourceLen    = 100
	maxEventTypeLen = 100
	maxMessageLen   = 10000
	maxIPLen        = 45 // fits IPv6 with zone
	maxUserLen      = 255
	maxLevelLen     = 16
)

// IngestService validates and stores events, then hands qualifying events
// to the detection engine without blocking the caller.
type IngestService struct {
	repo   repository.Repository
	engine *detection.Engine
	log    *logging.Logger
	now    func() time.Time
}

// NewIngestService creates an IngestService. engine may be nil to disable
// detection (dev and some tests).
func NewIngestService(repo repository.Repository, engine *detection.Engine, log *logging.Logger) *IngestService {
	if log == nil {
		log = logging.Default()
	}
	return &IngestService{
		repo:   repo,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
}

// Ingest validates the request, persists the event, and schedules deferred
// detection for LOGIN_FAILED events with an IP. The response depends only
// on whether the event was stored; the detection outcome never affects it.
func (s *IngestService) Ingest(ctx context.Context, tenantID string, req *models.IngestRequest, raw json.RawMessage) (*models.IngestResponse, error) {
	start := s.now()

	ev, err := s.buildEvent(tenantID, req, raw)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		metrics.EventsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store event: %w", err)
	}

	metrics.EventsTotal.WithLabelValues("stored").Inc()
	metrics.IngestDuration.Observe(s.now().Sub(start).Seconds())

	if s.engine != nil && ev.EventType == models.EventTypeLoginFailed && ev.IP != "" {
		s.engine.Enqueue(tenantID, ev)
	}

	// receivedAt reports when the server took the event, not the
	// client-supplied ts a backdated event carries.
	return &models.IngestResponse{
		OK:         true,
		LogID:      ev.ID,
		ReceivedAt: start.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (s *IngestService) buildEvent(tenantID string, req *models.IngestRequest, raw json.RawMessage) (*models.Event, error) {
	if req.Source == "" {
		return nil, models.Invalid("source", "source is required")
	}
	if len(req.Source) > maxSourceLen {
		return nil, models.Invalid("source", fmt.Sprintf("source must be at most %d characters", maxSourceLen))
	}
	if req.EventType == "" && req.Message == "" {
		return nil, models.Invalid("eventType", "at least one of eventType or message is required")
	}
	if len(req.EventType) > maxEventTypeLen {
		return nil, models.Invalid("eventType", fmt.Sprintf("eventType must be at most %d characters", maxEventTypeLen))
	}
	if len(req.Message) > maxMessageLen {
		return nil, models.Invalid("message", fmt.Sprintf("message must be at most %d characters", maxMessageLen))
	}
	if len(req.IP) > maxIPLen {
		return nil, models.Invalid("ip", "ip is too long")
	}
	if len(req.User) > maxUserLen {
		return nil, models.Invalid("user", "user is too long")
	}

	level := req.Level
	if level == "" {
		level = models.LevelInfo
	}
	if len(level) > maxLevelLen || !models.ValidLevel(level) {
		return nil, models.Invalid("level", "level must be one of: info, warn, error, critical")
	}

	ts := s.now().UTC()
	if req.TS != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.TS)
		if err != nil {
			return nil, models.Invalid("ts", "ts must be a valid RFC 3339 timestamp")
		}
		ts = parsed.UTC()
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = models.EventTypeGeneric
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	return &models.Event{
		ID:        id.String(),
		TenantID:  tenantID,
		Timestamp: ts,
		Level:     level,
		EventType: eventType,
		Source:    req.Source,
		IP:        req.IP,
		User:      req.User,
		Message:   req.Message,
		Raw:       raw,
	}, nil
}
