package detection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graylake-systems/graylake/internal/metrics"
	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/pkg/logging"
)

// Engine runs detection rules against ingested events submitted through a
// bounded in-process queue. Ingestion hands an event off with Enqueue and
// never waits for the outcome; when the queue is full the job is dropped
// and counted, which is the backpressure signal. A dropped job is not a
// lost alert: the window condition stays true until it ages out, so the
// next qualifying ingest re-triggers evaluation from scratch.
type Engine struct {
	alerts   AlertStore
	rules    []Rule
	notifier Notifier
	log      *logging.Logger

	queue   chan job
	workers int
	wg      sync.WaitGroup
}

type job struct {
	tenantID string
	event    *models.Event
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithQueueSize sets the bounded queue capacity.
func WithQueueSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.queue = make(chan job, n)
		}
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithNotifier publishes created alerts to the given notifier.
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine creates an Engine with the given rules.
func NewEngine(alerts AlertStore, rules []Rule, log *logging.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = logging.Default()
	}
	e := &Engine{
		alerts:  alerts,
		rules:   rules,
		log:     log,
		queue:   make(chan job, 256),
		workers: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the worker goroutines. Workers stop when ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-e.queue:
					metrics.DetectionQueueDepth.Set(float64(len(e.queue)))
					e.Process(ctx, j.tenantID, j.event)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Enqueue submits an event for deferred evaluation. It never blocks; the
// return value reports whether the job was accepted.
func (e *Engine) Enqueue(tenantID string, event *models.Event) bool {
	select {
	case e.queue <- job{tenantID: tenantID, event: event}:
		metrics.DetectionQueueDepth.Set(float64(len(e.queue)))
		return true
	default:
		metrics.DetectionDropped.Inc()
		e.log.Warn("detection queue full, dropping job",
			"tenant_id", tenantID, "event_id", event.ID)
		return false
	}
}

// QueueDepth reports the number of pending jobs.
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

// Process evaluates every rule against one event. Errors are swallowed and
// logged: detection runs outside any request's error-handling path.
func (e *Engine) Process(ctx context.Context, tenantID string, event *models.Event) {
	for _, rule := range e.rules {
		match, err := rule.Evaluate(ctx, tenantID, event)
		if err != nil {
			// Fail closed on alerting: a failed read never raises and
			// never surfaces to the ingest caller.
			e.log.ErrorContext(ctx, "rule evaluation failed",
				"rule", rule.Name(), "tenant_id", tenantID, "error", err)
			continue
		}
		if match == nil {
			continue
		}
		metrics.DetectionsFired.WithLabelValues(rule.Name()).Inc()
		e.RaiseAlert(ctx, tenantID, match)
	}
}

// RaiseAlert turns a match into at most one open alert per dedupe key. The
// open-alert lookup is an optimization only; the store's uniqueness
// constraint decides races, and a duplicate insert is treated as "alert
// already exists", never as an error.
func (e *Engine) RaiseAlert(ctx context.Context, tenantID string, match *Match) *models.Alert {
	existing, err := e.alerts.FindOpenAlertByDedupeKey(ctx, tenantID, match.DedupeKey)
	if err != nil && !errors.Is(err, repository.ErrAlertNotFound) {
		e.log.ErrorContext(ctx, "dedupe lookup failed",
			"dedupe_key", match.DedupeKey, "error", err)
		return nil
	}
	if existing != nil {
		metrics.AlertsDeduplicated.WithLabelValues(match.RuleName).Inc()
		e.log.DebugContext(ctx, "open alert exists, skipping creation",
			"dedupe_key", match.DedupeKey, "alert_id", existing.ID)
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		e.log.ErrorContext(ctx, "failed to generate alert id", "error", err)
		return nil
	}

	now := time.Now().UTC()
	alert := &models.Alert{
		ID:              id.String(),
		TenantID:        tenantID,
		Timestamp:       now,
		RuleName:        match.RuleName,
		Severity:        match.Severity,
		Description:     match.Description,
		Status:          models.AlertStatusOpen,
		Entities:        match.Entities,
		DedupeKey:       match.DedupeKey,
		MatchedEventIDs: match.MatchedEventIDs,
		CreatedAt:       now,
	}

	if err := e.alerts.CreateAlert(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrDuplicateAlert) {
			// Lost the race against a concurrent evaluation.
			metrics.AlertsDeduplicated.WithLabelValues(match.RuleName).Inc()
			e.log.DebugContext(ctx, "duplicate alert suppressed",
				"dedupe_key", match.DedupeKey)
			return nil
		}
		e.log.ErrorContext(ctx, "failed to create alert",
			"dedupe_key", match.DedupeKey, "error", err)
		return nil
	}

	metrics.AlertsCreated.WithLabelValues(match.RuleName).Inc()
	e.log.InfoContext(ctx, "alert created",
		"alert_id", alert.ID, "rule", alert.RuleName, "dedupe_key", alert.DedupeKey)

	if e.notifier != nil {
		if err := e.notifier.AlertCreated(ctx, alert); err != nil {
			e.log.WarnContext(ctx, "alert notification failed",
				"alert_id", alert.ID, "error", err)
		}
	}

	return alert
}
