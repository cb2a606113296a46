package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
)

// BruteForceRule fires when at least Threshold LOGIN_FAILED events from the
// same IP land within the trailing Window, measured from evaluation-time
// "now" rather than event time.
type BruteForceRule struct {
	events     EventReader
	window     time.Duration
	threshold  int
	maxMatches int
	now        func() time.Time
}

const (
	// DefaultWindow is the trailing detection window.
	DefaultWindow = 60 * time.Second
	// DefaultThreshold is the minimum number of failed logins that fires.
	DefaultThreshold = 5
	// DefaultMaxMatches caps the events attached to an alert. The cap
	// bounds alert payload size, not detection accuracy.
	DefaultMaxMatches = 10
)

// BruteForceOption customizes a BruteForceRule.
type BruteForceOption func(*BruteForceRule)

// WithWindow overrides the detection window.
func WithWindow(d time.Duration) BruteForceOption {
	return func(r *BruteForceRule) { r.window = d }
}

// WithThreshold overrides the firing threshold.
func WithThreshold(n int) BruteForceOption {
	return func(r *BruteForceRule) { r.threshold = n }
}

// WithMaxMatches overrides the matched-event cap.
func WithMaxMatches(n int) BruteForceOption {
	return func(r *BruteForceRule) { r.maxMatches = n }
}

// WithClock overrides the evaluation clock, for tests.
func WithClock(now func() time.Time) BruteForceOption {
	return func(r *BruteForceRule) { r.now = now }
}

// NewBruteForceRule creates the rule with production defaults.
func NewBruteForceRule(events EventReader, opts ...BruteForceOption) *BruteForceRule {
	r := &BruteForceRule{
		events:     events,
		window:     DefaultWindow,
		threshold:  DefaultThreshold,
		maxMatches: DefaultMaxMatches,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Rule.
func (r *BruteForceRule) Name() string { return "Brute Force Detection" }

// Evaluate implements Rule. It re-queries the store for the current window
// rather than trusting any in-memory state, so delayed evaluations still
// see fresh data.
func (r *BruteForceRule) Evaluate(ctx context.Context, tenantID string, event *models.Event) (*Match, error) {
	if event == nil || event.EventType != models.EventTypeLoginFailed || event.IP == "" {
		return nil, nil
	}

	since := r.now().Add(-r.window)
	events, err := r.events.RecentEventsByIP(ctx, tenantID, models.EventTypeLoginFailed, event.IP, since, r.maxMatches)
	if err != nil {
		return nil, fmt.Errorf("brute force window query: %w", err)
	}

	if len(events) < r.threshold {
		return nil, nil
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	return &Match{
		RuleName:  r.Name(),
		Severity:  models.SeverityHigh,
		DedupeKey: fmt.Sprintf("BRUTEFORCE:%s:%s", tenantID, event.IP),
		Description: fmt.Sprintf("Detected %d failed login attempts from IP %s within %d seconds",
			len(events), event.IP, int(r.window.Seconds())),
		Entities:        map[string]string{"ip": event.IP},
		MatchedEventIDs: ids,
	}, nil
}
