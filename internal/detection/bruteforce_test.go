package detection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graylake-systems/graylake/internal/models"
)

type fakeEventReader struct {
	recentFn func(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error)
}

func (f *fakeEventReader) RecentEventsByIP(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error) {
	return f.recentFn(ctx, tenantID, eventType, ip, since, limit)
}

func failedLogins(n int, ip string) []*models.Event {
	events := make([]*models.Event, n)
	for i := range events {
		events[i] = &models.Event{
			ID:        fmt.Sprintf("ev-%d", i),
			EventType: models.EventTypeLoginFailed,
			IP:        ip,
		}
	}
	return events
}

func TestBruteForceRule_FiresAtThreshold(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, tenantID, eventType, ip string, _ time.Time, limit int) ([]*models.Event, error) {
			assert.Equal(t, "tenant-1", tenantID)
			assert.Equal(t, models.EventTypeLoginFailed, eventType)
			assert.Equal(t, "10.0.0.1", ip)
			assert.Equal(t, DefaultMaxMatches, limit)
			return failedLogins(5, ip), nil
		},
	}
	rule := NewBruteForceRule(reader)

	match, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Brute Force Detection", match.RuleName)
	assert.Equal(t, models.SeverityHigh, match.Severity)
	assert.Equal(t, "BRUTEFORCE:tenant-1:10.0.0.1", match.DedupeKey)
	assert.Len(t, match.MatchedEventIDs, 5)
	assert.Equal(t, "10.0.0.1", match.Entities["ip"])
	assert.Contains(t, match.Description, "5 failed login attempts")
	assert.Contains(t, match.Description, "10.0.0.1")
}

func TestBruteForceRule_BelowThreshold(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, ip string, _ time.Time, _ int) ([]*models.Event, error) {
			return failedLogins(4, ip), nil
		},
	}
	rule := NewBruteForceRule(reader)

	match, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestBruteForceRule_IgnoresNonQualifyingEvents(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, _ string, _ time.Time, _ int) ([]*models.Event, error) {
			t.Fatal("store should not be queried")
			return nil, nil
		},
	}
	rule := NewBruteForceRule(reader)
	ctx := context.Background()

	tests := []struct {
		name  string
		event *models.Event
	}{
		{"nil event", nil},
		{"wrong event type", &models.Event{EventType: "LOGIN_SUCCESS", IP: "10.0.0.1"}},
		{"missing ip", &models.Event{EventType: models.EventTypeLoginFailed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := rule.Evaluate(ctx, "tenant-1", tt.event)
			require.NoError(t, err)
			assert.Nil(t, match)
		})
	}
}

func TestBruteForceRule_WindowStart(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, ip string, since time.Time, _ int) ([]*models.Event, error) {
			gotSince = since
			return failedLogins(5, ip), nil
		},
	}
	rule := NewBruteForceRule(reader, WithClock(func() time.Time { return fixed }))

	_, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-DefaultWindow), gotSince)
}

func TestBruteForceRule_MatchedEventsCapped(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, ip string, _ time.Time, limit int) ([]*models.Event, error) {
			// The store enforces the cap; return exactly limit rows.
			return failedLogins(limit, ip), nil
		},
	}
	rule := NewBruteForceRule(reader, WithMaxMatches(10))

	match, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Len(t, match.MatchedEventIDs, 10)
}

func TestBruteForceRule_CustomThresholdAndWindow(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, ip string, _ time.Time, _ int) ([]*models.Event, error) {
			return failedLogins(3, ip), nil
		},
	}
	rule := NewBruteForceRule(reader, WithThreshold(3), WithWindow(5*time.Minute))

	match, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Contains(t, match.Description, "300 seconds")
}

func TestBruteForceRule_StoreError(t *testing.T) {
	reader := &fakeEventReader{
		recentFn: func(_ context.Context, _, _, _ string, _ time.Time, _ int) ([]*models.Event, error) {
			return nil, errors.New("connection reset")
		},
	}
	rule := NewBruteForceRule(reader)

	match, err := rule.Evaluate(context.Background(), "tenant-1", &models.Event{
		EventType: models.EventTypeLoginFailed,
		IP:        "10.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, match)
}
