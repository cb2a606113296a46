package service

import (
	"context"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
)

// StatsService aggregates dashboard statistics over a time range.
type StatsService struct {
	repo repository.Repository
	now  func() time.Time
}

// NewStatsService creates a StatsService.
func NewStatsService(repo repository.Repository) *StatsService {
	return &StatsService{repo: repo, now: time.Now}
}

// Get resolves the requested range and aggregates stats for the tenant.
// range is one of 24h (default), 7d, 30d; an explicit from/to pair wins.
func (s *StatsService) Get(ctx context.Context, tenantID, rangeName, fromStr, toStr string) (*models.Stats, error) {
	var from, to time.Time

	if fromStr != "" && toStr != "" {
		fp, err := parseTimeParam(fromStr)
		if err != nil {
			return nil, models.Invalid("from", "from must be a valid RFC 3339 timestamp")
		}
		tp, err := parseTimeParam(toStr)
		if err != nil {
			return nil, models.Invalid("to", "to must be a valid RFC 3339 timestamp")
		}
		from, to = *fp, *tp
		if from.After(to) {
			return nil, models.Invalid("from", "from must be before to")
		}
	} else {
		to = s.now().UTC()
		var span time.Duration
		switch rangeName {
		case "7d":
			span = 7 * 24 * time.Hour
		case "30d":
			span = 30 * 24 * time.Hour
		case "", "24h":
			span = 24 * time.Hour
		default:
			return nil, models.Invalid("range", "range must be one of: 24h, 7d, 30d")
		}
		from = to.Add(-span)
	}

	return s.repo.Stats(ctx, tenantID, from, to)
}
