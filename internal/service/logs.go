package service

import (
	"context"
	"strings"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

// LogService answers analyst log queries.
type LogService struct {
	repo repository.Repository
}

// NewLogService creates a LogService.
func NewLogService(repo repository.Repository) *LogService {
	return &LogService{repo: repo}
}

// LogListQuery carries raw (pre-validation) filter values.
type LogListQuery struct {
	IDs       string // comma-separated
	From      string
	To        string
	Level     string
	Source    string
	EventType string
	IP        string
	User      string
	Query     string
	Limit     int
	Skip      int
}

// List returns the tenant's events newest-first with the page envelope.
func (s *LogService) List(ctx context.Context, tenantID string, q *LogListQuery) (*models.EventPage, error) {
	f := &models.EventFilter{
		Source:    q.Source,
		EventType: q.EventType,
		IP:        q.IP,
		User:      q.User,
		Query:     q.Query,
	}

	if q.IDs != "" {
		for _, id := range strings.Split(q.IDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.IDs = append(f.IDs, id)
			}
		}
	}
	if q.Level != "" {
		if !models.ValidLevel(q.Level) {
			return nil, models.Invalid("level", "level must be one of: info, warn, error, critical")
		}
		f.Level = q.Level
	}

	var err error
	if f.From, err = parseTimeParam(q.From); err != nil {
		return nil, models.Invalid("from", "from must be a valid RFC 3339 timestamp")
	}
	if f.To, err = parseTimeParam(q.To); err != nil {
		return nil, models.Invalid("to", "to must be a valid RFC 3339 timestamp")
	}

	f.Limit = clampLimit(q.Limit, defaultLogLimit, maxLogLimit)
	if q.Skip > 0 {
		f.Skip = q.Skip
	}

	items, total, err := s.repo.ListEvents(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	return &models.EventPage{
		Items: items,
		Page:  models.Page{Limit: f.Limit, Skip: f.Skip, Total: total},
	}, nil
}
