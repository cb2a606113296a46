// Package repository provides persistence for tenants, users, API keys,
// events and alerts. Two implementations exist: PostgreSQL (production) and
// an in-memory store (tests, dev mode). Every query is scoped by tenant.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrAlertNotFound  = errors.New("alert not found")
	ErrDuplicateAlert = errors.New("open alert with dedupe key already exists")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("email already registered")
	ErrAPIKeyNotFound = errors.New("api key not found")
)

// Repository is the persistence interface for the whole backend.
type Repository interface {
	// Events
	CreateEvent(ctx context.Context, ev *models.Event) error
	ListEvents(ctx context.Context, tenantID string, f *models.EventFilter) ([]*models.Event, int, error)
	// RecentEventsByIP returns events of the given type from the given IP
	// with ts >= since, newest first, capped at limit. It backs the
	// detection window query.
	RecentEventsByIP(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error)

	// Alerts
	// CreateAlert persists a new alert. It returns ErrDuplicateAlert when
	// an open alert with the same (tenant, dedupe key) already exists; the
	// uniqueness constraint, not the caller's prior existence check, is the
	// source of truth for deduplication.
	CreateAlert(ctx context.Context, a *models.Alert) error
	FindOpenAlertByDedupeKey(ctx context.Context, tenantID, dedupeKey string) (*models.Alert, error)
	GetAlertByID(ctx context.Context, tenantID, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, tenantID string, f *models.AlertFilter) ([]*models.Alert, int, error)
	// SetAlertStatus transitions an alert between open and closed. Closing
	// stamps closed_at/closed_by once and keeps them stable across repeated
	// closes; reopening clears both, and returns ErrDuplicateAlert when
	// another open alert already holds the same dedupe key.
	SetAlertStatus(ctx context.Context, tenantID, id, status, actorID string) (*models.Alert, error)

	// Tenants and users
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenantByID(ctx context.Context, id string) (*models.Tenant, error)
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, tenantID, id string) (*models.User, error)
	ListUsers(ctx context.Context, tenantID string) ([]*models.User, error)
	UpdateUserRole(ctx context.Context, tenantID, id, role string) (*models.User, error)
	DeleteUser(ctx context.Context, tenantID, id string) error
	CountAdmins(ctx context.Context, tenantID string) (int, error)

	// API keys
	CreateAPIKey(ctx context.Context, k *models.APIKey) error
	GetAPIKeyByDigest(ctx context.Context, digest string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, tenantID, id string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error

	// Stats
	Stats(ctx context.Context, tenantID string, from, to time.Time) (*models.Stats, error)

	Ping(ctx context.Context) error
	Close() error
}
