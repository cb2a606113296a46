// Package models provides the data models shared across the graylake backend.
package models

import (
	"encoding/json"
	"time"
)

// Log levels accepted on ingested events.
const (
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

// Alert severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert statuses.
const (
	AlertStatusOpen   = "open"
	AlertStatusClosed = "closed"
)

// User roles.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// EventTypeLoginFailed is the event type the brute-force rule watches for.
const EventTypeLoginFailed = "LOGIN_FAILED"

// EventTypeGeneric is assigned when an ingested payload carries a message
// but no explicit event type.
const EventTypeGeneric = "GENERIC_EVENT"

// ValidLevel reports whether s is an accepted log level.
func ValidLevel(s string) bool {
	switch s {
	case LevelInfo, LevelWarn, LevelError, LevelCritical:
		return true
	}
	return false
}

// ValidSeverity reports whether s is an accepted alert severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidAlertStatus reports whether s is an accepted alert status.
func ValidAlertStatus(s string) bool {
	return s == AlertStatusOpen || s == AlertStatusClosed
}

// ValidRole reports whether s is an accepted user role.
func ValidRole(s string) bool {
	switch s {
	case RoleAdmin, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// Event is a single ingested log event. Events are immutable once stored.
type Event struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Timestamp time.Time       `json:"ts"`
	Level     string          `json:"level"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	IP        string          `json:"ip,omitempty"`
	User      string          `json:"user,omitempty"`
	Message   string          `json:"message"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Alert is a detection finding raised against a tenant. Only the status
// fields mutate after creation.
type Alert struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenant_id"`
	Timestamp       time.Time         `json:"ts"`
	RuleName        string            `json:"rule_name"`
	Severity        string            `json:"severity"`
	Description     string            `json:"description"`
	Status          string            `json:"status"`
	Entities        map[string]string `json:"entities"`
	DedupeKey       string            `json:"dedupe_key,omitempty"`
	MatchedEventIDs []string          `json:"matched_event_ids"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
	ClosedBy        *string           `json:"closed_by,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`
}

// Tenant is an isolated customer organization.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an analyst account belonging to a tenant.
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey authenticates ingest clients. The raw key is returned exactly once
// at creation time; only its SHA-256 digest is persisted.
type APIKey struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	KeyDigest string     `json:"-"`
	Prefix    string     `json:"prefix"`
	Enabled   bool       `json:"enabled"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// EventFilter narrows event list queries. All queries are additionally
// scoped by tenant at the repository layer.
type EventFilter struct {
	IDs       []string
	From      *time.Time
	To        *time.Time
	Level     string
	Source    string
	EventType string
	IP        string
	User      string
	Query     string // case-insensitive substring match on message
	Limit     int
	Skip      int
}

// AlertFilter narrows alert list queries.
type AlertFilter struct {
	Status   string
	Severity string
	From     *time.Time
	To       *time.Time
	Query    string // case-insensitive substring match on description
	Limit    int
	Skip     int
}

// Page carries pagination metadata in list responses.
type Page struct {
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
	Total int `json:"total"`
}

// EventPage is the response envelope for event list queries.
type EventPage struct {
	Items []*Event `json:"items"`
	Page  Page     `json:"page"`
}

// AlertPage is the response envelope for alert list queries.
type AlertPage struct {
	Items []*Alert `json:"items"`
	Page  Page     `json:"page"`
}

// CountBucket is one entry of a grouped count aggregation.
type CountBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Stats aggregates tenant activity over a time range for the dashboard.
type Stats struct {
	Range         StatsRange     `json:"range"`
	TotalEvents   int            `json:"total_events"`
	ByLevel       map[string]int `json:"by_level"`
	OpenAlerts    int            `json:"open_alerts"`
	TopIPs        []CountBucket  `json:"top_ips"`
	TopEventTypes []CountBucket  `json:"top_event_types"`
	RecentEvents  []*Event       `json:"recent_events"`
	RecentAlerts  []*Alert       `json:"recent_alerts"`
}

// StatsRange is the resolved time window of a stats query.
type StatsRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
