package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/graylake-systems/graylake/internal/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations; a violation of the partial index on open alerts is how
// concurrent duplicate raises lose the race.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a connection pool and verifies connectivity.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) CreateEvent(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (id, tenant_id, ts, level, event_type, source, ip, user_name, message, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		ev.ID, ev.TenantID, ev.Timestamp, ev.Level, ev.EventType,
		ev.Source, nullString(ev.IP), nullString(ev.User), ev.Message, []byte(ev.Raw),
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context, tenantID string, f *models.EventFilter) ([]*models.Event, int, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2

	if f != nil {
		if len(f.IDs) > 0 {
			where = append(where, fmt.Sprintf("id = ANY($%d)", argPos))
			args = append(args, f.IDs)
			argPos++
		}
		if f.From != nil {
			where = append(where, fmt.Sprintf("ts >= $%d", argPos))
			args = append(args, *f.From)
			argPos++
		}
		if f.To != nil {
			where = append(where, fmt.Sprintf("ts <= $%d", argPos))
			args = append(args, *f.To)
			argPos++
		}
		if f.Level != "" {
			where = append(where, fmt.Sprintf("level = $%d", argPos))
			args = append(args, f.Level)
			argPos++
		}
		if f.Source != "" {
			where = append(where, fmt.Sprintf("source = $%d", argPos))
			args = append(args, f.Source)
			argPos++
		}
		if f.EventType != "" {
			where = append(where, fmt.Sprintf("event_type = $%d", argPos))
			args = append(args, f.EventType)
			argPos++
		}
		if f.IP != "" {
			where = append(where, fmt.Sprintf("ip = $%d", argPos))
			args = append(args, f.IP)
			argPos++
		}
		if f.User != "" {
			where = append(where, fmt.Sprintf("user_name = $%d", argPos))
			args = append(args, f.User)
			argPos++
		}
		if f.Query != "" {
			where = append(where, fmt.Sprintf("message ILIKE $%d", argPos))
			args = append(args, "%"+escapeLike(f.Query)+"%")
			argPos++
		}
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM events " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	limit, skip := 50, 0
	if f != nil {
		if f.Limit > 0 {
			limit = f.Limit
		}
		if f.Skip > 0 {
			skip = f.Skip
		}
	}
	args = append(args, limit, skip)

	query := fmt.Sprintf(`
		SELECT id, tenant_id, ts, level, event_type, source, ip, user_name, message, raw
		FROM events
		%s
		ORDER BY ts DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return events, total, nil
}

func (r *PostgresRepository) RecentEventsByIP(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, tenant_id, ts, level, event_type, source, ip, user_name, message, raw
		FROM events
		WHERE tenant_id = $1 AND event_type = $2 AND ip = $3 AND ts >= $4
		ORDER BY ts DESC
		LIMIT $5
	`
	rows, err := r.pool.Query(ctx, query, tenantID, eventType, ip, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func scanEvent(rows pgx.Rows) (*models.Event, error) {
	ev := &models.Event{}
	var ip, user *string
	var raw []byte
	if err := rows.Scan(
		&ev.ID, &ev.TenantID, &ev.Timestamp, &ev.Level, &ev.EventType,
		&ev.Source, &ip, &user, &ev.Message, &raw,
	); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if ip != nil {
		ev.IP = *ip
	}
	if user != nil {
		ev.User = *user
	}
	ev.Raw = json.RawMessage(raw)
	return ev, nil
}

func (r *PostgresRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	entities, err := json.Marshal(a.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	query := `
		INSERT INTO alerts (id, tenant_id, ts, rule_name, severity, description, status,
			entities, dedupe_key, matched_event_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, a.TenantID, a.Timestamp, a.RuleName, a.Severity, a.Description,
		a.Status, entities, nullString(a.DedupeKey), a.MatchedEventIDs, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindOpenAlertByDedupeKey(ctx context.Context, tenantID, dedupeKey string) (*models.Alert, error) {
	query := alertSelect + ` WHERE tenant_id = $1 AND dedupe_key = $2 AND status = 'open'`
	row := r.pool.QueryRow(ctx, query, tenantID, dedupeKey)
	return scanAlertRow(row)
}

func (r *PostgresRepository) GetAlertByID(ctx context.Context, tenantID, id string) (*models.Alert, error) {
	query := alertSelect + ` WHERE tenant_id = $1 AND id = $2`
	row := r.pool.QueryRow(ctx, query, tenantID, id)
	return scanAlertRow(row)
}

const alertSelect = `
	SELECT id, tenant_id, ts, rule_name, severity, description, status,
		entities, dedupe_key, matched_event_ids, closed_at, closed_by, created_at, updated_at
	FROM alerts`

func scanAlertRow(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	var entities []byte
	var dedupeKey *string
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Timestamp, &a.RuleName, &a.Severity, &a.Description,
		&a.Status, &entities, &dedupeKey, &a.MatchedEventIDs,
		&a.ClosedAt, &a.ClosedBy, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	if dedupeKey != nil {
		a.DedupeKey = *dedupeKey
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &a.Entities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
		}
	}
	return a, nil
}

func (r *PostgresRepository) ListAlerts(ctx context.Context, tenantID string, f *models.AlertFilter) ([]*models.Alert, int, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2

	if f != nil {
		if f.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argPos))
			args = append(args, f.Status)
			argPos++
		}
		if f.Severity != "" {
			where = append(where, fmt.Sprintf("severity = $%d", argPos))
			args = append(args, f.Severity)
			argPos++
		}
		if f.From != nil {
			where = append(where, fmt.Sprintf("ts >= $%d", argPos))
			args = append(args, *f.From)
			argPos++
		}
		if f.To != nil {
			where = append(where, fmt.Sprintf("ts <= $%d", argPos))
			args = append(args, *f.To)
			argPos++
		}
		if f.Query != "" {
			where = append(where, fmt.Sprintf("description ILIKE $%d", argPos))
			args = append(args, "%"+escapeLike(f.Query)+"%")
			argPos++
		}
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM alerts " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	limit, skip := 25, 0
	if f != nil {
		if f.Limit > 0 {
			limit = f.Limit
		}
		if f.Skip > 0 {
			skip = f.Skip
		}
	}
	args = append(args, limit, skip)

	query := fmt.Sprintf(`%s
		%s
		ORDER BY ts DESC
		LIMIT $%d OFFSET $%d
	`, alertSelect, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		a := &models.Alert{}
		var entities []byte
		var dedupeKey *string
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.Timestamp, &a.RuleName, &a.Severity, &a.Description,
			&a.Status, &entities, &dedupeKey, &a.MatchedEventIDs,
			&a.ClosedAt, &a.ClosedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		if dedupeKey != nil {
			a.DedupeKey = *dedupeKey
		}
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &a.Entities); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal entities: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return alerts, total, nil
}

func (r *PostgresRepository) SetAlertStatus(ctx context.Context, tenantID, id, status, actorID string) (*models.Alert, error) {
	// COALESCE keeps closed_at/closed_by stable when a closed alert is
	// closed again; reopening clears both. A reopen re-enters the partial
	// unique index, so it fails when another open alert holds the key.
	query := `
		UPDATE alerts SET
			status = $3,
			closed_at = CASE WHEN $3 = 'closed' THEN COALESCE(closed_at, now()) ELSE NULL END,
			closed_by = CASE WHEN $3 = 'closed' THEN COALESCE(closed_by, $4) ELSE NULL END,
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, ts, rule_name, severity, description, status,
			entities, dedupe_key, matched_event_ids, closed_at, closed_by, created_at, updated_at
	`
	row := r.pool.QueryRow(ctx, query, tenantID, id, status, actorID)
	a, err := scanAlertRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateAlert
		}
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, password_hash, role, created_at
		 FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, password_hash, role, created_at
		 FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, email, password_hash, role, created_at
		 FROM users WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) UpdateUserRole(ctx context.Context, tenantID, id, role string) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET role = $3 WHERE tenant_id = $1 AND id = $2
		 RETURNING id, tenant_id, email, password_hash, role, created_at`,
		tenantID, id, role,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, tenantID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) CountAdmins(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role = 'admin'`, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, name, key_digest, prefix, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		k.ID, k.TenantID, k.Name, k.KeyDigest, k.Prefix, k.Enabled, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAPIKeyByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, key_digest, prefix, enabled, last_used, created_at
		 FROM api_keys WHERE key_digest = $1`, digest,
	).Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyDigest, &k.Prefix, &k.Enabled, &k.LastUsed, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) ListAPIKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, key_digest, prefix, enabled, last_used, created_at
		 FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		k := &models.APIKey{}
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyDigest, &k.Prefix, &k.Enabled, &k.LastUsed, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return keys, nil
}

func (r *PostgresRepository) RevokeAPIKey(ctx context.Context, tenantID, id string) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := r.pool.QueryRow(ctx,
		`UPDATE api_keys SET enabled = FALSE WHERE tenant_id = $1 AND id = $2
		 RETURNING id, tenant_id, name, key_digest, prefix, enabled, last_used, created_at`,
		tenantID, id,
	).Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyDigest, &k.Prefix, &k.Enabled, &k.LastUsed, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to revoke api key: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used = $2 WHERE id = $1`, id, usedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context, tenantID string, from, to time.Time) (*models.Stats, error) {
	stats := &models.Stats{
		Range:   models.StatsRange{From: from, To: to},
		ByLevel: map[string]int{},
	}

	rows, err := r.pool.Query(ctx,
		`SELECT level, COUNT(*) FROM events
		 WHERE tenant_id = $1 AND ts >= $2 AND ts <= $3
		 GROUP BY level`, tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by level: %w", err)
	}
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		stats.ByLevel[level] = count
		stats.TotalEvents += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE tenant_id = $1 AND status = 'open'`, tenantID,
	).Scan(&stats.OpenAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to count open alerts: %w", err)
	}

	stats.TopIPs, err = r.topBuckets(ctx,
		`SELECT ip, COUNT(*) FROM events
		 WHERE tenant_id = $1 AND ts >= $2 AND ts <= $3 AND ip IS NOT NULL
		 GROUP BY ip ORDER BY COUNT(*) DESC, ip ASC LIMIT 10`, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	stats.TopEventTypes, err = r.topBuckets(ctx,
		`SELECT event_type, COUNT(*) FROM events
		 WHERE tenant_id = $1 AND ts >= $2 AND ts <= $3
		 GROUP BY event_type ORDER BY COUNT(*) DESC, event_type ASC LIMIT 10`, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	recentEvents, _, err := r.ListEvents(ctx, tenantID, &models.EventFilter{From: &from, To: &to, Limit: 10})
	if err != nil {
		return nil, err
	}
	stats.RecentEvents = recentEvents

	recentAlerts, _, err := r.ListAlerts(ctx, tenantID, &models.AlertFilter{From: &from, To: &to, Limit: 10})
	if err != nil {
		return nil, err
	}
	stats.RecentAlerts = recentAlerts

	return stats, nil
}

func (r *PostgresRepository) topBuckets(ctx context.Context, query, tenantID string, from, to time.Time) ([]models.CountBucket, error) {
	rows, err := r.pool.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query top buckets: %w", err)
	}
	defer rows.Close()

	buckets := []models.CountBucket{}
	for rows.Next() {
		var b models.CountBucket
		if err := rows.Scan(&b.Value, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return buckets, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
