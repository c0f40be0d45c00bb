package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure IntegrationStore implements the interface.
var _ driven.IntegrationStore = (*IntegrationStore)(nil)

const integrationColumns = `
	id, tenant_id, provider, is_connected, access_token_sealed, refresh_token_sealed,
	token_expires_at, last_sync_at, config, created_at, updated_at`

// IntegrationStore implements driven.IntegrationStore using SQLite.
type IntegrationStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewIntegrationStore creates a new SQLite-backed integration store.
func NewIntegrationStore(db *sql.DB) *IntegrationStore {
	return &IntegrationStore{db: db, now: time.Now}
}

// Create inserts a disconnected integration.
func (s *IntegrationStore) Create(ctx context.Context, integration *domain.Integration) error {
	config, err := marshalConfig(integration.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO integrations (
			id, tenant_id, provider, is_connected, access_token_sealed, refresh_token_sealed,
			token_expires_at, last_sync_at, config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		integration.ID,
		integration.TenantID,
		string(integration.Provider),
		integration.IsConnected,
		nullString(integration.AccessTokenSealed),
		nullString(integration.RefreshTokenSealed),
		formatNullTime(integration.TokenExpiresAt),
		formatNullTime(integration.LastSyncAt),
		config,
		formatTime(integration.CreatedAt),
		formatTime(integration.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create integration: %w", err)
	}
	return nil
}

// Get retrieves an integration by ID.
func (s *IntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = ?`
	return scanIntegration(s.db.QueryRowContext(ctx, query, id))
}

// GetByTenantProvider retrieves the tenant's integration for a provider.
func (s *IntegrationStore) GetByTenantProvider(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = ? AND provider = ?`
	return scanIntegration(s.db.QueryRowContext(ctx, query, tenantID, string(provider)))
}

// ListByTenant retrieves the tenant's integrations, oldest first.
func (s *IntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = ? ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []*domain.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		if !integration.Provider.IsKnown() {
			continue
		}
		integrations = append(integrations, integration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return integrations, nil
}

// MarkConnected overwrites the tokens in a single UPDATE keyed by id;
// json_patch merges the granted scopes into config.
func (s *IntegrationStore) MarkConnected(ctx context.Context, id string, conn *domain.Connection) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	patch, err := scopesPatch(conn.Scopes)
	if err != nil {
		return err
	}

	query := `
		UPDATE integrations SET
			is_connected = 1,
			access_token_sealed = ?,
			refresh_token_sealed = ?,
			token_expires_at = ?,
			last_sync_at = ?,
			updated_at = ?,
			config = json_patch(config, ?)
		WHERE id = ?
	`

	connectedAt := formatTime(conn.ConnectedAt)
	result, err := s.db.ExecContext(ctx, query,
		conn.AccessTokenSealed,
		nullString(conn.RefreshTokenSealed),
		formatNullTime(conn.TokenExpiresAt),
		connectedAt,
		connectedAt,
		patch,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark connected: %w", err)
	}
	return requireRow(result)
}

// MarkDisconnected clears tokens and expiry and flips the record to disconnected.
func (s *IntegrationStore) MarkDisconnected(ctx context.Context, id string) error {
	query := `
		UPDATE integrations SET
			is_connected = 0,
			access_token_sealed = NULL,
			refresh_token_sealed = NULL,
			token_expires_at = NULL,
			updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("mark disconnected: %w", err)
	}
	return requireRow(result)
}

// Ping checks if the database is reachable
func (s *IntegrationStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*domain.Integration, error) {
	var integration domain.Integration
	var provider, config, createdAt, updatedAt string
	var accessToken, refreshToken, tokenExpiresAt, lastSyncAt sql.NullString

	err := row.Scan(
		&integration.ID,
		&integration.TenantID,
		&provider,
		&integration.IsConnected,
		&accessToken,
		&refreshToken,
		&tokenExpiresAt,
		&lastSyncAt,
		&config,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan integration: %w", err)
	}

	integration.Provider = domain.ProviderType(provider)
	integration.AccessTokenSealed = accessToken.String
	integration.RefreshTokenSealed = refreshToken.String

	if integration.TokenExpiresAt, err = parseNullTime(tokenExpiresAt); err != nil {
		return nil, err
	}
	if integration.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return nil, err
	}
	if integration.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if integration.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	integration.Config = map[string]any{}
	if config != "" {
		if err := json.Unmarshal([]byte(config), &integration.Config); err != nil {
			return nil, fmt.Errorf("decode integration config: %w", err)
		}
	}

	return &integration, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalConfig(config map[string]any) (string, error) {
	if config == nil {
		config = map[string]any{}
	}
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encode integration config: %w", err)
	}
	return string(data), nil
}

func scopesPatch(scopes []string) (string, error) {
	if len(scopes) == 0 {
		return `{}`, nil
	}
	return marshalConfig(map[string]any{domain.ConfigKeyScopes: scopes})
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
