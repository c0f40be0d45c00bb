package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure IntegrationStore implements the interface.
var _ driven.IntegrationStore = (*IntegrationStore)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const integrationColumns = `
	id, tenant_id, provider, is_connected, access_token_sealed, refresh_token_sealed,
	token_expires_at, last_sync_at, config, created_at, updated_at`

// IntegrationStore implements driven.IntegrationStore using PostgreSQL.
type IntegrationStore struct {
	db *sql.DB
}

// NewIntegrationStore creates a new PostgreSQL-backed integration store.
func NewIntegrationStore(db *sql.DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

// Create inserts a disconnected integration. The (tenant_id, provider) unique
// constraint turns a duplicate into domain.ErrAlreadyExists.
func (s *IntegrationStore) Create(ctx context.Context, integration *domain.Integration) error {
	config, err := marshalConfig(integration.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO integrations (
			id, tenant_id, provider, is_connected, access_token_sealed, refresh_token_sealed,
			token_expires_at, last_sync_at, config, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.db.ExecContext(ctx, query,
		integration.ID,
		integration.TenantID,
		integration.Provider,
		integration.IsConnected,
		nullString(integration.AccessTokenSealed),
		nullString(integration.RefreshTokenSealed),
		nullTime(integration.TokenExpiresAt),
		nullTime(integration.LastSyncAt),
		string(config),
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create integration: %w", err)
	}
	return nil
}

// Get retrieves an integration by ID.
func (s *IntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1`

	integration, err := scanIntegration(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return integration, nil
}

// GetByTenantProvider retrieves the tenant's integration for a provider.
func (s *IntegrationStore) GetByTenantProvider(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = $1 AND provider = $2`

	integration, err := scanIntegration(s.db.QueryRowContext(ctx, query, tenantID, provider))
	if err != nil {
		return nil, err
	}
	return integration, nil
}

// ListByTenant retrieves the tenant's integrations, oldest first. Rows for
// providers outside the known set are skipped.
func (s *IntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	known := make([]string, 0, len(domain.KnownProviders()))
	for _, p := range domain.KnownProviders() {
		known = append(known, string(p))
	}

	query := `SELECT ` + integrationColumns + `
		FROM integrations
		WHERE tenant_id = $1 AND provider = ANY($2)
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, tenantID, pq.Array(known))
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
		integrations = append(integrations, integration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return integrations, nil
}

// MarkConnected overwrites the tokens in a single UPDATE keyed by id. Granted
// scopes are merged into config by the database, so no prior state is read.
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
			is_connected = TRUE,
			access_token_sealed = $2,
			refresh_token_sealed = $3,
			token_expires_at = $4,
			last_sync_at = $5,
			updated_at = $5,
			config = config || $6::jsonb
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		conn.AccessTokenSealed,
		nullString(conn.RefreshTokenSealed),
		nullTime(conn.TokenExpiresAt),
		conn.ConnectedAt,
		string(patch),
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
			is_connected = FALSE,
			access_token_sealed = NULL,
			refresh_token_sealed = NULL,
			token_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id)
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
	var accessToken, refreshToken sql.NullString
	var tokenExpiresAt, lastSyncAt sql.NullTime
	var config []byte

	err := row.Scan(
		&integration.ID,
		&integration.TenantID,
		&integration.Provider,
		&integration.IsConnected,
		&accessToken,
		&refreshToken,
		&tokenExpiresAt,
		&lastSyncAt,
		&config,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan integration: %w", err)
	}

	integration.AccessTokenSealed = accessToken.String
	integration.RefreshTokenSealed = refreshToken.String
	integration.TokenExpiresAt = timePtr(tokenExpiresAt)
	integration.LastSyncAt = timePtr(lastSyncAt)

	integration.Config = map[string]any{}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &integration.Config); err != nil {
			return nil, fmt.Errorf("decode integration config: %w", err)
		}
	}

	return &integration, nil
}

func marshalConfig(config map[string]any) ([]byte, error) {
	if config == nil {
		config = map[string]any{}
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("encode integration config: %w", err)
	}
	return data, nil
}

// scopesPatch is the JSON object merged into config on connection.
func scopesPatch(scopes []string) ([]byte, error) {
	if len(scopes) == 0 {
		return []byte(`{}`), nil
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
