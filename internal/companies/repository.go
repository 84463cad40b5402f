// Package companies provides read access to tenant companies.
// Companies are administered elsewhere; this package only resolves them.
package companies

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("company not found")

// Company is a tenant. ScopeKey is the identifier external systems use
// for it, such as a CRM location id.
type Company struct {
	ID        uuid.UUID
	Name      string
	ScopeKey  string
	CreatedAt time.Time
}

// Repository provides data access for companies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new companies repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveByScope returns the company owning scopeKey.
func (r *Repository) ResolveByScope(ctx context.Context, scopeKey string) (Company, error) {
	scopeKey = strings.TrimSpace(scopeKey)
	if scopeKey == "" {
		return Company{}, ErrNotFound
	}

	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, scope_key, created_at
		FROM companies
		WHERE scope_key = $1
	`, scopeKey).Scan(&c.ID, &c.Name, &c.ScopeKey, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, err
	}
	return c, nil
}
