package grants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/db"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

// ErrNotFound indicates that the requested grant does not exist.
var ErrNotFound = errors.New("grants: not found")

// Repository provides PostgreSQL backed persistence for role grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const grantColumns = `id, user_id, role, scope, COALESCE(resource_id, ''), granted_at, granted_by, expires_at`

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	var scope string
	if err := row.Scan(&g.ID, &g.UserID, &g.Role, &scope, &g.ResourceID, &g.GrantedAt, &g.GrantedBy, &g.ExpiresAt); err != nil {
		return Grant{}, err
	}
	parsed, err := policy.ParseScope(scope)
	if err != nil {
		return Grant{}, fmt.Errorf("grants: stored grant %s: %w", g.ID, err)
	}
	g.Scope = parsed
	return g, nil
}

// Create inserts a new grant.
func (r *Repository) Create(ctx context.Context, g Grant) (Grant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_roles (id, user_id, role, scope, resource_id, granted_at, granted_by, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING `+grantColumns,
		g.ID, g.UserID, string(g.Role), g.Scope.String(), g.ResourceID, g.GrantedAt, g.GrantedBy, g.ExpiresAt,
	)
	return scanGrant(row)
}

// Delete removes a grant, but only when it belongs to the given user. The
// ownership condition keeps a mismatched path from deleting someone else's
// grant. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns every grant held by the user, newest first. Expired
// grants are included: the engine treats them as inert and cleanup is the
// sweep job's responsibility.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+grantColumns+` FROM user_roles
		WHERE user_id = $1
		ORDER BY granted_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// ReplaceForUser atomically swaps a user's grants for the given set.
func (r *Repository) ReplaceForUser(ctx context.Context, userID string, list []Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, g := range list {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (id, user_id, role, scope, resource_id, granted_at, granted_by, expires_at)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
				g.ID, userID, string(g.Role), g.Scope.String(), g.ResourceID, g.GrantedAt, g.GrantedBy, g.ExpiresAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// PurgeExpired deletes grants that expired before the cutoff and reports how
// many were removed.
func (r *Repository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE expires_at IS NOT NULL AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
