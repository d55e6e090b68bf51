package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

// Archivable is implemented by resource records that know their archive
// state, letting the archived-content rule skip the database round trip.
type Archivable interface {
	IsArchived() bool
}

// RegisterDefaultPolicies installs the studio's built-in custom rules. Must
// run during startup, before the engine serves concurrent evaluations.
func RegisterDefaultPolicies(engine *policy.Engine, pool *pgxpool.Pool) {
	engine.RegisterPolicy("archived-content", ArchivedContentRule(pool))
}

// ArchivedContentRule vetoes mutations of archived content. Reads are still
// allowed: archiving freezes an item without hiding it.
func ArchivedContentRule(pool *pgxpool.Pool) policy.Rule {
	mutating := map[policy.Permission]bool{
		policy.PermContentUpdate:  true,
		policy.PermContentDelete:  true,
		policy.PermContentPublish: true,
	}
	return func(ctx context.Context, req policy.Request) (policy.Decision, error) {
		if req.Scope != policy.ScopeContent || !mutating[req.Action] {
			return policy.Allow(), nil
		}
		if res, ok := req.Resource.(Archivable); ok {
			if res.IsArchived() {
				return policy.Deny("Content is archived and cannot be modified"), nil
			}
			return policy.Allow(), nil
		}
		if pool == nil || req.ResourceID == "" {
			return policy.Allow(), nil
		}
		var status string
		err := pool.QueryRow(ctx, `SELECT status FROM content_items WHERE id = $1`, req.ResourceID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return policy.Allow(), nil
			}
			return policy.Decision{}, err
		}
		if status == "archived" {
			return policy.Deny("Content is archived and cannot be modified"), nil
		}
		return policy.Allow(), nil
	}
}
