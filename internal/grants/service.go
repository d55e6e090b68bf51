package grants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

// RepositoryPort defines data access methods for grants.
type RepositoryPort interface {
	Create(ctx context.Context, g Grant) (Grant, error)
	Delete(ctx context.Context, id, userID string) error
	ListByUser(ctx context.Context, userID string) ([]Grant, error)
	ReplaceForUser(ctx context.Context, userID string, list []Grant) error
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Invalidator drops cached grant listings after a mutation. The redis cache
// implements it; a nil invalidator is a no-op.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// CreateInput describes a grant request from the management API.
type CreateInput struct {
	UserID     string     `json:"userId" validate:"required"`
	Role       string     `json:"role" validate:"required"`
	Scope      string     `json:"scope" validate:"required,oneof=content project workspace global"`
	ResourceID string     `json:"resourceId,omitempty"`
	GrantedBy  string     `json:"grantedBy" validate:"required"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Service handles grant lifecycle: issue, revoke, list, purge. The policy
// engine never mutates grants; everything here is the management surface the
// engine depends on callers to drive.
type Service struct {
	repo      RepositoryPort
	catalogue *policy.Catalogue
	cache     Invalidator
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, catalogue *policy.Catalogue, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalogue: catalogue,
		cache:     cache,
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Grant validates and stores a new grant. The role must exist in the
// catalogue; an unknown role is rejected before it can poison evaluations.
func (s *Service) Grant(ctx context.Context, in CreateInput) (Grant, error) {
	if err := s.validate.Struct(in); err != nil {
		return Grant{}, fmt.Errorf("grants: invalid input: %w", err)
	}
	if _, err := s.catalogue.Permissions(policy.Role(in.Role)); err != nil {
		return Grant{}, fmt.Errorf("grants: %w", err)
	}
	scope, err := policy.ParseScope(in.Scope)
	if err != nil {
		return Grant{}, err
	}
	now := s.now()
	if in.ExpiresAt != nil && in.ExpiresAt.Before(now) {
		return Grant{}, errors.New("grants: expiry already in the past")
	}
	g, err := s.repo.Create(ctx, Grant{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Role:       policy.Role(in.Role),
		Scope:      scope,
		ResourceID: in.ResourceID,
		GrantedAt:  now,
		GrantedBy:  in.GrantedBy,
		ExpiresAt:  in.ExpiresAt,
	})
	if err != nil {
		return Grant{}, err
	}
	s.invalidate(ctx, g.UserID)
	s.logger.Info("grant issued",
		slog.String("grant_id", g.ID),
		slog.String("user_id", g.UserID),
		slog.String("role", string(g.Role)),
		slog.String("scope", g.Scope.String()),
		slog.String("granted_by", g.GrantedBy),
	)
	return g, nil
}

// Revoke deletes a grant. The delete is scoped to the user so the cache key
// invalidated below is always the one the deleted grant was served under.
func (s *Service) Revoke(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.logger.Info("grant revoked", slog.String("grant_id", id), slog.String("user_id", userID))
	return nil
}

// Replace atomically swaps a user's grants for the given set, validating
// every entry first so a bad row cannot leave the user half-migrated.
func (s *Service) Replace(ctx context.Context, userID string, inputs []CreateInput) ([]Grant, error) {
	now := s.now()
	list := make([]Grant, 0, len(inputs))
	for _, in := range inputs {
		in.UserID = userID
		if err := s.validate.Struct(in); err != nil {
			return nil, fmt.Errorf("grants: invalid input: %w", err)
		}
		if _, err := s.catalogue.Permissions(policy.Role(in.Role)); err != nil {
			return nil, fmt.Errorf("grants: %w", err)
		}
		scope, err := policy.ParseScope(in.Scope)
		if err != nil {
			return nil, err
		}
		if in.ExpiresAt != nil && in.ExpiresAt.Before(now) {
			return nil, errors.New("grants: expiry already in the past")
		}
		list = append(list, Grant{
			ID:         uuid.NewString(),
			UserID:     userID,
			Role:       policy.Role(in.Role),
			Scope:      scope,
			ResourceID: in.ResourceID,
			GrantedAt:  now,
			GrantedBy:  in.GrantedBy,
			ExpiresAt:  in.ExpiresAt,
		})
	}
	if err := s.repo.ReplaceForUser(ctx, userID, list); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.logger.Info("grants replaced", slog.String("user_id", userID), slog.Int("count", len(list)))
	return list, nil
}

// ListByUser returns all grants held by the user, expired ones included.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	return s.repo.ListByUser(ctx, userID)
}

// PurgeExpired removes grants that expired before now minus retention.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	removed, err := s.repo.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired grants purged",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("grant cache invalidate", slog.String("user_id", userID), slog.Any("error", err))
	}
}
