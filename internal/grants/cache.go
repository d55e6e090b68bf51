package grants

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

const cacheKeyPrefix = "grants:user:"

// cachedGrant is the wire shape stored in redis.
type cachedGrant struct {
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	Scope      string     `json:"scope"`
	ResourceID string     `json:"resourceId,omitempty"`
	GrantedAt  time.Time  `json:"grantedAt"`
	GrantedBy  string     `json:"grantedBy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// CachedSource is a read-through grant source: redis first, repository on
// miss, with singleflight collapsing concurrent misses for the same user.
// Cache failures degrade to the repository rather than failing the request.
type CachedSource struct {
	repo   RepositoryPort
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedSource builds a caching grant source. A nil client disables
// caching and reads pass straight through.
func NewCachedSource(repo RepositoryPort, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{repo: repo, client: client, ttl: ttl, logger: logger}
}

// UserGrants implements policy.GrantSource.
func (c *CachedSource) UserGrants(ctx context.Context, userID string) ([]policy.UserRole, error) {
	if c.client == nil {
		list, err := c.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return UserRoles(list), nil
	}

	key := cacheKeyPrefix + userID
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []cachedGrant
		if err := json.Unmarshal(raw, &cached); err == nil {
			return fromCached(cached)
		}
		// Corrupt entry: fall through and repopulate.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("grant cache read", slog.String("user_id", userID), slog.Any("error", err))
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		list, err := c.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		cached := toCached(list)
		if raw, err := json.Marshal(cached); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("grant cache write", slog.String("user_id", userID), slog.Any("error", err))
			}
		}
		return cached, nil
	})
	if err != nil {
		return nil, err
	}
	return fromCached(value.([]cachedGrant))
}

// Invalidate drops the cached listing for a user.
func (c *CachedSource) Invalidate(ctx context.Context, userID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKeyPrefix+userID).Err()
}

func toCached(list []Grant) []cachedGrant {
	out := make([]cachedGrant, len(list))
	for i, g := range list {
		out[i] = cachedGrant{
			UserID:     g.UserID,
			Role:       string(g.Role),
			Scope:      g.Scope.String(),
			ResourceID: g.ResourceID,
			GrantedAt:  g.GrantedAt,
			GrantedBy:  g.GrantedBy,
			ExpiresAt:  g.ExpiresAt,
		}
	}
	return out
}

func fromCached(cached []cachedGrant) ([]policy.UserRole, error) {
	out := make([]policy.UserRole, len(cached))
	for i, entry := range cached {
		scope, err := policy.ParseScope(entry.Scope)
		if err != nil {
			return nil, err
		}
		out[i] = policy.UserRole{
			UserID:     entry.UserID,
			Role:       policy.Role(entry.Role),
			Scope:      scope,
			ResourceID: entry.ResourceID,
			GrantedAt:  entry.GrantedAt,
			GrantedBy:  entry.GrantedBy,
			ExpiresAt:  entry.ExpiresAt,
		}
	}
	return out, nil
}
