package grants

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

type stubRepo struct {
	created  []Grant
	deleted  []string
	owners   map[string]string
	listed   map[string][]Grant
	replaced map[string][]Grant
	purged   time.Time
	removed  int64
}

func (s *stubRepo) Create(ctx context.Context, g Grant) (Grant, error) {
	s.created = append(s.created, g)
	return g, nil
}

func (s *stubRepo) Delete(ctx context.Context, id, userID string) error {
	if s.owners != nil && s.owners[id] != userID {
		return ErrNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubRepo) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	return s.listed[userID], nil
}

func (s *stubRepo) ReplaceForUser(ctx context.Context, userID string, list []Grant) error {
	if s.replaced == nil {
		s.replaced = make(map[string][]Grant)
	}
	s.replaced[userID] = list
	return nil
}

func (s *stubRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.purged = cutoff
	return s.removed, nil
}

type stubInvalidator struct {
	invalidated []string
}

func (s *stubInvalidator) Invalidate(ctx context.Context, userID string) error {
	s.invalidated = append(s.invalidated, userID)
	return nil
}

func newTestService(repo *stubRepo, cache Invalidator) *Service {
	return NewService(repo, policy.DefaultCatalogue(), cache, slog.New(slog.DiscardHandler))
}

func TestServiceGrant(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubInvalidator{}
	svc := newTestService(repo, cache)

	expires := time.Now().Add(time.Hour)
	g, err := svc.Grant(context.Background(), CreateInput{
		UserID:    "user-1",
		Role:      "editor",
		Scope:     "workspace",
		GrantedBy: "admin-1",
		ExpiresAt: &expires,
	})
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)
	require.Equal(t, policy.ScopeWorkspace, g.Scope)
	require.Len(t, repo.created, 1)
	require.Equal(t, []string{"user-1"}, cache.invalidated)
}

func TestServiceGrantValidation(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	_, err := svc.Grant(context.Background(), CreateInput{Role: "editor", Scope: "workspace", GrantedBy: "a"})
	require.Error(t, err, "missing user id")

	_, err = svc.Grant(context.Background(), CreateInput{UserID: "u", Role: "editor", Scope: "galaxy", GrantedBy: "a"})
	require.Error(t, err, "unknown scope")

	_, err = svc.Grant(context.Background(), CreateInput{UserID: "u", Role: "superhero", Scope: "global", GrantedBy: "a"})
	require.ErrorIs(t, err, policy.ErrUnknownRole)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Grant(context.Background(), CreateInput{UserID: "u", Role: "editor", Scope: "global", GrantedBy: "a", ExpiresAt: &past})
	require.Error(t, err, "expiry in the past")
}

func TestServiceReplace(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubInvalidator{}
	svc := newTestService(repo, cache)

	list, err := svc.Replace(context.Background(), "user-1", []CreateInput{
		{Role: "viewer", Scope: "workspace", GrantedBy: "admin-1"},
		{Role: "editor", Scope: "project", ResourceID: "proj-9", GrantedBy: "admin-1"},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Len(t, repo.replaced["user-1"], 2)
	for _, g := range repo.replaced["user-1"] {
		require.NotEmpty(t, g.ID)
		require.Equal(t, "user-1", g.UserID)
	}
	require.Equal(t, []string{"user-1"}, cache.invalidated)
}

func TestServiceReplaceRejectsBadEntry(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, nil)

	_, err := svc.Replace(context.Background(), "user-1", []CreateInput{
		{Role: "viewer", Scope: "workspace", GrantedBy: "admin-1"},
		{Role: "superhero", Scope: "global", GrantedBy: "admin-1"},
	})
	require.ErrorIs(t, err, policy.ErrUnknownRole)
	require.Empty(t, repo.replaced, "nothing written when any entry is invalid")
}

func TestServiceReplaceEmptyClearsGrants(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubInvalidator{}
	svc := newTestService(repo, cache)

	list, err := svc.Replace(context.Background(), "user-1", nil)
	require.NoError(t, err)
	require.Empty(t, list)
	_, ok := repo.replaced["user-1"]
	require.True(t, ok, "an empty set still replaces")
	require.Equal(t, []string{"user-1"}, cache.invalidated)
}

func TestServiceRevokeInvalidatesCache(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubInvalidator{}
	svc := newTestService(repo, cache)

	require.NoError(t, svc.Revoke(context.Background(), "grant-1", "user-1"))
	require.Equal(t, []string{"grant-1"}, repo.deleted)
	require.Equal(t, []string{"user-1"}, cache.invalidated)
}

func TestServiceRevokeRequiresOwnership(t *testing.T) {
	repo := &stubRepo{owners: map[string]string{"grant-1": "owner-1"}}
	cache := &stubInvalidator{}
	svc := newTestService(repo, cache)

	err := svc.Revoke(context.Background(), "grant-1", "someone-else")
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.deleted, "grant must survive a mismatched revoke")
	require.Empty(t, cache.invalidated, "no cache key dropped on failure")

	require.NoError(t, svc.Revoke(context.Background(), "grant-1", "owner-1"))
	require.Equal(t, []string{"grant-1"}, repo.deleted)
	require.Equal(t, []string{"owner-1"}, cache.invalidated)
}

func TestServicePurgeExpiredAppliesRetention(t *testing.T) {
	repo := &stubRepo{removed: 3}
	svc := newTestService(repo, nil)

	removed, err := svc.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)
	require.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.purged, 5*time.Second)
}
