package grants

import (
	"time"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

// Grant is a stored role grant. It carries the persistence identity on top
// of the policy-layer UserRole record.
type Grant struct {
	ID         string
	UserID     string
	Role       policy.Role
	Scope      policy.Scope
	ResourceID string
	GrantedAt  time.Time
	GrantedBy  string
	ExpiresAt  *time.Time
}

// UserRole converts the stored grant into the engine's input shape.
func (g Grant) UserRole() policy.UserRole {
	return policy.UserRole{
		UserID:     g.UserID,
		Role:       g.Role,
		Scope:      g.Scope,
		ResourceID: g.ResourceID,
		GrantedAt:  g.GrantedAt,
		GrantedBy:  g.GrantedBy,
		ExpiresAt:  g.ExpiresAt,
	}
}

// UserRoles converts a grant list for the engine.
func UserRoles(list []Grant) []policy.UserRole {
	out := make([]policy.UserRole, len(list))
	for i, g := range list {
		out[i] = g.UserRole()
	}
	return out
}
