package policy

import (
	"fmt"
	"time"
)

// Permission identifies an atomic capability, namespaced as "resource:action"
// (e.g. "content:publish"). The engine compares permissions by equality only
// and never interprets the string structure.
type Permission string

// Role names a reusable bundle of permissions.
type Role string

// Scope is a granularity level for grants and decisions. Higher values are
// broader: a grant at a broader scope covers every resource at narrower
// scopes beneath it.
type Scope int

const (
	ScopeContent Scope = iota + 1
	ScopeProject
	ScopeWorkspace
	ScopeGlobal
)

// String returns the lowercase name used in reasons, storage, and config.
func (s Scope) String() string {
	switch s {
	case ScopeContent:
		return "content"
	case ScopeProject:
		return "project"
	case ScopeWorkspace:
		return "workspace"
	case ScopeGlobal:
		return "global"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Covers reports whether s is strictly broader than other.
func (s Scope) Covers(other Scope) bool {
	return s > other
}

// ParseScope maps a stored scope name back to its Scope value.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "content":
		return ScopeContent, nil
	case "project":
		return ScopeProject, nil
	case "workspace":
		return ScopeWorkspace, nil
	case "global":
		return ScopeGlobal, nil
	default:
		return 0, fmt.Errorf("policy: unknown scope %q", name)
	}
}

// RoleDefinition declares a role's own permissions and the roles it inherits
// from. Definitions are loaded once at startup and never mutated.
type RoleDefinition struct {
	Role        Role
	Permissions []Permission
	Inherits    []Role
}

// UserRole binds a user to a role at a scope. A grant with ResourceID set is
// pinned to one resource instance; an empty ResourceID applies to every
// resource at that scope. ExpiresAt, when non-nil, is compared against
// evaluation time; an expired grant is inert but the engine never deletes it.
type UserRole struct {
	UserID     string
	Role       Role
	Scope      Scope
	ResourceID string
	GrantedAt  time.Time
	GrantedBy  string
	ExpiresAt  *time.Time
}

// Expired reports whether the grant has lapsed as of now.
func (g UserRole) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}

// Request is the immutable input to one policy decision. Callers construct a
// fresh Request per check; the engine never retains or mutates it.
type Request struct {
	UserID     string
	UserRoles  []UserRole
	Action     Permission
	Scope      Scope
	ResourceID string

	// Resource optionally carries the live resource record for custom
	// policies that inspect resource state. The engine itself ignores it.
	Resource any
}

// Decision is the outcome of one evaluation. Reason is always set on denial
// and specific enough to distinguish the deny branches.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns an approving decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denial carrying the given reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
