package policy

import (
	"errors"
	"fmt"
)

// ErrUnknownRole indicates a lookup for a role the catalogue does not define.
// This is a configuration fault, not a policy denial: the set of roles is
// closed and fixed at startup.
var ErrUnknownRole = errors.New("policy: unknown role")

// ErrInheritanceCycle indicates a cyclic inherits graph in the role
// definitions supplied to NewCatalogue.
var ErrInheritanceCycle = errors.New("policy: role inheritance cycle")

// PermissionSet is a deduplicated set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports whether the set contains perm.
func (s PermissionSet) Has(perm Permission) bool {
	_, ok := s[perm]
	return ok
}

// Catalogue resolves roles to their effective permission sets. It is built
// once at startup, validates the inheritance graph, memoizes every role's
// transitive closure, and is immutable afterwards.
type Catalogue struct {
	defs     map[Role]RoleDefinition
	resolved map[Role]PermissionSet
}

// NewCatalogue builds a catalogue from role definitions. It fails fast on
// duplicate roles, references to undefined roles, and inheritance cycles.
func NewCatalogue(defs []RoleDefinition) (*Catalogue, error) {
	c := &Catalogue{
		defs:     make(map[Role]RoleDefinition, len(defs)),
		resolved: make(map[Role]PermissionSet, len(defs)),
	}
	for _, def := range defs {
		if def.Role == "" {
			return nil, errors.New("policy: role definition missing role name")
		}
		if _, ok := c.defs[def.Role]; ok {
			return nil, fmt.Errorf("policy: duplicate role definition %q", def.Role)
		}
		c.defs[def.Role] = def
	}
	for _, def := range defs {
		set, err := c.resolve(def.Role, make(map[Role]bool))
		if err != nil {
			return nil, err
		}
		c.resolved[def.Role] = set
	}
	return c, nil
}

// resolve computes the transitive permission closure of role, detecting
// cycles via the in-progress set.
func (c *Catalogue) resolve(role Role, visiting map[Role]bool) (PermissionSet, error) {
	if set, ok := c.resolved[role]; ok {
		return set, nil
	}
	if visiting[role] {
		return nil, fmt.Errorf("%w involving %q", ErrInheritanceCycle, role)
	}
	def, ok := c.defs[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	visiting[role] = true
	set := make(PermissionSet, len(def.Permissions))
	for _, perm := range def.Permissions {
		set[perm] = struct{}{}
	}
	for _, parent := range def.Inherits {
		inherited, err := c.resolve(parent, visiting)
		if err != nil {
			return nil, err
		}
		for perm := range inherited {
			set[perm] = struct{}{}
		}
	}
	visiting[role] = false
	c.resolved[role] = set
	return set, nil
}

// Permissions returns a copy of the effective permission set for role,
// including everything transitively inherited.
func (c *Catalogue) Permissions(role Role) (PermissionSet, error) {
	set, ok := c.resolved[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	out := make(PermissionSet, len(set))
	for perm := range set {
		out[perm] = struct{}{}
	}
	return out, nil
}

// HasPermission reports whether role's effective set contains perm.
func (c *Catalogue) HasPermission(role Role, perm Permission) (bool, error) {
	set, ok := c.resolved[role]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return set.Has(perm), nil
}

// Roles lists every role the catalogue defines.
func (c *Catalogue) Roles() []Role {
	roles := make([]Role, 0, len(c.defs))
	for role := range c.defs {
		roles = append(roles, role)
	}
	return roles
}

// Built-in studio roles.
const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

// BuiltinDefinitions returns the default studio role hierarchy. Each role
// inherits the one below it.
func BuiltinDefinitions() []RoleDefinition {
	return []RoleDefinition{
		{
			Role: RoleViewer,
			Permissions: []Permission{
				PermContentRead,
				PermProjectRead,
				PermWorkspaceRead,
			},
		},
		{
			Role:     RoleContributor,
			Inherits: []Role{RoleViewer},
			Permissions: []Permission{
				PermContentCreate,
				PermContentUpdate,
			},
		},
		{
			Role:     RoleEditor,
			Inherits: []Role{RoleContributor},
			Permissions: []Permission{
				PermContentDelete,
				PermContentPublish,
			},
		},
		{
			Role:     RoleAdmin,
			Inherits: []Role{RoleEditor},
			Permissions: []Permission{
				PermProjectCreate,
				PermProjectUpdate,
				PermProjectDelete,
				PermMembersInvite,
				PermMembersRemove,
				PermAnalyticsView,
				PermGrantsManage,
			},
		},
		{
			Role:     RoleOwner,
			Inherits: []Role{RoleAdmin},
			Permissions: []Permission{
				PermWorkspaceUpdate,
				PermWorkspaceDelete,
				PermBillingView,
				PermBillingManage,
			},
		},
	}
}

// DefaultCatalogue builds the catalogue of built-in roles. The definitions
// are compiled in, so a build failure is a programming error.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(BuiltinDefinitions())
	if err != nil {
		panic(err)
	}
	return c
}
