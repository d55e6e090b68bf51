package policy

// Content permissions.
const (
	PermContentRead    Permission = "content:read"
	PermContentCreate  Permission = "content:create"
	PermContentUpdate  Permission = "content:update"
	PermContentDelete  Permission = "content:delete"
	PermContentPublish Permission = "content:publish"
)

// Project permissions.
const (
	PermProjectRead   Permission = "project:read"
	PermProjectCreate Permission = "project:create"
	PermProjectUpdate Permission = "project:update"
	PermProjectDelete Permission = "project:delete"
)

// Workspace and membership permissions.
const (
	PermWorkspaceRead   Permission = "workspace:read"
	PermWorkspaceUpdate Permission = "workspace:update"
	PermWorkspaceDelete Permission = "workspace:delete"

	PermMembersInvite Permission = "members:invite"
	PermMembersRemove Permission = "members:remove"
)

// Platform permissions.
const (
	PermAnalyticsView Permission = "analytics:view"
	PermBillingView   Permission = "billing:view"
	PermBillingManage Permission = "billing:manage"
	PermGrantsManage  Permission = "grants:manage"
)

// AllPermissions lists every permission the platform defines.
func AllPermissions() []Permission {
	return []Permission{
		PermContentRead,
		PermContentCreate,
		PermContentUpdate,
		PermContentDelete,
		PermContentPublish,
		PermProjectRead,
		PermProjectCreate,
		PermProjectUpdate,
		PermProjectDelete,
		PermWorkspaceRead,
		PermWorkspaceUpdate,
		PermWorkspaceDelete,
		PermMembersInvite,
		PermMembersRemove,
		PermAnalyticsView,
		PermBillingView,
		PermBillingManage,
		PermGrantsManage,
	}
}
