package models

import (
	"time"
)

// Membership roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Capability keys gate the four permission areas of a workspace.
const (
	CapabilityUsers    = "users"
	CapabilityFiles    = "files"
	CapabilityFolders  = "folders"
	CapabilitySettings = "settings"
)

// Capabilities is the closed set of valid capability keys.
var Capabilities = []string{CapabilityUsers, CapabilityFiles, CapabilityFolders, CapabilitySettings}

// PermissionMap is the stored per-member capability map. Missing keys fall
// back to defaults: true for everything except "users", which defaults false.
// The asymmetry is deliberate (least privilege for membership management,
// permissive for ordinary content operations) - do not normalize it.
type PermissionMap map[string]bool

// Allows reports the effective value for a capability key.
func (p PermissionMap) Allows(capability string) bool {
	if p != nil {
		if v, ok := p[capability]; ok {
			return v
		}
	}
	return capability != CapabilityUsers
}

// Membership joins a user to a workspace with a role and a permission map.
// Rows are hard-deleted on leave/decline/remove, never soft-deleted.
type Membership struct {
	ID          string        `json:"id" db:"id"`
	WorkspaceID string        `json:"workspace_id" db:"workspace_id"`
	UserID      string        `json:"user_id" db:"user_id"`
	Role        string        `json:"role" db:"role"`
	Permissions PermissionMap `json:"permissions" db:"permissions"`
	InvitedAt   *time.Time    `json:"invited_at,omitempty" db:"invited_at"`
	JoinedAt    *time.Time    `json:"joined_at,omitempty" db:"joined_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// IsOwner reports whether this membership carries the owner role.
// Owners have all capabilities regardless of the stored map.
func (m *Membership) IsOwner() bool {
	return m.Role == RoleOwner
}
