package models

import (
	"time"
)

// Folder is a tree node. Route and Level are denormalized caches of tree
// position: Route is the full ancestor-name chain joined by "/", Level is the
// depth (0 for roots). Both are recomputed on every structural change and the
// recomputation cascades to all descendants.
type Folder struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	ParentID    *string    `json:"parent_id,omitempty" db:"parent_id"` // NULL = root level
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	Route       string     `json:"route" db:"route"`
	Level       int        `json:"level" db:"level"`
	Order       int        `json:"order" db:"ord"` // 1-based sibling sequence per (workspace, parent)
	CreatedBy   string     `json:"created_by" db:"created_by"`
	UpdatedBy   *string    `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy   *string    `json:"deleted_by,omitempty" db:"deleted_by"`
}

// ChildRoute returns the route a direct child with the given name would have.
func (f *Folder) ChildRoute(name string) string {
	return f.Route + "/" + name
}
