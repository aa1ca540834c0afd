package models

import (
	"time"
)

// Workspace is the tenant boundary. Every folder, file and membership is
// scoped to exactly one workspace.
type Workspace struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Slug          string         `json:"slug" db:"slug"`
	Description   string         `json:"description,omitempty" db:"description"`
	Settings      map[string]any `json:"settings,omitempty" db:"settings"`
	Active        bool           `json:"active" db:"active"`
	OwnerID       string         `json:"owner_id" db:"owner_id"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	UpdatedBy     *string        `json:"updated_by,omitempty" db:"updated_by"`
	DeactivatedAt *time.Time     `json:"deactivated_at,omitempty" db:"deactivated_at"`
	DeactivatedBy *string        `json:"deactivated_by,omitempty" db:"deactivated_by"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy     *string        `json:"deleted_by,omitempty" db:"deleted_by"`
}

// Actor is the acting user, resolved by the auth boundary and threaded
// explicitly through every mutating call (never pulled from ambient state).
type Actor struct {
	ID string
	// Elevated marks the platform-wide elevated role. Elevated actors pass
	// every workspace access and capability check.
	Elevated bool
}
