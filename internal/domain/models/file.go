package models

import (
	"time"
)

// File is a versioned document handle. URL, Size and Hash are not stored;
// they are populated from the current (max-number) version before the file
// leaves the service layer.
type File struct {
	ID          string         `json:"id" db:"id"`
	WorkspaceID string         `json:"workspace_id" db:"workspace_id"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description,omitempty" db:"description"`
	MimeType    string         `json:"mime_type" db:"mime_type"`
	Extension   string         `json:"extension" db:"extension"`
	Locked      bool           `json:"locked" db:"locked"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedBy   string         `json:"created_by" db:"created_by"`
	UpdatedBy   *string        `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy   *string        `json:"deleted_by,omitempty" db:"deleted_by"`

	// Computed from the current version, not stored.
	URL  *string `json:"url,omitempty"`
	Size int64   `json:"size"`
	Hash string  `json:"hash,omitempty"`
}
