package models

import (
	"time"
)

// Version disks. "external" entries store the source URL directly in Path.
const (
	DiskLocal    = "local"
	DiskExternal = "external"
	DiskS3       = "s3"
)

// Version is one immutable entry in a file's append-only history. Number is
// the authoritative monotonic sequence: the current version is always the one
// with the maximum number, never the newest timestamp (disks may have clock
// skew). Versions carry no updated_at; only the download counter ever moves.
type Version struct {
	ID        string         `json:"id" db:"id"`
	FileID    string         `json:"file_id" db:"file_id"`
	Number    int            `json:"number" db:"number"` // 1-based, unique per file, never reused
	Hash      string         `json:"hash" db:"hash"`     // hex SHA-256 of the content
	Disk      string         `json:"disk" db:"disk"`
	Path      string         `json:"path" db:"path"` // storage key, or URL for external disk
	Size      int64          `json:"size" db:"size"`
	Downloads int64          `json:"downloads" db:"downloads"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedBy string         `json:"created_by" db:"created_by"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
