package config

import "time"

const (
	// MaxWorkspaceNameLength is the maximum length for workspace names.
	// Limited to 255 to fit in the column and keep names displayable.
	MaxWorkspaceNameLength = 255

	// MaxFolderNameLength is the maximum length for folder names.
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// MaxTagNameLength is the maximum length for tag names.
	MaxTagNameLength = 100

	// MaxRouteLength caps denormalized folder routes. Deeper hierarchies than
	// this are an anti-pattern and would bloat every descendant update.
	MaxRouteLength = 1000

	// ExternalFetchTimeout bounds the whole fetch of a remote file reference,
	// the only long-latency operation in the core. Failure aborts the upload.
	ExternalFetchTimeout = 60 * time.Second
)
