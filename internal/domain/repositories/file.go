package repositories

import (
	"context"
	"time"

	"depot/internal/domain/models"
)

// FileRepository defines data access operations for files
type FileRepository interface {
	// Create inserts a file row
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a live file by ID within a workspace
	GetByID(ctx context.Context, id, workspaceID string) (*models.File, error)

	// GetByIDIncludingDeleted retrieves a file regardless of soft-delete state
	GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.File, error)

	// Update persists name/description/mime/extension/locked/metadata and audit fields
	Update(ctx context.Context, file *models.File) error

	// List lists live files of a workspace ordered by name
	List(ctx context.Context, workspaceID string) ([]models.File, error)

	// SoftDelete stamps deleted_at/deleted_by on one file row
	SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error

	// SoftDeleteAllByWorkspace marks every live file of the workspace deleted.
	// Used only by the workspace deletion cascade.
	SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error

	// Restore clears the soft-delete marker
	Restore(ctx context.Context, id, workspaceID string) (*models.File, error)

	// HardDelete removes the file row; versions, placements and markings go
	// via ON DELETE CASCADE. Only valid for already-soft-deleted rows.
	HardDelete(ctx context.Context, id, workspaceID string) error
}

// VersionRepository defines data access operations for file versions
type VersionRepository interface {
	// Create inserts a version row. (file_id, number) uniqueness is the
	// serialization point under concurrent replacements.
	Create(ctx context.Context, v *models.Version) error

	// Current returns the version with the maximum number for the file
	Current(ctx context.Context, fileID string) (*models.Version, error)

	// GetByID retrieves one version of a file
	GetByID(ctx context.Context, id, fileID string) (*models.Version, error)

	// ListByFile lists versions ordered by number ASC
	ListByFile(ctx context.Context, fileID string) ([]models.Version, error)

	// IncrementDownloads atomically bumps the download counter
	IncrementDownloads(ctx context.Context, id string) error
}
