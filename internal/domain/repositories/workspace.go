package repositories

import (
	"context"
	"time"

	"depot/internal/domain/models"
)

// WorkspaceRepository defines data access operations for workspaces
type WorkspaceRepository interface {
	// Create creates a new workspace
	Create(ctx context.Context, ws *models.Workspace) error

	// GetByID retrieves a live (not soft-deleted) workspace by ID
	GetByID(ctx context.Context, id string) (*models.Workspace, error)

	// GetByIDIncludingDeleted retrieves a workspace regardless of soft-delete state
	GetByIDIncludingDeleted(ctx context.Context, id string) (*models.Workspace, error)

	// GetBySlug retrieves a live workspace by slug
	GetBySlug(ctx context.Context, slug string) (*models.Workspace, error)

	// ListForUser retrieves workspaces the user owns or is a member of,
	// ordered by updated_at DESC
	ListForUser(ctx context.Context, userID string) ([]models.Workspace, error)

	// Update persists name/description/settings/active and audit fields
	Update(ctx context.Context, ws *models.Workspace) error

	// SoftDelete stamps deleted_at/deleted_by on the workspace row only.
	// Cascading to folders and files is the service's job, in the same tx.
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error

	// Restore clears the soft-delete marker
	Restore(ctx context.Context, id string) (*models.Workspace, error)

	// HardDelete removes the workspace row. Child rows go via ON DELETE CASCADE.
	HardDelete(ctx context.Context, id string) error
}

// MembershipRepository defines data access operations for memberships
type MembershipRepository interface {
	// Create inserts a membership row
	Create(ctx context.Context, m *models.Membership) error

	// Get retrieves the membership for a (workspace, user) pair
	Get(ctx context.Context, workspaceID, userID string) (*models.Membership, error)

	// ListByWorkspace lists all memberships of a workspace
	ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Membership, error)

	// Update persists role, permissions and joined_at
	Update(ctx context.Context, m *models.Membership) error

	// Delete hard-deletes the membership row (leave/decline/remove)
	Delete(ctx context.Context, workspaceID, userID string) error
}
