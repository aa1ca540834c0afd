package repositories

import (
	"context"
	"time"

	"depot/internal/domain/models"
)

// FolderOrder is one entry of a bulk reorder.
type FolderOrder struct {
	ID    string
	Order int
}

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create inserts a folder with its precomputed route, level and order
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a live folder by ID within a workspace
	GetByID(ctx context.Context, id, workspaceID string) (*models.Folder, error)

	// GetByIDIncludingDeleted retrieves a folder regardless of soft-delete state
	GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.Folder, error)

	// GetChildByName finds a live direct child by name. Returns (nil, nil)
	// when absent; absence is not an error here.
	GetChildByName(ctx context.Context, workspaceID string, parentID *string, name string) (*models.Folder, error)

	// Update persists parent/name/description/route/level/order and audit fields
	Update(ctx context.Context, folder *models.Folder) error

	// ListChildren lists live direct children ordered by ord. Soft-deleted
	// rows are excluded by definition; rows under a deleted ancestor cannot
	// appear because children are fetched from a live parent.
	ListChildren(ctx context.Context, workspaceID string, parentID *string) ([]models.Folder, error)

	// ListLive lists every folder of the workspace that is neither deleted
	// nor under a soft-deleted ancestor, walking the parent_id chain from
	// live roots.
	ListLive(ctx context.Context, workspaceID string) ([]models.Folder, error)

	// NextOrder returns max(ord)+1 among siblings, 1 when there are none.
	// This is an optimization only; the deferred unique constraint on
	// (workspace, parent, ord) is the real invariant under concurrency.
	NextOrder(ctx context.Context, workspaceID string, parentID *string) (int, error)

	// CascadeRoute rewrites route prefixes and shifts levels for every
	// descendant of the folder whose route changed from oldRoute to newRoute.
	// Descendants are resolved via the parent_id chain from folderID; routes
	// alone cannot identify a subtree because soft-deleted namesakes may
	// share them. One bounded statement, no per-row hooks re-firing.
	CascadeRoute(ctx context.Context, workspaceID, folderID, oldRoute, newRoute string, levelDelta int) error

	// UpdateOrders bulk-applies new ord values. Callers wrap it in a tx so the
	// deferred constraint validates the permutation at commit.
	UpdateOrders(ctx context.Context, workspaceID string, orders []FolderOrder) error

	// SoftDelete stamps deleted_at/deleted_by on one folder row (no cascade)
	SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error

	// SoftDeleteAllByWorkspace marks every live folder of the workspace
	// deleted. Used only by the workspace deletion cascade.
	SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error

	// Restore clears the soft-delete marker
	Restore(ctx context.Context, id, workspaceID string) (*models.Folder, error)

	// HardDeleteSubtree removes the folder and every descendant row reached
	// through the parent_id chain. Placements referencing deleted folders go
	// via ON DELETE CASCADE.
	HardDeleteSubtree(ctx context.Context, workspaceID, id string) error
}
