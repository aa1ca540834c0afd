package repositories

import (
	"context"

	"depot/internal/domain/models"
)

// PlacementOrder is one entry of a bulk placement reorder within a folder.
type PlacementOrder struct {
	FileID string
	Order  int
}

// PlacementRepository defines data access operations for file placements
type PlacementRepository interface {
	// Create inserts a placement. A duplicate (file, folder) pair surfaces as
	// a conflict from the unique constraint.
	Create(ctx context.Context, p *models.Placement) error

	// Delete hard-deletes the join row
	Delete(ctx context.Context, fileID, folderID string) error

	// NextOrder returns max(ord)+1 within the folder, 1 when empty
	NextOrder(ctx context.Context, folderID string) (int, error)

	// ListByFolder lists placements of a folder ordered by ord
	ListByFolder(ctx context.Context, folderID string) ([]models.Placement, error)

	// ListByFile lists the placements of a file across folders
	ListByFile(ctx context.Context, fileID string) ([]models.Placement, error)

	// UpdateOrders bulk-applies new ord values within one folder
	UpdateOrders(ctx context.Context, folderID string, orders []PlacementOrder) error
}

// TagRepository defines data access operations for tags and markings
type TagRepository interface {
	// Create inserts a tag
	Create(ctx context.Context, tag *models.Tag) error

	// GetByID retrieves a tag by ID
	GetByID(ctx context.Context, id string) (*models.Tag, error)

	// List lists all tags ordered by name
	List(ctx context.Context) ([]models.Tag, error)

	// Delete removes a tag and, via cascade, its markings
	Delete(ctx context.Context, id string) error

	// Mark inserts a (file, tag) marking; duplicates surface as conflicts
	Mark(ctx context.Context, m *models.Marking) error

	// Unmark hard-deletes a marking
	Unmark(ctx context.Context, fileID, tagID string) error

	// ListTagsForFile lists the tags attached to a file
	ListTagsForFile(ctx context.Context, fileID string) ([]models.Tag, error)
}
