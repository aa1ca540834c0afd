package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

const folderColumns = `id, workspace_id, parent_id, name, description, route, level, ord,
	created_by, updated_by, created_at, updated_at, deleted_at, deleted_by`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanFolder(row interface{ Scan(...any) error }) (*models.Folder, error) {
	var f models.Folder
	err := row.Scan(
		&f.ID,
		&f.WorkspaceID,
		&f.ParentID,
		&f.Name,
		&f.Description,
		&f.Route,
		&f.Level,
		&f.Order,
		&f.CreatedBy,
		&f.UpdatedBy,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.DeletedAt,
		&f.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// prefixFolderColumns qualifies folderColumns with a table alias.
func prefixFolderColumns(alias string) string {
	cols := strings.Split(folderColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// Create inserts a folder with its precomputed route, level and order
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, parent_id, name, description, route, level, ord,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.WorkspaceID,
		folder.ParentID,
		folder.Name,
		folder.Description,
		folder.Route,
		folder.Level,
		folder.Order,
		folder.CreatedBy,
		folder.CreatedAt,
		folder.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a live folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// GetByIDIncludingDeleted retrieves a folder regardless of soft-delete state
func (r *PostgresFolderRepository) GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND workspace_id = $2
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// GetChildByName finds a live direct child by name. Returns (nil, nil) when absent.
func (r *PostgresFolderRepository) GetChildByName(ctx context.Context, workspaceID string, parentID *string, name string) (*models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE workspace_id = $1 AND name = $2 AND parent_id IS NULL AND deleted_at IS NULL
		`, folderColumns, r.tables.Folders)
		args = append(args, workspaceID, name)
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE workspace_id = $1 AND name = $2 AND parent_id = $3 AND deleted_at IS NULL
		`, folderColumns, r.tables.Folders)
		args = append(args, workspaceID, name, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("get folder by name and parent: %w", err)
	}

	return folder, nil
}

// Update persists mutable folder fields
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, description = $3, route = $4, level = $5, ord = $6,
			updated_by = $7, updated_at = $8
		WHERE id = $9 AND workspace_id = $10
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.Description,
		folder.Route,
		folder.Level,
		folder.Order,
		folder.UpdatedBy,
		folder.UpdatedAt,
		folder.ID,
		folder.WorkspaceID,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists live direct children ordered by ord
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, workspaceID string, parentID *string) ([]models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE workspace_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
			ORDER BY ord ASC
		`, folderColumns, r.tables.Folders)
		args = append(args, workspaceID)
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE workspace_id = $1 AND parent_id = $2 AND deleted_at IS NULL
			ORDER BY ord ASC
		`, folderColumns, r.tables.Folders)
		args = append(args, workspaceID, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// ListLive lists folders that are neither deleted nor under a deleted ancestor.
// Folder deletion does not cascade, so a live row can sit below a deleted
// parent. Visibility walks the parent_id chain from live roots; routes are
// not a reliable subtree key because a live folder may reuse a soft-deleted
// namesake's route.
func (r *PostgresFolderRepository) ListLive(ctx context.Context, workspaceID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE visible AS (
			SELECT %s FROM %s f
			WHERE f.workspace_id = $1 AND f.parent_id IS NULL AND f.deleted_at IS NULL
			UNION ALL
			SELECT %s FROM %s f
			JOIN visible v ON f.parent_id = v.id
			WHERE f.deleted_at IS NULL
		)
		SELECT %s FROM visible
		ORDER BY level ASC, ord ASC
	`, prefixFolderColumns("f"), r.tables.Folders,
		prefixFolderColumns("f"), r.tables.Folders,
		folderColumns)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list live folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// NextOrder returns max(ord)+1 among siblings, 1 when there are none
func (r *PostgresFolderRepository) NextOrder(ctx context.Context, workspaceID string, parentID *string) (int, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT COALESCE(MAX(ord), 0) + 1 FROM %s
			WHERE workspace_id = $1 AND parent_id IS NULL
		`, r.tables.Folders)
		args = append(args, workspaceID)
	} else {
		query = fmt.Sprintf(`
			SELECT COALESCE(MAX(ord), 0) + 1 FROM %s
			WHERE workspace_id = $1 AND parent_id = $2
		`, r.tables.Folders)
		args = append(args, workspaceID, *parentID)
	}

	var next int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("next folder order: %w", err)
	}

	return next, nil
}

// CascadeRoute rewrites descendant routes after a rename or move. One bounded
// statement over the subtree; nothing here re-triggers the caller's logic.
// Descendants are resolved through the parent_id chain, never by route prefix:
// a soft-deleted namesake may still carry the same route and must not move.
func (r *PostgresFolderRepository) CascadeRoute(ctx context.Context, workspaceID, folderID, oldRoute, newRoute string, levelDelta int) error {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %s WHERE workspace_id = $4 AND parent_id = $5
			UNION ALL
			SELECT f.id FROM %s f JOIN subtree s ON f.parent_id = s.id
		)
		UPDATE %s
		SET route = $1 || substr(route, $2), level = level + $3
		WHERE id IN (SELECT id FROM subtree)
	`, r.tables.Folders, r.tables.Folders, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		newRoute,
		len(oldRoute)+1,
		levelDelta,
		workspaceID,
		folderID,
	)
	if err != nil {
		return fmt.Errorf("cascade folder routes: %w", err)
	}

	return nil
}

// UpdateOrders bulk-applies new ord values
func (r *PostgresFolderRepository) UpdateOrders(ctx context.Context, workspaceID string, orders []repositories.FolderOrder) error {
	query := fmt.Sprintf(`
		UPDATE %s SET ord = $1, updated_at = $2 WHERE id = $3 AND workspace_id = $4
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	now := time.Now()
	for _, o := range orders {
		result, err := executor.Exec(ctx, query, o.Order, now, o.ID, workspaceID)
		if err != nil {
			return fmt.Errorf("update folder order: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("folder %s: %w", o.ID, domain.ErrNotFound)
		}
	}

	return nil
}

// SoftDelete stamps deleted_at/deleted_by on one folder row. Children are
// intentionally untouched; visibility filtering hides them (see ListLive).
func (r *PostgresFolderRepository) SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, deleted_by = $2
		WHERE id = $3 AND workspace_id = $4 AND deleted_at IS NULL
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, deletedBy, id, workspaceID)
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SoftDeleteAllByWorkspace marks every live folder of the workspace deleted
func (r *PostgresFolderRepository) SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, deleted_by = $2
		WHERE workspace_id = $3 AND deleted_at IS NULL
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, at, deletedBy, workspaceID); err != nil {
		return fmt.Errorf("soft delete workspace folders: %w", err)
	}

	return nil
}

// Restore clears the soft-delete marker
func (r *PostgresFolderRepository) Restore(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, deleted_by = NULL
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NOT NULL
		RETURNING %s
	`, r.tables.Folders, folderColumns)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("restore folder: %w", err)
	}

	return folder, nil
}

// HardDeleteSubtree removes the folder and every descendant row. The subtree
// is anchored to the folder's ID via the parent_id chain so a namesake sharing
// the route survives.
func (r *PostgresFolderRepository) HardDeleteSubtree(ctx context.Context, workspaceID, id string) error {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %s WHERE workspace_id = $1 AND id = $2
			UNION ALL
			SELECT f.id FROM %s f JOIN subtree s ON f.parent_id = s.id
		)
		DELETE FROM %s
		WHERE id IN (SELECT id FROM subtree)
	`, r.tables.Folders, r.tables.Folders, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, workspaceID, id); err != nil {
		return fmt.Errorf("hard delete folder subtree: %w", err)
	}

	return nil
}
