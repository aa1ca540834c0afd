package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

const workspaceColumns = `id, name, slug, description, settings, active, owner_id,
	created_at, updated_at, updated_by, deactivated_at, deactivated_by, deleted_at, deleted_by`

// PostgresWorkspaceRepository implements the WorkspaceRepository interface
type PostgresWorkspaceRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(config *RepositoryConfig) repositories.WorkspaceRepository {
	return &PostgresWorkspaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanWorkspace(row interface{ Scan(...any) error }) (*models.Workspace, error) {
	var ws models.Workspace
	err := row.Scan(
		&ws.ID,
		&ws.Name,
		&ws.Slug,
		&ws.Description,
		&ws.Settings,
		&ws.Active,
		&ws.OwnerID,
		&ws.CreatedAt,
		&ws.UpdatedAt,
		&ws.UpdatedBy,
		&ws.DeactivatedAt,
		&ws.DeactivatedBy,
		&ws.DeletedAt,
		&ws.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Create creates a new workspace
func (r *PostgresWorkspaceRepository) Create(ctx context.Context, ws *models.Workspace) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, slug, description, settings, active, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		ws.ID,
		ws.Name,
		ws.Slug,
		ws.Description,
		ws.Settings,
		ws.Active,
		ws.OwnerID,
		ws.CreatedAt,
		ws.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("workspace slug %q already exists", ws.Slug),
				ResourceType: "workspace",
			}
		}
		return fmt.Errorf("create workspace: %w", err)
	}

	return nil
}

// GetByID retrieves a live workspace by ID
func (r *PostgresWorkspaceRepository) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, workspaceColumns, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	ws, err := scanWorkspace(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	return ws, nil
}

// GetByIDIncludingDeleted retrieves a workspace regardless of soft-delete state
func (r *PostgresWorkspaceRepository) GetByIDIncludingDeleted(ctx context.Context, id string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, workspaceColumns, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	ws, err := scanWorkspace(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	return ws, nil
}

// GetBySlug retrieves a live workspace by slug
func (r *PostgresWorkspaceRepository) GetBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE slug = $1 AND deleted_at IS NULL
	`, workspaceColumns, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	ws, err := scanWorkspace(executor.QueryRow(ctx, query, slug))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %q: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace by slug: %w", err)
	}

	return ws, nil
}

// ListForUser retrieves workspaces the user owns or is a member of
func (r *PostgresWorkspaceRepository) ListForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT w.id, w.name, w.slug, w.description, w.settings, w.active, w.owner_id,
			w.created_at, w.updated_at, w.updated_by, w.deactivated_at, w.deactivated_by, w.deleted_at, w.deleted_by
		FROM %s w
		LEFT JOIN %s m ON m.workspace_id = w.id
		WHERE w.deleted_at IS NULL AND (w.owner_id = $1 OR m.user_id = $1)
		ORDER BY w.updated_at DESC
	`, r.tables.Workspaces, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := []models.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, *ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}

	return workspaces, nil
}

// Update persists mutable workspace fields
func (r *PostgresWorkspaceRepository) Update(ctx context.Context, ws *models.Workspace) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, settings = $3, active = $4,
			updated_at = $5, updated_by = $6, deactivated_at = $7, deactivated_by = $8
		WHERE id = $9 AND deleted_at IS NULL
	`, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		ws.Name,
		ws.Description,
		ws.Settings,
		ws.Active,
		ws.UpdatedAt,
		ws.UpdatedBy,
		ws.DeactivatedAt,
		ws.DeactivatedBy,
		ws.ID,
	)

	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", ws.ID, domain.ErrNotFound)
	}

	return nil
}

// SoftDelete stamps deleted_at/deleted_by on the workspace row
func (r *PostgresWorkspaceRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, deleted_by = $2
		WHERE id = $3 AND deleted_at IS NULL
	`, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, deletedBy, id)
	if err != nil {
		return fmt.Errorf("soft delete workspace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Restore clears the soft-delete marker
func (r *PostgresWorkspaceRepository) Restore(ctx context.Context, id string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, deleted_by = NULL
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING %s
	`, r.tables.Workspaces, workspaceColumns)

	executor := GetExecutor(ctx, r.pool)
	ws, err := scanWorkspace(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("restore workspace: %w", err)
	}

	return ws, nil
}

// HardDelete removes the workspace row
func (r *PostgresWorkspaceRepository) HardDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Workspaces)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("hard delete workspace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
