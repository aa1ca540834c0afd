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

const fileColumns = `id, workspace_id, name, description, mime_type, extension, locked, metadata,
	created_by, updated_by, created_at, updated_at, deleted_at, deleted_by`

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	var f models.File
	err := row.Scan(
		&f.ID,
		&f.WorkspaceID,
		&f.Name,
		&f.Description,
		&f.MimeType,
		&f.Extension,
		&f.Locked,
		&f.Metadata,
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

// Create inserts a file row
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, name, description, mime_type, extension, locked, metadata,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		file.ID,
		file.WorkspaceID,
		file.Name,
		file.Description,
		file.MimeType,
		file.Extension,
		file.Locked,
		file.Metadata,
		file.CreatedBy,
		file.CreatedAt,
		file.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a live file by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id, workspaceID string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// GetByIDIncludingDeleted retrieves a file regardless of soft-delete state
func (r *PostgresFileRepository) GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND workspace_id = $2
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// Update persists mutable file fields
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, mime_type = $3, extension = $4, locked = $5,
			metadata = $6, updated_by = $7, updated_at = $8
		WHERE id = $9 AND workspace_id = $10
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		file.Name,
		file.Description,
		file.MimeType,
		file.Extension,
		file.Locked,
		file.Metadata,
		file.UpdatedBy,
		file.UpdatedAt,
		file.ID,
		file.WorkspaceID,
	)

	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// List lists live files of a workspace ordered by name
func (r *PostgresFileRepository) List(ctx context.Context, workspaceID string) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// SoftDelete stamps deleted_at/deleted_by on one file row
func (r *PostgresFileRepository) SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, deleted_by = $2
		WHERE id = $3 AND workspace_id = $4 AND deleted_at IS NULL
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, deletedBy, id, workspaceID)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SoftDeleteAllByWorkspace marks every live file of the workspace deleted
func (r *PostgresFileRepository) SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, deleted_by = $2
		WHERE workspace_id = $3 AND deleted_at IS NULL
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, at, deletedBy, workspaceID); err != nil {
		return fmt.Errorf("soft delete workspace files: %w", err)
	}

	return nil
}

// Restore clears the soft-delete marker. Versions and placements were never
// touched by the soft delete, so restore is a pure un-hide.
func (r *PostgresFileRepository) Restore(ctx context.Context, id, workspaceID string) (*models.File, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, deleted_by = NULL
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NOT NULL
		RETURNING %s
	`, r.tables.Files, fileColumns)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("restore file: %w", err)
	}

	return file, nil
}

// HardDelete removes the file row; child rows cascade
func (r *PostgresFileRepository) HardDelete(ctx context.Context, id, workspaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND workspace_id = $2`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, workspaceID)
	if err != nil {
		return fmt.Errorf("hard delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
