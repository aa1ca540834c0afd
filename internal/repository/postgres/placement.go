package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// PostgresPlacementRepository implements the PlacementRepository interface
type PostgresPlacementRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPlacementRepository creates a new placement repository
func NewPlacementRepository(config *RepositoryConfig) repositories.PlacementRepository {
	return &PostgresPlacementRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a placement. The (file_id, folder_id) primary key enforces
// the at-most-once rule even if a caller slips past the UI dedup.
func (r *PostgresPlacementRepository) Create(ctx context.Context, p *models.Placement) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, folder_id, ord, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.Placements)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, p.FileID, p.FolderID, p.Order, p.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "file is already placed in this folder",
				ResourceType: "placement",
			}
		}
		return fmt.Errorf("create placement: %w", err)
	}

	return nil
}

// Delete hard-deletes the join row
func (r *PostgresPlacementRepository) Delete(ctx context.Context, fileID, folderID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE file_id = $1 AND folder_id = $2
	`, r.tables.Placements)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, fileID, folderID)
	if err != nil {
		return fmt.Errorf("delete placement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("placement: %w", domain.ErrNotFound)
	}

	return nil
}

// NextOrder returns max(ord)+1 within the folder, 1 when empty
func (r *PostgresPlacementRepository) NextOrder(ctx context.Context, folderID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(ord), 0) + 1 FROM %s WHERE folder_id = $1
	`, r.tables.Placements)

	var next int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, folderID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next placement order: %w", err)
	}

	return next, nil
}

// ListByFolder lists placements of a folder ordered by ord
func (r *PostgresPlacementRepository) ListByFolder(ctx context.Context, folderID string) ([]models.Placement, error) {
	query := fmt.Sprintf(`
		SELECT file_id, folder_id, ord, created_at FROM %s
		WHERE folder_id = $1
		ORDER BY ord ASC
	`, r.tables.Placements)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	placements := []models.Placement{}
	for rows.Next() {
		var p models.Placement
		if err := rows.Scan(&p.FileID, &p.FolderID, &p.Order, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}

	return placements, nil
}

// ListByFile lists the placements of a file across folders
func (r *PostgresPlacementRepository) ListByFile(ctx context.Context, fileID string) ([]models.Placement, error) {
	query := fmt.Sprintf(`
		SELECT file_id, folder_id, ord, created_at FROM %s
		WHERE file_id = $1
		ORDER BY created_at ASC
	`, r.tables.Placements)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list placements by file: %w", err)
	}
	defer rows.Close()

	placements := []models.Placement{}
	for rows.Next() {
		var p models.Placement
		if err := rows.Scan(&p.FileID, &p.FolderID, &p.Order, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}

	return placements, nil
}

// UpdateOrders bulk-applies new ord values within one folder
func (r *PostgresPlacementRepository) UpdateOrders(ctx context.Context, folderID string, orders []repositories.PlacementOrder) error {
	query := fmt.Sprintf(`
		UPDATE %s SET ord = $1 WHERE folder_id = $2 AND file_id = $3
	`, r.tables.Placements)

	executor := GetExecutor(ctx, r.pool)
	for _, o := range orders {
		result, err := executor.Exec(ctx, query, o.Order, folderID, o.FileID)
		if err != nil {
			return fmt.Errorf("update placement order: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("placement for file %s: %w", o.FileID, domain.ErrNotFound)
		}
	}

	return nil
}
