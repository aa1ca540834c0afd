package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

const versionColumns = `id, file_id, number, hash, disk, path, size, downloads, metadata, created_by, created_at`

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanVersion(row interface{ Scan(...any) error }) (*models.Version, error) {
	var v models.Version
	err := row.Scan(
		&v.ID,
		&v.FileID,
		&v.Number,
		&v.Hash,
		&v.Disk,
		&v.Path,
		&v.Size,
		&v.Downloads,
		&v.Metadata,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a version row. The (file_id, number) constraint is the
// serialization point when two replacements race on the same file.
func (r *PostgresVersionRepository) Create(ctx context.Context, v *models.Version) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, file_id, number, hash, disk, path, size, metadata, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		v.ID,
		v.FileID,
		v.Number,
		v.Hash,
		v.Disk,
		v.Path,
		v.Size,
		v.Metadata,
		v.CreatedBy,
		v.CreatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %d already exists for this file", v.Number),
				ResourceType: "version",
			}
		}
		return fmt.Errorf("create version: %w", err)
	}

	return nil
}

// Current returns the version with the maximum number for the file.
// Number, not created_at: disks may disagree on clocks, the sequence never does.
func (r *PostgresVersionRepository) Current(ctx context.Context, fileID string) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE file_id = $1
		ORDER BY number DESC
		LIMIT 1
	`, versionColumns, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, fileID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("current version of file %s: %w", fileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get current version: %w", err)
	}

	return v, nil
}

// GetByID retrieves one version of a file
func (r *PostgresVersionRepository) GetByID(ctx context.Context, id, fileID string) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND file_id = $2
	`, versionColumns, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, id, fileID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	return v, nil
}

// ListByFile lists versions ordered by number ASC
func (r *PostgresVersionRepository) ListByFile(ctx context.Context, fileID string) ([]models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE file_id = $1
		ORDER BY number ASC
	`, versionColumns, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []models.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return versions, nil
}

// IncrementDownloads atomically bumps the download counter
func (r *PostgresVersionRepository) IncrementDownloads(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET downloads = downloads + 1 WHERE id = $1
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
