package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

const tagColumns = `id, name, slug, color, description, created_by, created_at`

// PostgresTagRepository implements the TagRepository interface
type PostgresTagRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTagRepository creates a new tag repository
func NewTagRepository(config *RepositoryConfig) repositories.TagRepository {
	return &PostgresTagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanTag(row interface{ Scan(...any) error }) (*models.Tag, error) {
	var t models.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.Description, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a tag
func (r *PostgresTagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, slug, color, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		tag.ID,
		tag.Name,
		tag.Slug,
		tag.Color,
		tag.Description,
		tag.CreatedBy,
		tag.CreatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("tag %q already exists", tag.Name),
				ResourceType: "tag",
			}
		}
		return fmt.Errorf("create tag: %w", err)
	}

	return nil
}

// GetByID retrieves a tag by ID
func (r *PostgresTagRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tagColumns, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	tag, err := scanTag(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	return tag, nil
}

// List lists all tags ordered by name
func (r *PostgresTagRepository) List(ctx context.Context) ([]models.Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY name ASC`, tagColumns, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// Delete removes a tag; markings cascade
func (r *PostgresTagRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Mark inserts a (file, tag) marking
func (r *PostgresTagRepository) Mark(ctx context.Context, m *models.Marking) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, tag_id, created_at)
		VALUES ($1, $2, $3)
	`, r.tables.Markings)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, m.FileID, m.TagID, m.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "file already carries this tag",
				ResourceType: "marking",
			}
		}
		return fmt.Errorf("create marking: %w", err)
	}

	return nil
}

// Unmark hard-deletes a marking
func (r *PostgresTagRepository) Unmark(ctx context.Context, fileID, tagID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE file_id = $1 AND tag_id = $2
	`, r.tables.Markings)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, fileID, tagID)
	if err != nil {
		return fmt.Errorf("delete marking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("marking: %w", domain.ErrNotFound)
	}

	return nil
}

// ListTagsForFile lists the tags attached to a file
func (r *PostgresTagRepository) ListTagsForFile(ctx context.Context, fileID string) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.name, t.slug, t.color, t.description, t.created_by, t.created_at
		FROM %s t
		JOIN %s m ON m.tag_id = t.id
		WHERE m.file_id = $1
		ORDER BY t.name ASC
	`, r.tables.Tags, r.tables.Markings)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("list tags for file: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}
