package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

const membershipColumns = `id, workspace_id, user_id, role, permissions, invited_at, joined_at, created_at, updated_at`

// PostgresMembershipRepository implements the MembershipRepository interface
type PostgresMembershipRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(config *RepositoryConfig) repositories.MembershipRepository {
	return &PostgresMembershipRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanMembership(row interface{ Scan(...any) error }) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(
		&m.ID,
		&m.WorkspaceID,
		&m.UserID,
		&m.Role,
		&m.Permissions,
		&m.InvitedAt,
		&m.JoinedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a membership row
func (r *PostgresMembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, user_id, role, permissions, invited_at, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		m.ID,
		m.WorkspaceID,
		m.UserID,
		m.Role,
		m.Permissions,
		m.InvitedAt,
		m.JoinedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "user is already a member of this workspace",
				ResourceType: "membership",
			}
		}
		return fmt.Errorf("create membership: %w", err)
	}

	return nil
}

// Get retrieves the membership for a (workspace, user) pair
func (r *PostgresMembershipRepository) Get(ctx context.Context, workspaceID, userID string) (*models.Membership, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1 AND user_id = $2
	`, membershipColumns, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	m, err := scanMembership(executor.QueryRow(ctx, query, workspaceID, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("membership: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return m, nil
}

// ListByWorkspace lists all memberships of a workspace
func (r *PostgresMembershipRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Membership, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1
		ORDER BY created_at ASC
	`, membershipColumns, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// Update persists role, permissions and joined_at
func (r *PostgresMembershipRepository) Update(ctx context.Context, m *models.Membership) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET role = $1, permissions = $2, joined_at = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		m.Role,
		m.Permissions,
		m.JoinedAt,
		m.UpdatedAt,
		m.ID,
	)

	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership %s: %w", m.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete hard-deletes the membership row
func (r *PostgresMembershipRepository) Delete(ctx context.Context, workspaceID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE workspace_id = $1 AND user_id = $2
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership: %w", domain.ErrNotFound)
	}

	return nil
}
