package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables and the constraints the services rely on.
//
// The unique constraints are load-bearing, not belt-and-braces: the services
// compute order/number as max+1 inside a transaction, and under concurrent
// writers these constraints are the serialization point that turns a race
// into a clean conflict. The ord constraints are DEFERRABLE so bulk reorders
// can swap values freely and be validated once at commit.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id             TEXT PRIMARY KEY,
				name           TEXT NOT NULL,
				slug           TEXT NOT NULL UNIQUE,
				description    TEXT NOT NULL DEFAULT '',
				settings       JSONB NOT NULL DEFAULT '{}',
				active         BOOLEAN NOT NULL DEFAULT TRUE,
				owner_id       TEXT NOT NULL,
				created_at     TIMESTAMPTZ NOT NULL,
				updated_at     TIMESTAMPTZ NOT NULL,
				updated_by     TEXT,
				deactivated_at TIMESTAMPTZ,
				deactivated_by TEXT,
				deleted_at     TIMESTAMPTZ,
				deleted_by     TEXT
			)`, tables.Workspaces),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				user_id      TEXT NOT NULL,
				role         TEXT NOT NULL,
				permissions  JSONB NOT NULL DEFAULT '{}',
				invited_at   TIMESTAMPTZ,
				joined_at    TIMESTAMPTZ,
				created_at   TIMESTAMPTZ NOT NULL,
				updated_at   TIMESTAMPTZ NOT NULL,
				UNIQUE (workspace_id, user_id)
			)`, tables.Memberships, tables.Workspaces),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				parent_id    TEXT REFERENCES %s(id),
				name         TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				route        TEXT NOT NULL,
				level        INTEGER NOT NULL,
				ord          INTEGER NOT NULL,
				created_by   TEXT NOT NULL,
				updated_by   TEXT,
				created_at   TIMESTAMPTZ NOT NULL,
				updated_at   TIMESTAMPTZ NOT NULL,
				deleted_at   TIMESTAMPTZ,
				deleted_by   TEXT,
				UNIQUE NULLS NOT DISTINCT (workspace_id, parent_id, ord)
					DEFERRABLE INITIALLY DEFERRED
			)`, tables.Folders, tables.Workspaces, tables.Folders),

		// Sibling names are unique among live rows only; a soft-deleted folder
		// must not block re-creating one with the same name.
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_live_name_idx
				ON %s (workspace_id, parent_id, name) NULLS NOT DISTINCT
				WHERE deleted_at IS NULL`, tables.Folders, tables.Folders),

		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_route_idx
				ON %s (workspace_id, route text_pattern_ops)`, tables.Folders, tables.Folders),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id           TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				name         TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				mime_type    TEXT NOT NULL,
				extension    TEXT NOT NULL,
				locked       BOOLEAN NOT NULL DEFAULT FALSE,
				metadata     JSONB NOT NULL DEFAULT '{}',
				created_by   TEXT NOT NULL,
				updated_by   TEXT,
				created_at   TIMESTAMPTZ NOT NULL,
				updated_at   TIMESTAMPTZ NOT NULL,
				deleted_at   TIMESTAMPTZ,
				deleted_by   TEXT
			)`, tables.Files, tables.Workspaces),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         TEXT PRIMARY KEY,
				file_id    TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				number     INTEGER NOT NULL,
				hash       TEXT NOT NULL,
				disk       TEXT NOT NULL,
				path       TEXT NOT NULL,
				size       BIGINT NOT NULL,
				downloads  BIGINT NOT NULL DEFAULT 0,
				metadata   JSONB NOT NULL DEFAULT '{}',
				created_by TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				UNIQUE (file_id, number)
			)`, tables.Versions, tables.Files),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				file_id    TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				folder_id  TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				ord        INTEGER NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (file_id, folder_id),
				UNIQUE (folder_id, ord) DEFERRABLE INITIALLY DEFERRED
			)`, tables.Placements, tables.Files, tables.Folders),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL UNIQUE,
				slug        TEXT NOT NULL UNIQUE,
				color       TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				created_by  TEXT NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL
			)`, tables.Tags),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				file_id    TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				tag_id     TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (file_id, tag_id)
			)`, tables.Markings, tables.Files, tables.Tags),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
