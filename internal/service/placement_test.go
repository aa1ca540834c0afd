package service

import (
	"context"
	"errors"
	"testing"

	"depot/internal/domain"
	"depot/internal/domain/repositories"
)

func TestPlaceOrdering(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")
	a := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("a"))
	b := env.mustUpload(t, owner, ws.ID, "b.txt", []byte("b"))

	pa, err := env.placements.Place(ctx, owner, ws.ID, a.ID, folder.ID)
	if err != nil {
		t.Fatalf("place a: %v", err)
	}
	pb, err := env.placements.Place(ctx, owner, ws.ID, b.ID, folder.ID)
	if err != nil {
		t.Fatalf("place b: %v", err)
	}
	if pa.Order != 1 || pb.Order != 2 {
		t.Errorf("orders = %d,%d, want 1,2", pa.Order, pb.Order)
	}

	// A file appears in a folder at most once.
	if _, err := env.placements.Place(ctx, owner, ws.ID, a.ID, folder.ID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate placement: got %v, want conflict", err)
	}

	// Removing and re-placing appends; gaps are never compacted.
	if err := env.placements.Unplace(ctx, owner, ws.ID, a.ID, folder.ID); err != nil {
		t.Fatalf("unplace: %v", err)
	}
	pa2, err := env.placements.Place(ctx, owner, ws.ID, a.ID, folder.ID)
	if err != nil {
		t.Fatalf("re-place: %v", err)
	}
	if pa2.Order != 3 {
		t.Errorf("re-place order = %d, want 3", pa2.Order)
	}
}

func TestPlaceRequiresLiveEndpoints(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")
	file := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("a"))

	if err := env.files.Delete(ctx, owner, ws.ID, file.ID); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if _, err := env.placements.Place(ctx, owner, ws.ID, file.ID, folder.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("place deleted file: got %v, want not found", err)
	}

	other := env.mustUpload(t, owner, ws.ID, "b.txt", []byte("b"))
	if err := env.folders.Delete(ctx, owner, ws.ID, folder.ID); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	if _, err := env.placements.Place(ctx, owner, ws.ID, other.ID, folder.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("place into deleted folder: got %v, want not found", err)
	}
}

func TestReorderPlacements(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")
	a := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("a"))
	b := env.mustUpload(t, owner, ws.ID, "b.txt", []byte("b"))
	if _, err := env.placements.Place(ctx, owner, ws.ID, a.ID, folder.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.placements.Place(ctx, owner, ws.ID, b.ID, folder.ID); err != nil {
		t.Fatal(err)
	}

	err := env.placements.Reorder(ctx, owner, ws.ID, folder.ID, []repositories.PlacementOrder{
		{FileID: a.ID, Order: 2},
		{FileID: b.ID, Order: 1},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	rows, _ := env.placementRepo.ListByFolder(ctx, folder.ID)
	if rows[0].FileID != b.ID || rows[1].FileID != a.ID {
		t.Errorf("order after reorder = %s,%s, want b,a", rows[0].FileID, rows[1].FileID)
	}
}

func TestFolderContents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")
	sub := env.mustFolder(t, owner, ws.ID, &folder.ID, "Sub")
	a := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("a"))
	b := env.mustUpload(t, owner, ws.ID, "b.txt", []byte("b"))
	if _, err := env.placements.Place(ctx, owner, ws.ID, a.ID, folder.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.placements.Place(ctx, owner, ws.ID, b.ID, folder.ID); err != nil {
		t.Fatal(err)
	}

	// Soft-deleted files stay placed but are hidden from contents.
	if err := env.files.Delete(ctx, owner, ws.ID, a.ID); err != nil {
		t.Fatal(err)
	}

	contents, err := env.placements.Contents(ctx, owner, ws.ID, folder.ID)
	if err != nil {
		t.Fatalf("contents: %v", err)
	}
	if len(contents.Folders) != 1 || contents.Folders[0].ID != sub.ID {
		t.Errorf("subfolders = %+v, want just %s", contents.Folders, sub.ID)
	}
	if len(contents.Files) != 1 || contents.Files[0].ID != b.ID {
		t.Errorf("files = %+v, want just %s", contents.Files, b.ID)
	}
}

func TestTagsAndMarkings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")
	file := env.mustUpload(t, owner, ws.ID, "a.txt", []byte("a"))

	tag, err := env.placements.CreateTag(ctx, owner, CreateTagRequest{Name: "Urgent Review"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if tag.Slug != "urgent-review" {
		t.Errorf("slug = %q, want urgent-review", tag.Slug)
	}

	if _, err := env.placements.CreateTag(ctx, owner, CreateTagRequest{Name: "Urgent Review"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate tag: got %v, want conflict", err)
	}

	if err := env.placements.Mark(ctx, owner, ws.ID, file.ID, tag.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	// Markings are a set, not a list.
	if err := env.placements.Mark(ctx, owner, ws.ID, file.ID, tag.ID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("double mark: got %v, want conflict", err)
	}

	tags, err := env.placements.TagsForFile(ctx, owner, ws.ID, file.ID)
	if err != nil {
		t.Fatalf("tags for file: %v", err)
	}
	if len(tags) != 1 || tags[0].ID != tag.ID {
		t.Errorf("tags = %+v, want just %s", tags, tag.ID)
	}

	if err := env.placements.Unmark(ctx, owner, ws.ID, file.ID, tag.ID); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	tags, _ = env.placements.TagsForFile(ctx, owner, ws.ID, file.ID)
	if len(tags) != 0 {
		t.Errorf("tags after unmark = %d, want 0", len(tags))
	}
}
