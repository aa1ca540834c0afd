package service

import (
	"context"
	"errors"
	"testing"

	"depot/internal/domain"
	"depot/internal/domain/repositories"
)

func TestCreateFolderRoutes(t *testing.T) {
	env := newTestEnv()
	ws := env.mustWorkspace(t, owner, "Team")

	root := env.mustFolder(t, owner, ws.ID, nil, "Invitations")
	if root.Route != "Invitations" || root.Level != 0 || root.Order != 1 {
		t.Errorf("root = route %q level %d order %d, want Invitations/0/1", root.Route, root.Level, root.Order)
	}

	sibling := env.mustFolder(t, owner, ws.ID, nil, "Archive")
	if sibling.Order != 2 {
		t.Errorf("second root order = %d, want 2", sibling.Order)
	}

	child := env.mustFolder(t, owner, ws.ID, &root.ID, "2024")
	if child.Route != "Invitations/2024" || child.Level != 1 || child.Order != 1 {
		t.Errorf("child = route %q level %d order %d, want Invitations/2024/1/1", child.Route, child.Level, child.Order)
	}
}

func TestFolderNameRules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")
	root := env.mustFolder(t, owner, ws.ID, nil, "Docs")

	// Slash would corrupt descendant routes.
	if _, err := env.folders.Create(ctx, owner, ws.ID, CreateFolderRequest{Name: "a/b"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("slash in name: got %v, want validation error", err)
	}

	// Duplicate live sibling name conflicts.
	if _, err := env.folders.Create(ctx, owner, ws.ID, CreateFolderRequest{Name: "Docs"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate sibling: got %v, want conflict", err)
	}

	// Same name under a different parent is fine.
	if _, err := env.folders.Create(ctx, owner, ws.ID, CreateFolderRequest{ParentID: &root.ID, Name: "Docs"}); err != nil {
		t.Errorf("same name different parent: %v", err)
	}

	// After soft-deleting the original, the name is reusable.
	if err := env.folders.Delete(ctx, owner, ws.ID, root.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.folders.Create(ctx, owner, ws.ID, CreateFolderRequest{Name: "Docs"}); err != nil {
		t.Errorf("reuse name of deleted sibling: %v", err)
	}
}

func TestRenameCascadesRoutes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	invitations := env.mustFolder(t, owner, ws.ID, nil, "Invitations")
	y2024 := env.mustFolder(t, owner, ws.ID, &invitations.ID, "2024")
	may := env.mustFolder(t, owner, ws.ID, &y2024.ID, "May")

	renamed, err := env.folders.Move(ctx, owner, ws.ID, invitations.ID, MoveFolderRequest{Name: "Bids"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Route != "Bids" {
		t.Errorf("renamed route = %q, want Bids", renamed.Route)
	}

	gotChild, _ := env.folderRepo.GetByID(ctx, y2024.ID, ws.ID)
	if gotChild.Route != "Bids/2024" || gotChild.Level != 1 {
		t.Errorf("child after rename = %q level %d, want Bids/2024 level 1", gotChild.Route, gotChild.Level)
	}
	gotGrandchild, _ := env.folderRepo.GetByID(ctx, may.ID, ws.ID)
	if gotGrandchild.Route != "Bids/2024/May" || gotGrandchild.Level != 2 {
		t.Errorf("grandchild after rename = %q level %d, want Bids/2024/May level 2", gotGrandchild.Route, gotGrandchild.Level)
	}
}

func TestMoveReparentsAndShiftsLevels(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	a := env.mustFolder(t, owner, ws.ID, nil, "A")
	b := env.mustFolder(t, owner, ws.ID, &a.ID, "B")
	c := env.mustFolder(t, owner, ws.ID, &b.ID, "C")

	// Move B to root level.
	moved, err := env.folders.Move(ctx, owner, ws.ID, b.ID, MoveFolderRequest{Reparent: true, NewParentID: nil})
	if err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if moved.Route != "B" || moved.Level != 0 {
		t.Errorf("moved = route %q level %d, want B/0", moved.Route, moved.Level)
	}
	gotC, _ := env.folderRepo.GetByID(ctx, c.ID, ws.ID)
	if gotC.Route != "B/C" || gotC.Level != 1 {
		t.Errorf("descendant = route %q level %d, want B/C level 1", gotC.Route, gotC.Level)
	}
	if moved.Order != 2 {
		t.Errorf("moved order = %d, want 2 (appended to new siblings)", moved.Order)
	}
}

func TestMoveCycleRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	a := env.mustFolder(t, owner, ws.ID, nil, "A")
	b := env.mustFolder(t, owner, ws.ID, &a.ID, "B")
	c := env.mustFolder(t, owner, ws.ID, &b.ID, "C")

	tests := []struct {
		name      string
		folder    string
		newParent string
	}{
		{"own parent", a.ID, a.ID},
		{"direct child", a.ID, b.ID},
		{"deep descendant", a.ID, c.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := tt.newParent
			_, err := env.folders.Move(ctx, owner, ws.ID, tt.folder, MoveFolderRequest{Reparent: true, NewParentID: &parent})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestReorderFolders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	a := env.mustFolder(t, owner, ws.ID, nil, "A")
	b := env.mustFolder(t, owner, ws.ID, nil, "B")

	err := env.folders.Reorder(ctx, owner, ws.ID, []repositories.FolderOrder{
		{ID: a.ID, Order: 2},
		{ID: b.ID, Order: 1},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	gotA, _ := env.folderRepo.GetByID(ctx, a.ID, ws.ID)
	gotB, _ := env.folderRepo.GetByID(ctx, b.ID, ws.ID)
	if gotA.Order != 2 || gotB.Order != 1 {
		t.Errorf("orders = A:%d B:%d, want A:2 B:1", gotA.Order, gotB.Order)
	}

	if err := env.folders.Reorder(ctx, owner, ws.ID, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty reorder: got %v, want validation error", err)
	}
	if err := env.folders.Reorder(ctx, owner, ws.ID, []repositories.FolderOrder{{ID: a.ID, Order: 0}}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("zero order: got %v, want validation error", err)
	}
}

func TestFolderDeleteDoesNotCascade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	parent := env.mustFolder(t, owner, ws.ID, nil, "Parent")
	child := env.mustFolder(t, owner, ws.ID, &parent.ID, "Child")

	if err := env.folders.Delete(ctx, owner, ws.ID, parent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The child row keeps no marker of its own.
	gotChild, err := env.folderRepo.GetByIDIncludingDeleted(ctx, child.ID, ws.ID)
	if err != nil {
		t.Fatalf("child lookup: %v", err)
	}
	if gotChild.DeletedAt != nil {
		t.Error("child must not be stamped by the parent's delete")
	}

	// But it disappears from live listings while the ancestor is deleted.
	live, err := env.folderRepo.ListLive(ctx, ws.ID)
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("live folders = %d, want 0", len(live))
	}

	// Restoring the parent brings the whole subtree back untouched.
	if _, err := env.folders.Restore(ctx, owner, ws.ID, parent.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	live, _ = env.folderRepo.ListLive(ctx, ws.ID)
	if len(live) != 2 {
		t.Errorf("live folders after restore = %d, want 2", len(live))
	}
}

func TestFolderForceDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	parent := env.mustFolder(t, owner, ws.ID, nil, "Parent")
	child := env.mustFolder(t, owner, ws.ID, &parent.ID, "Child")

	// Two-step: force delete requires a prior soft delete.
	if err := env.folders.ForceDelete(ctx, owner, ws.ID, parent.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("force delete live folder: got %v, want validation error", err)
	}

	if err := env.folders.Delete(ctx, owner, ws.ID, parent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.folders.ForceDelete(ctx, owner, ws.ID, parent.ID); err != nil {
		t.Fatalf("force delete: %v", err)
	}

	// The whole subtree is gone, including the never-stamped child.
	if _, err := env.folderRepo.GetByIDIncludingDeleted(ctx, parent.ID, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("parent row should be gone")
	}
	if _, err := env.folderRepo.GetByIDIncludingDeleted(ctx, child.ID, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("child row should be gone")
	}
}

func TestFolderPermissionBoundary(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	if _, err := env.folders.Create(ctx, stranger, ws.ID, CreateFolderRequest{Name: "X"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("stranger create: got %v, want forbidden", err)
	}
}

func TestUpdateFolderDescription(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")
	folder := env.mustFolder(t, owner, ws.ID, nil, "Docs")

	updated, err := env.folders.UpdateDescription(ctx, owner, ws.ID, folder.ID, "bid paperwork")
	if err != nil {
		t.Fatalf("update description: %v", err)
	}
	if updated.Description != "bid paperwork" {
		t.Errorf("description = %q, want %q", updated.Description, "bid paperwork")
	}
	// Route and order are untouched; descriptions never cascade.
	if updated.Route != folder.Route || updated.Order != folder.Order {
		t.Errorf("route/order changed: %q/%d", updated.Route, updated.Order)
	}
}

func TestRenameLeavesDeletedNamesakeAlone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	// Soft-delete a root "A" with a child, then reuse the name.
	oldA := env.mustFolder(t, owner, ws.ID, nil, "A")
	oldChild := env.mustFolder(t, owner, ws.ID, &oldA.ID, "x")
	if err := env.folders.Delete(ctx, owner, ws.ID, oldChild.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.folders.Delete(ctx, owner, ws.ID, oldA.ID); err != nil {
		t.Fatal(err)
	}
	newA := env.mustFolder(t, owner, ws.ID, nil, "A")

	// Renaming the live "A" shares a route with the deleted one; the cascade
	// must follow the parent chain, not the route.
	moved, err := env.folders.Move(ctx, owner, ws.ID, newA.ID, MoveFolderRequest{Name: "B"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if moved.Route != "B" {
		t.Errorf("renamed route = %q, want B", moved.Route)
	}

	kept, err := env.folderRepo.GetByIDIncludingDeleted(ctx, oldChild.ID, ws.ID)
	if err != nil {
		t.Fatalf("deleted child: %v", err)
	}
	if kept.Route != "A/x" || kept.Level != 1 {
		t.Errorf("deleted namesake's child = route %q level %d, want A/x level 1", kept.Route, kept.Level)
	}
}

func TestForceDeleteSparesDeletedNamesake(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	first := env.mustFolder(t, owner, ws.ID, nil, "A")
	firstChild := env.mustFolder(t, owner, ws.ID, &first.ID, "x")
	if err := env.folders.Delete(ctx, owner, ws.ID, first.ID); err != nil {
		t.Fatal(err)
	}

	second := env.mustFolder(t, owner, ws.ID, nil, "A")
	if err := env.folders.Delete(ctx, owner, ws.ID, second.ID); err != nil {
		t.Fatal(err)
	}

	// Both deleted roots carry route "A"; only the targeted subtree may go.
	if err := env.folders.ForceDelete(ctx, owner, ws.ID, first.ID); err != nil {
		t.Fatalf("force delete: %v", err)
	}

	if _, err := env.folderRepo.GetByIDIncludingDeleted(ctx, first.ID, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("target root should be gone")
	}
	if _, err := env.folderRepo.GetByIDIncludingDeleted(ctx, firstChild.ID, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("target child should be gone")
	}

	survivor, err := env.folders.Restore(ctx, owner, ws.ID, second.ID)
	if err != nil {
		t.Fatalf("namesake should survive and restore: %v", err)
	}
	if survivor.Route != "A" {
		t.Errorf("survivor route = %q, want A", survivor.Route)
	}
}
