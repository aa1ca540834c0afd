package service

import (
	"context"
	"errors"
	"testing"

	"depot/internal/domain"
	"depot/internal/domain/models"
)

var (
	owner    = models.Actor{ID: "user-owner"}
	member   = models.Actor{ID: "user-member"}
	stranger = models.Actor{ID: "user-stranger"}
	elevated = models.Actor{ID: "user-admin", Elevated: true}
)

func TestCreateWorkspace(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	ws, err := env.workspaces.Create(ctx, owner, CreateWorkspaceRequest{Name: "Acme Legal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ws.Slug != "acme-legal" {
		t.Errorf("slug = %q, want %q", ws.Slug, "acme-legal")
	}
	if !ws.Active {
		t.Error("new workspace should be active")
	}
	if ws.OwnerID != owner.ID {
		t.Errorf("owner = %q, want %q", ws.OwnerID, owner.ID)
	}

	// Owner membership is created alongside the workspace, already joined.
	m, err := env.memberRepo.Get(ctx, ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("owner membership: %v", err)
	}
	if m.Role != models.RoleOwner {
		t.Errorf("role = %q, want owner", m.Role)
	}
	if m.JoinedAt == nil {
		t.Error("owner membership should be joined immediately")
	}

	// Duplicate slug conflicts.
	if _, err := env.workspaces.Create(ctx, owner, CreateWorkspaceRequest{Name: "Acme Legal"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate slug: got %v, want conflict", err)
	}
}

func TestEnsureAccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	// Invite member with default permissions and accept.
	if _, err := env.workspaces.Invite(ctx, owner, ws.ID, InviteRequest{UserID: member.ID}); err != nil {
		t.Fatalf("invite: %v", err)
	}

	tests := []struct {
		name       string
		actor      models.Actor
		capability string
		joined     bool
		wantErr    error
	}{
		{"owner passes any capability", owner, models.CapabilityUsers, true, nil},
		{"elevated passes without membership", elevated, models.CapabilitySettings, true, nil},
		{"stranger is forbidden", stranger, "", true, domain.ErrForbidden},
		{"invited but not joined is forbidden", member, "", false, domain.ErrForbidden},
		{"joined member gets files by default", member, models.CapabilityFiles, true, nil},
		{"joined member gets folders by default", member, models.CapabilityFolders, true, nil},
		{"joined member denied users by default", member, models.CapabilityUsers, true, domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actor.ID == member.ID && tt.joined {
				if m, err := env.memberRepo.Get(ctx, ws.ID, member.ID); err == nil && m.JoinedAt == nil {
					if _, err := env.workspaces.Accept(ctx, member, ws.ID); err != nil {
						t.Fatalf("accept: %v", err)
					}
				}
			}

			_, err := env.workspaces.EnsureAccess(ctx, tt.actor, ws.ID, tt.capability)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("EnsureAccess: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("EnsureAccess: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPermissionOverrides(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	// Grant users, revoke files.
	perms := models.PermissionMap{models.CapabilityUsers: true, models.CapabilityFiles: false}
	if _, err := env.workspaces.Invite(ctx, owner, ws.ID, InviteRequest{UserID: member.ID, Permissions: perms}); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.workspaces.Accept(ctx, member, ws.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := env.workspaces.EnsureAccess(ctx, member, ws.ID, models.CapabilityUsers); err != nil {
		t.Errorf("explicit users grant should pass: %v", err)
	}
	if _, err := env.workspaces.EnsureAccess(ctx, member, ws.ID, models.CapabilityFiles); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("explicit files revoke should be forbidden, got %v", err)
	}

	// Unknown permission keys are rejected at the edge.
	bad := models.PermissionMap{"superuser": true}
	if _, err := env.workspaces.UpdatePermissions(ctx, owner, ws.ID, member.ID, bad); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown key: got %v, want validation error", err)
	}
}

func TestLazyOwnerMembership(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	// Simulate a legacy workspace whose owner row is missing.
	if err := env.memberRepo.Delete(ctx, ws.ID, owner.ID); err != nil {
		t.Fatalf("delete membership: %v", err)
	}

	if _, err := env.workspaces.EnsureAccess(ctx, owner, ws.ID, models.CapabilityUsers); err != nil {
		t.Fatalf("owner access: %v", err)
	}

	m, err := env.memberRepo.Get(ctx, ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("membership should be rematerialized: %v", err)
	}
	if m.Role != models.RoleOwner || m.JoinedAt == nil {
		t.Errorf("rematerialized membership = %+v, want joined owner", m)
	}
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	if _, err := env.workspaces.Invite(ctx, owner, ws.ID, InviteRequest{UserID: member.ID}); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.workspaces.Accept(ctx, member, ws.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// The owner cannot be removed, even by themselves.
	if err := env.workspaces.RemoveMember(ctx, owner, ws.ID, owner.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("remove owner: got %v, want validation error", err)
	}

	// A member can leave without the users capability.
	if err := env.workspaces.RemoveMember(ctx, member, ws.ID, member.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := env.memberRepo.Get(ctx, ws.ID, member.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("membership row should be gone after leaving")
	}
}

func TestWorkspaceDeleteCascades(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	folder := env.mustFolder(t, owner, ws.ID, nil, "Contracts")
	file := env.mustUpload(t, owner, ws.ID, "notes.txt", []byte("hello"))

	if err := env.workspaces.Delete(ctx, owner, ws.ID); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}

	// Workspace, folder and file all carry the marker.
	if _, err := env.wsRepo.GetByID(ctx, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("workspace should be hidden")
	}
	f, _ := env.folderRepo.GetByIDIncludingDeleted(ctx, folder.ID, ws.ID)
	if f.DeletedAt == nil {
		t.Error("folder should be deleted by the cascade")
	}
	fl, _ := env.fileRepo.GetByIDIncludingDeleted(ctx, file.ID, ws.ID)
	if fl.DeletedAt == nil {
		t.Error("file should be deleted by the cascade")
	}

	// Only a member-less stranger is rejected; the owner restores.
	if _, err := env.workspaces.Restore(ctx, stranger, ws.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("stranger restore: got %v, want forbidden", err)
	}
	if _, err := env.workspaces.Restore(ctx, owner, ws.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
}

func TestWorkspaceForceDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	// Not yet soft-deleted.
	if err := env.workspaces.ForceDelete(ctx, owner, ws.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("force delete live workspace: got %v, want validation error", err)
	}

	if err := env.workspaces.Delete(ctx, owner, ws.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Even elevated actors cannot hard-delete; only the owner.
	if err := env.workspaces.ForceDelete(ctx, elevated, ws.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("elevated force delete: got %v, want forbidden", err)
	}
	if err := env.workspaces.ForceDelete(ctx, owner, ws.ID); err != nil {
		t.Fatalf("force delete: %v", err)
	}
	if _, err := env.wsRepo.GetByIDIncludingDeleted(ctx, ws.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("workspace row should be gone")
	}
}

func TestDeactivateReactivate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	ws := env.mustWorkspace(t, owner, "Team")

	got, err := env.workspaces.Deactivate(ctx, owner, ws.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got.Active || got.DeactivatedAt == nil || got.DeactivatedBy == nil {
		t.Errorf("deactivate should stamp audit fields, got %+v", got)
	}
	if _, err := env.workspaces.Deactivate(ctx, owner, ws.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("double deactivate: got %v, want validation error", err)
	}

	got, err = env.workspaces.Reactivate(ctx, owner, ws.ID)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !got.Active || got.DeactivatedAt != nil {
		t.Errorf("reactivate should clear audit fields, got %+v", got)
	}
}
