package service

import (
	"context"
	"fmt"
	"time"

	"depot/internal/domain"
	"depot/internal/domain/models"
	"depot/internal/domain/repositories"
)

// In-memory repository fakes. They mirror the SQL repositories' contracts:
// Get* wraps domain.ErrNotFound, GetChildByName returns (nil, nil) on a miss,
// and duplicate inserts surface as ConflictError.

type fakeTxManager struct{}

func (f *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeWorkspaceRepo struct {
	byID map[string]*models.Workspace
}

func newFakeWorkspaceRepo() *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{byID: make(map[string]*models.Workspace)}
}

func (f *fakeWorkspaceRepo) Create(ctx context.Context, ws *models.Workspace) error {
	for _, existing := range f.byID {
		if existing.Slug == ws.Slug {
			return &domain.ConflictError{Message: "slug taken", ResourceType: "workspace", ResourceID: existing.ID}
		}
	}
	cp := *ws
	f.byID[ws.ID] = &cp
	return nil
}

func (f *fakeWorkspaceRepo) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	ws, ok := f.byID[id]
	if !ok || ws.DeletedAt != nil {
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaceRepo) GetByIDIncludingDeleted(ctx context.Context, id string) (*models.Workspace, error) {
	ws, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaceRepo) GetBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	for _, ws := range f.byID {
		if ws.Slug == slug && ws.DeletedAt == nil {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("workspace %q: %w", slug, domain.ErrNotFound)
}

func (f *fakeWorkspaceRepo) ListForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	var out []models.Workspace
	for _, ws := range f.byID {
		if ws.DeletedAt == nil && ws.OwnerID == userID {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (f *fakeWorkspaceRepo) Update(ctx context.Context, ws *models.Workspace) error {
	if _, ok := f.byID[ws.ID]; !ok {
		return fmt.Errorf("workspace %s: %w", ws.ID, domain.ErrNotFound)
	}
	cp := *ws
	f.byID[ws.ID] = &cp
	return nil
}

func (f *fakeWorkspaceRepo) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	ws, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	ws.DeletedAt = &at
	ws.DeletedBy = &deletedBy
	return nil
}

func (f *fakeWorkspaceRepo) Restore(ctx context.Context, id string) (*models.Workspace, error) {
	ws, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	ws.DeletedAt = nil
	ws.DeletedBy = nil
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaceRepo) HardDelete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakeMembershipRepo struct {
	rows map[string]*models.Membership // key: workspaceID + "|" + userID
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{rows: make(map[string]*models.Membership)}
}

func memberKey(workspaceID, userID string) string { return workspaceID + "|" + userID }

func (f *fakeMembershipRepo) Create(ctx context.Context, m *models.Membership) error {
	key := memberKey(m.WorkspaceID, m.UserID)
	if _, ok := f.rows[key]; ok {
		return &domain.ConflictError{Message: "user is already a member of this workspace", ResourceType: "membership"}
	}
	cp := *m
	f.rows[key] = &cp
	return nil
}

func (f *fakeMembershipRepo) Get(ctx context.Context, workspaceID, userID string) (*models.Membership, error) {
	m, ok := f.rows[memberKey(workspaceID, userID)]
	if !ok {
		return nil, fmt.Errorf("membership: %w", domain.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Membership, error) {
	var out []models.Membership
	for _, m := range f.rows {
		if m.WorkspaceID == workspaceID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) Update(ctx context.Context, m *models.Membership) error {
	key := memberKey(m.WorkspaceID, m.UserID)
	if _, ok := f.rows[key]; !ok {
		return fmt.Errorf("membership: %w", domain.ErrNotFound)
	}
	cp := *m
	f.rows[key] = &cp
	return nil
}

func (f *fakeMembershipRepo) Delete(ctx context.Context, workspaceID, userID string) error {
	delete(f.rows, memberKey(workspaceID, userID))
	return nil
}

type fakeFolderRepo struct {
	byID map[string]*models.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{byID: make(map[string]*models.Folder)}
}

func (f *fakeFolderRepo) Create(ctx context.Context, folder *models.Folder) error {
	cp := *folder
	f.byID[folder.ID] = &cp
	return nil
}

func (f *fakeFolderRepo) GetByID(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok || folder.WorkspaceID != workspaceID || folder.DeletedAt != nil {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	cp := *folder
	return &cp, nil
}

func (f *fakeFolderRepo) GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok || folder.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	cp := *folder
	return &cp, nil
}

func (f *fakeFolderRepo) GetChildByName(ctx context.Context, workspaceID string, parentID *string, name string) (*models.Folder, error) {
	for _, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && folder.DeletedAt == nil &&
			samePtr(folder.ParentID, parentID) && folder.Name == name {
			cp := *folder
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	if _, ok := f.byID[folder.ID]; !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	cp := *folder
	f.byID[folder.ID] = &cp
	return nil
}

func (f *fakeFolderRepo) ListChildren(ctx context.Context, workspaceID string, parentID *string) ([]models.Folder, error) {
	var out []models.Folder
	for _, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && folder.DeletedAt == nil && samePtr(folder.ParentID, parentID) {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (f *fakeFolderRepo) ListLive(ctx context.Context, workspaceID string) ([]models.Folder, error) {
	var out []models.Folder
	for _, folder := range f.byID {
		if folder.WorkspaceID != workspaceID || folder.DeletedAt != nil {
			continue
		}
		if f.underDeletedAncestor(folder) {
			continue
		}
		out = append(out, *folder)
	}
	return out, nil
}

func (f *fakeFolderRepo) underDeletedAncestor(folder *models.Folder) bool {
	for p := folder.ParentID; p != nil; {
		parent, ok := f.byID[*p]
		if !ok {
			return true
		}
		if parent.DeletedAt != nil {
			return true
		}
		p = parent.ParentID
	}
	return false
}

// descendantIDs collects the subtree below id via the parent chain, id excluded.
func (f *fakeFolderRepo) descendantIDs(id string) map[string]bool {
	out := map[string]bool{}
	frontier := []string{id}
	for len(frontier) > 0 {
		next := []string{}
		for _, folder := range f.byID {
			if folder.ParentID == nil {
				continue
			}
			for _, fr := range frontier {
				if *folder.ParentID == fr && !out[folder.ID] {
					out[folder.ID] = true
					next = append(next, folder.ID)
				}
			}
		}
		frontier = next
	}
	return out
}

func (f *fakeFolderRepo) NextOrder(ctx context.Context, workspaceID string, parentID *string) (int, error) {
	max := 0
	for _, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && samePtr(folder.ParentID, parentID) && folder.Order > max {
			max = folder.Order
		}
	}
	return max + 1, nil
}

func (f *fakeFolderRepo) CascadeRoute(ctx context.Context, workspaceID, folderID, oldRoute, newRoute string, levelDelta int) error {
	subtree := f.descendantIDs(folderID)
	for _, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && subtree[folder.ID] {
			folder.Route = newRoute + folder.Route[len(oldRoute):]
			folder.Level += levelDelta
		}
	}
	return nil
}

func (f *fakeFolderRepo) UpdateOrders(ctx context.Context, workspaceID string, orders []repositories.FolderOrder) error {
	for _, o := range orders {
		folder, ok := f.byID[o.ID]
		if !ok || folder.WorkspaceID != workspaceID {
			return fmt.Errorf("folder %s: %w", o.ID, domain.ErrNotFound)
		}
		folder.Order = o.Order
	}
	return nil
}

func (f *fakeFolderRepo) SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error {
	folder, ok := f.byID[id]
	if !ok || folder.WorkspaceID != workspaceID {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	folder.DeletedAt = &at
	folder.DeletedBy = &deletedBy
	return nil
}

func (f *fakeFolderRepo) SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error {
	for _, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && folder.DeletedAt == nil {
			folder.DeletedAt = &at
			folder.DeletedBy = &deletedBy
		}
	}
	return nil
}

func (f *fakeFolderRepo) Restore(ctx context.Context, id, workspaceID string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok || folder.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	folder.DeletedAt = nil
	folder.DeletedBy = nil
	cp := *folder
	return &cp, nil
}

func (f *fakeFolderRepo) HardDeleteSubtree(ctx context.Context, workspaceID, id string) error {
	subtree := f.descendantIDs(id)
	subtree[id] = true
	for fid, folder := range f.byID {
		if folder.WorkspaceID == workspaceID && subtree[fid] {
			delete(f.byID, fid)
		}
	}
	return nil
}

type fakeFileRepo struct {
	byID map[string]*models.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{byID: make(map[string]*models.File)}
}

func (f *fakeFileRepo) Create(ctx context.Context, file *models.File) error {
	cp := *file
	f.byID[file.ID] = &cp
	return nil
}

func (f *fakeFileRepo) GetByID(ctx context.Context, id, workspaceID string) (*models.File, error) {
	file, ok := f.byID[id]
	if !ok || file.WorkspaceID != workspaceID || file.DeletedAt != nil {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFileRepo) GetByIDIncludingDeleted(ctx context.Context, id, workspaceID string) (*models.File, error) {
	file, ok := f.byID[id]
	if !ok || file.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFileRepo) Update(ctx context.Context, file *models.File) error {
	if _, ok := f.byID[file.ID]; !ok {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	cp := *file
	f.byID[file.ID] = &cp
	return nil
}

func (f *fakeFileRepo) List(ctx context.Context, workspaceID string) ([]models.File, error) {
	var out []models.File
	for _, file := range f.byID {
		if file.WorkspaceID == workspaceID && file.DeletedAt == nil {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) SoftDelete(ctx context.Context, id, workspaceID, deletedBy string, at time.Time) error {
	file, ok := f.byID[id]
	if !ok || file.WorkspaceID != workspaceID {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file.DeletedAt = &at
	file.DeletedBy = &deletedBy
	return nil
}

func (f *fakeFileRepo) SoftDeleteAllByWorkspace(ctx context.Context, workspaceID, deletedBy string, at time.Time) error {
	for _, file := range f.byID {
		if file.WorkspaceID == workspaceID && file.DeletedAt == nil {
			file.DeletedAt = &at
			file.DeletedBy = &deletedBy
		}
	}
	return nil
}

func (f *fakeFileRepo) Restore(ctx context.Context, id, workspaceID string) (*models.File, error) {
	file, ok := f.byID[id]
	if !ok || file.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file.DeletedAt = nil
	file.DeletedBy = nil
	cp := *file
	return &cp, nil
}

func (f *fakeFileRepo) HardDelete(ctx context.Context, id, workspaceID string) error {
	delete(f.byID, id)
	return nil
}

type fakeVersionRepo struct {
	rows []*models.Version
}

func newFakeVersionRepo() *fakeVersionRepo { return &fakeVersionRepo{} }

func (f *fakeVersionRepo) Create(ctx context.Context, v *models.Version) error {
	for _, existing := range f.rows {
		if existing.FileID == v.FileID && existing.Number == v.Number {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %d already exists for this file", v.Number),
				ResourceType: "version",
			}
		}
	}
	cp := *v
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeVersionRepo) Current(ctx context.Context, fileID string) (*models.Version, error) {
	var current *models.Version
	for _, v := range f.rows {
		if v.FileID == fileID && (current == nil || v.Number > current.Number) {
			current = v
		}
	}
	if current == nil {
		return nil, fmt.Errorf("current version of file %s: %w", fileID, domain.ErrNotFound)
	}
	cp := *current
	return &cp, nil
}

func (f *fakeVersionRepo) GetByID(ctx context.Context, id, fileID string) (*models.Version, error) {
	for _, v := range f.rows {
		if v.ID == id && v.FileID == fileID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
}

func (f *fakeVersionRepo) ListByFile(ctx context.Context, fileID string) ([]models.Version, error) {
	var out []models.Version
	for _, v := range f.rows {
		if v.FileID == fileID {
			out = append(out, *v)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Number < out[i].Number {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeVersionRepo) IncrementDownloads(ctx context.Context, id string) error {
	for _, v := range f.rows {
		if v.ID == id {
			v.Downloads++
			return nil
		}
	}
	return fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
}

type fakePlacementRepo struct {
	rows []*models.Placement
}

func newFakePlacementRepo() *fakePlacementRepo { return &fakePlacementRepo{} }

func (f *fakePlacementRepo) Create(ctx context.Context, p *models.Placement) error {
	for _, existing := range f.rows {
		if existing.FileID == p.FileID && existing.FolderID == p.FolderID {
			return &domain.ConflictError{Message: "file is already placed in this folder", ResourceType: "placement"}
		}
	}
	cp := *p
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakePlacementRepo) Delete(ctx context.Context, fileID, folderID string) error {
	for i, p := range f.rows {
		if p.FileID == fileID && p.FolderID == folderID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakePlacementRepo) NextOrder(ctx context.Context, folderID string) (int, error) {
	max := 0
	for _, p := range f.rows {
		if p.FolderID == folderID && p.Order > max {
			max = p.Order
		}
	}
	return max + 1, nil
}

func (f *fakePlacementRepo) ListByFolder(ctx context.Context, folderID string) ([]models.Placement, error) {
	var out []models.Placement
	for _, p := range f.rows {
		if p.FolderID == folderID {
			out = append(out, *p)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Order < out[i].Order {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakePlacementRepo) ListByFile(ctx context.Context, fileID string) ([]models.Placement, error) {
	var out []models.Placement
	for _, p := range f.rows {
		if p.FileID == fileID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlacementRepo) UpdateOrders(ctx context.Context, folderID string, orders []repositories.PlacementOrder) error {
	for _, o := range orders {
		for _, p := range f.rows {
			if p.FolderID == folderID && p.FileID == o.FileID {
				p.Order = o.Order
			}
		}
	}
	return nil
}

type fakeTagRepo struct {
	tags     map[string]*models.Tag
	markings []*models.Marking
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: make(map[string]*models.Tag)}
}

func (f *fakeTagRepo) Create(ctx context.Context, tag *models.Tag) error {
	for _, existing := range f.tags {
		if existing.Slug == tag.Slug {
			return &domain.ConflictError{Message: fmt.Sprintf("tag %q already exists", tag.Name), ResourceType: "tag"}
		}
	}
	cp := *tag
	f.tags[tag.ID] = &cp
	return nil
}

func (f *fakeTagRepo) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	tag, ok := f.tags[id]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	cp := *tag
	return &cp, nil
}

func (f *fakeTagRepo) List(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	for _, tag := range f.tags {
		out = append(out, *tag)
	}
	return out, nil
}

func (f *fakeTagRepo) Delete(ctx context.Context, id string) error {
	delete(f.tags, id)
	kept := f.markings[:0]
	for _, m := range f.markings {
		if m.TagID != id {
			kept = append(kept, m)
		}
	}
	f.markings = kept
	return nil
}

func (f *fakeTagRepo) Mark(ctx context.Context, m *models.Marking) error {
	for _, existing := range f.markings {
		if existing.FileID == m.FileID && existing.TagID == m.TagID {
			return &domain.ConflictError{Message: "file already carries this tag", ResourceType: "marking"}
		}
	}
	cp := *m
	f.markings = append(f.markings, &cp)
	return nil
}

func (f *fakeTagRepo) Unmark(ctx context.Context, fileID, tagID string) error {
	for i, m := range f.markings {
		if m.FileID == fileID && m.TagID == tagID {
			f.markings = append(f.markings[:i], f.markings[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeTagRepo) ListTagsForFile(ctx context.Context, fileID string) ([]models.Tag, error) {
	var out []models.Tag
	for _, m := range f.markings {
		if m.FileID == fileID {
			if tag, ok := f.tags[m.TagID]; ok {
				out = append(out, *tag)
			}
		}
	}
	return out, nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
