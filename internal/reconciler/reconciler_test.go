package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kestrelhq/driveconnect/internal/store"
	testhelpers "github.com/kestrelhq/driveconnect/internal/testing"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
)

type fakeRemote struct {
	nodes        map[string]*types.RemoteNode
	sharedDrives []types.RemoteNode
	childFolders map[string][]types.RemoteNode
}

func (f *fakeRemote) GetNode(ctx context.Context, connectorID, id string) (*types.RemoteNode, error) {
	return f.nodes[id], nil
}

func (f *fakeRemote) ListSharedDrives(ctx context.Context, connectorID string) ([]types.RemoteNode, error) {
	return f.sharedDrives, nil
}

func (f *fakeRemote) ListChildFolders(ctx context.Context, connectorID, parentID string) ([]types.RemoteNode, error) {
	return f.childFolders[parentID], nil
}

type fakeLauncher struct {
	mu      sync.Mutex
	calls   []string
	trigger chan struct{}
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{trigger: make(chan struct{}, 8)}
}

func (f *fakeLauncher) TriggerFullSync(ctx context.Context, connectorID, cursor string) error {
	f.mu.Lock()
	f.calls = append(f.calls, connectorID)
	f.mu.Unlock()
	f.trigger <- struct{}{}
	return nil
}

func (f *fakeLauncher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLauncher) waitForTrigger(t *testing.T) {
	t.Helper()
	select {
	case <-f.trigger:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync trigger")
	}
}

func setupReconciler(t *testing.T, remote *fakeRemote) (*Reconciler, *store.DB, *fakeLauncher) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.CreateConnector(context.Background(), store.Connector{
		ID: "conn-1", Provider: "google_drive", WorkspaceID: "ws-1",
	}); err != nil {
		t.Fatalf("failed to create connector: %v", err)
	}

	if remote == nil {
		remote = &fakeRemote{}
	}
	launcher := newFakeLauncher()
	return New(db, remote, launcher, nil), db, launcher
}

func TestListVisibleNodesUnknownConnector(t *testing.T) {
	rec, _, _ := setupReconciler(t, nil)

	_, err := rec.ListVisibleNodes(context.Background(), "conn-unknown", "", types.FilterReadOnly)
	testhelpers.AssertErrorCode(t, err, utils.ErrCodeConnectorNotFound)
}

func TestListVisibleNodesUnknownFilter(t *testing.T) {
	rec, _, _ := setupReconciler(t, nil)

	_, err := rec.ListVisibleNodes(context.Background(), "conn-1", "", types.Filter("everything"))
	if !utils.IsCode(err, utils.ErrCodeInvalidArgument) {
		t.Fatalf("got %v, want INVALID_ARGUMENT", err)
	}
}

func TestListMirroredChildrenSortsFoldersFirst(t *testing.T) {
	rec, db, _ := setupReconciler(t, nil)
	ctx := context.Background()

	files := []store.MirroredFile{
		{ConnectorID: "conn-1", FileID: "f-doc", ParentID: "root", Name: "notes.txt", MimeType: "text/plain"},
		{ConnectorID: "conn-1", FileID: "f-zfolder", ParentID: "root", Name: "zeta", MimeType: utils.MimeTypeFolder},
		{ConnectorID: "conn-1", FileID: "f-afolder", ParentID: "root", Name: "Archive", MimeType: utils.MimeTypeFolder},
		{ConnectorID: "conn-1", FileID: "f-upper", ParentID: "root", Name: "Notes.txt", MimeType: "text/plain"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	nodes, err := rec.ListVisibleNodes(ctx, "conn-1", "root", types.FilterReadOnly)
	if err != nil {
		t.Fatalf("ListVisibleNodes failed: %v", err)
	}

	// Folders first, then case-sensitive lexicographic: uppercase sorts
	// before lowercase.
	want := []string{"Archive", "zeta", "Notes.txt", "notes.txt"}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i, title := range want {
		if nodes[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, nodes[i].Title, title)
		}
	}
	if nodes[0].Kind != types.NodeKindFolder || nodes[1].Kind != types.NodeKindFolder {
		t.Error("folders must sort before files")
	}
	if nodes[2].Kind != types.NodeKindFile || nodes[3].Kind != types.NodeKindFile {
		t.Error("files must follow folders")
	}
}

func TestListSelectedRootsUsesRemoteTitles(t *testing.T) {
	remote := &fakeRemote{
		nodes: map[string]*types.RemoteNode{
			"folder-1": {ID: "folder-1", Name: "Docs v2", Kind: types.NodeKindFolder},
		},
	}
	rec, db, _ := setupReconciler(t, remote)
	ctx := context.Background()

	if _, err := db.UpsertFolder(ctx, "conn-1", "folder-1"); err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}
	// Mirror still carries the stale pre-rename name
	if err := db.UpsertFile(ctx, store.MirroredFile{
		ConnectorID: "conn-1", FileID: "child-1", ParentID: "folder-1", Name: "inside",
	}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	nodes, err := rec.ListVisibleNodes(ctx, "conn-1", "", types.FilterReadOnly)
	if err != nil {
		t.Fatalf("ListVisibleNodes failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	if nodes[0].Title != "Docs v2" {
		t.Errorf("got title %q, want the live remote title", nodes[0].Title)
	}
	if nodes[0].Permission != types.PermissionRead {
		t.Errorf("selected root must carry read permission, got %q", nodes[0].Permission)
	}
	if !nodes[0].Expandable {
		t.Error("root with mirrored children must be expandable")
	}
}

func TestListSelectedRootsExcludesRemotelyMissing(t *testing.T) {
	remote := &fakeRemote{
		nodes: map[string]*types.RemoteNode{
			"folder-kept": {ID: "folder-kept", Name: "Kept", Kind: types.NodeKindFolder},
			// folder-gone absent: deleted remotely
		},
	}
	rec, db, _ := setupReconciler(t, remote)
	ctx := context.Background()

	for _, id := range []string{"folder-kept", "folder-gone"} {
		if _, err := db.UpsertFolder(ctx, "conn-1", id); err != nil {
			t.Fatalf("UpsertFolder failed: %v", err)
		}
	}

	nodes, err := rec.ListVisibleNodes(ctx, "conn-1", "", types.FilterReadOnly)
	if err != nil {
		t.Fatalf("ListVisibleNodes failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "folder-kept" {
		t.Fatalf("remotely deleted folder must be excluded, got %+v", nodes)
	}
}

func TestDiscoverRootsAnnotatesSelection(t *testing.T) {
	remote := &fakeRemote{
		sharedDrives: []types.RemoteNode{
			testhelpers.TestRemoteFolder("drive-b", "", "Beta"),
			testhelpers.TestRemoteFolder("drive-a", "", "Alpha"),
		},
	}
	rec, db, _ := setupReconciler(t, remote)
	ctx := context.Background()

	if _, err := db.UpsertFolder(ctx, "conn-1", "drive-a"); err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}

	nodes, err := rec.ListVisibleNodes(ctx, "conn-1", "", types.FilterDiscover)
	if err != nil {
		t.Fatalf("ListVisibleNodes failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	// Sorted by title regardless of remote order
	if nodes[0].ID != "drive-a" || nodes[1].ID != "drive-b" {
		t.Errorf("unexpected order: %s, %s", nodes[0].ID, nodes[1].ID)
	}
	if nodes[0].Permission != types.PermissionRead {
		t.Errorf("selected drive must show read, got %q", nodes[0].Permission)
	}
	if nodes[1].Permission != types.PermissionNone {
		t.Errorf("unselected drive must show none, got %q", nodes[1].Permission)
	}
}

func TestDiscoverChildrenListsRemoteFolders(t *testing.T) {
	remote := &fakeRemote{
		childFolders: map[string][]types.RemoteNode{
			"parent-1": {
				testhelpers.TestRemoteFolder("sub-1", "parent-1", "Sub"),
			},
		},
	}
	rec, _, _ := setupReconciler(t, remote)

	nodes, err := rec.ListVisibleNodes(context.Background(), "conn-1", "parent-1", types.FilterDiscover)
	if err != nil {
		t.Fatalf("ListVisibleNodes failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "sub-1" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
	if !nodes[0].Expandable {
		t.Error("discovered folders are always presented as expandable")
	}
}

func TestApplyPermissionChangesRejectsInvalidBatch(t *testing.T) {
	rec, db, launcher := setupReconciler(t, nil)
	ctx := context.Background()

	err := rec.ApplyPermissionChanges(ctx, "conn-1", map[string]types.Permission{
		"folder-good": types.PermissionRead,
		"folder-bad":  types.Permission("write"),
	})
	if !utils.IsCode(err, utils.ErrCodeInvalidPermission) {
		t.Fatalf("got %v, want INVALID_PERMISSION", err)
	}

	// All-or-nothing: the valid entry must not have been applied
	exists, _ := db.FolderExists(ctx, "conn-1", "folder-good")
	if exists {
		t.Error("no mutation may happen when the batch fails validation")
	}
	if launcher.callCount() != 0 {
		t.Error("no sync may be triggered for a rejected batch")
	}
}

func TestApplyPermissionChangesGrantTriggersSync(t *testing.T) {
	rec, db, launcher := setupReconciler(t, nil)
	ctx := context.Background()

	err := rec.ApplyPermissionChanges(ctx, "conn-1", map[string]types.Permission{
		"folder-1": types.PermissionRead,
	})
	if err != nil {
		t.Fatalf("ApplyPermissionChanges failed: %v", err)
	}

	exists, _ := db.FolderExists(ctx, "conn-1", "folder-1")
	if !exists {
		t.Error("granted folder must be selected")
	}
	launcher.waitForTrigger(t)
}

func TestApplyPermissionChangesRevokeSweepsMirror(t *testing.T) {
	rec, db, launcher := setupReconciler(t, nil)
	ctx := context.Background()

	for _, id := range []string{"folder-kept", "folder-gone"} {
		if _, err := db.UpsertFolder(ctx, "conn-1", id); err != nil {
			t.Fatalf("UpsertFolder failed: %v", err)
		}
	}
	files := []store.MirroredFile{
		{ConnectorID: "conn-1", FileID: "f-kept", ParentID: "folder-kept", Name: "kept"},
		{ConnectorID: "conn-1", FileID: "f-gone", ParentID: "folder-gone", Name: "gone"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	err := rec.ApplyPermissionChanges(ctx, "conn-1", map[string]types.Permission{
		"folder-gone": types.PermissionNone,
	})
	if err != nil {
		t.Fatalf("ApplyPermissionChanges failed: %v", err)
	}

	if f, _ := db.GetFile(ctx, "conn-1", "f-gone"); f != nil {
		t.Error("files under a revoked folder must be collected")
	}
	if f, _ := db.GetFile(ctx, "conn-1", "f-kept"); f == nil {
		t.Error("files under a surviving selection must stay")
	}
	launcher.waitForTrigger(t)
}

func TestApplyPermissionChangesRevokeAbsentIsNoOp(t *testing.T) {
	rec, _, launcher := setupReconciler(t, nil)

	err := rec.ApplyPermissionChanges(context.Background(), "conn-1", map[string]types.Permission{
		"folder-never-selected": types.PermissionNone,
	})
	if err != nil {
		t.Fatalf("ApplyPermissionChanges failed: %v", err)
	}
	if launcher.callCount() != 0 {
		t.Error("revoking an absent selection must not trigger a sync")
	}
}

func TestApplyPermissionChangesUnknownConnector(t *testing.T) {
	rec, _, _ := setupReconciler(t, nil)

	err := rec.ApplyPermissionChanges(context.Background(), "conn-unknown", map[string]types.Permission{
		"folder-1": types.PermissionRead,
	})
	if !utils.IsCode(err, utils.ErrCodeConnectorNotFound) {
		t.Fatalf("got %v, want CONNECTOR_NOT_FOUND", err)
	}
}

func TestResolveTitles(t *testing.T) {
	rec, db, _ := setupReconciler(t, nil)
	ctx := context.Background()

	if err := db.UpsertFile(ctx, store.MirroredFile{
		ConnectorID: "conn-1", FileID: "f-1", Name: "Roadmap",
	}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	titles, err := rec.ResolveTitles(ctx, "conn-1", []string{"f-1", "f-unknown"})
	if err != nil {
		t.Fatalf("ResolveTitles failed: %v", err)
	}
	if len(titles) != 1 || titles["f-1"] != "Roadmap" {
		t.Errorf("unexpected titles: %v", titles)
	}

	titles, err = rec.ResolveTitles(ctx, "conn-1", nil)
	if err != nil {
		t.Fatalf("ResolveTitles failed: %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("expected empty map, got %v", titles)
	}
}

func TestResolveParentChain(t *testing.T) {
	rec, db, _ := setupReconciler(t, nil)
	ctx := context.Background()

	files := []store.MirroredFile{
		{ConnectorID: "conn-1", FileID: "leaf", ParentID: "mid", Name: "leaf"},
		{ConnectorID: "conn-1", FileID: "mid", ParentID: "root", Name: "mid"},
		{ConnectorID: "conn-1", FileID: "root", ParentID: "", Name: "root"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	cache := NewChainCache()
	chain, err := rec.ResolveParentChain(ctx, "conn-1", "leaf", cache)
	if err != nil {
		t.Fatalf("ResolveParentChain failed: %v", err)
	}
	want := []string{"leaf", "mid", "root"}
	if len(chain) != len(want) {
		t.Fatalf("got chain %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("got chain %v, want %v", chain, want)
		}
	}

	// A second walk over a shared ancestor reuses the cached suffix
	if err := db.UpsertFile(ctx, store.MirroredFile{
		ConnectorID: "conn-1", FileID: "sibling", ParentID: "mid", Name: "sibling",
	}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}
	chain, err = rec.ResolveParentChain(ctx, "conn-1", "sibling", cache)
	if err != nil {
		t.Fatalf("ResolveParentChain failed: %v", err)
	}
	want = []string{"sibling", "mid", "root"}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("got chain %v, want %v", chain, want)
		}
	}
}

func TestResolveParentChainUnmirroredNode(t *testing.T) {
	rec, _, _ := setupReconciler(t, nil)

	chain, err := rec.ResolveParentChain(context.Background(), "conn-1", "not-mirrored", nil)
	if err != nil {
		t.Fatalf("ResolveParentChain failed: %v", err)
	}
	if len(chain) != 1 || chain[0] != "not-mirrored" {
		t.Errorf("unmirrored node resolves to itself, got %v", chain)
	}
}

func TestResolveParentChainDetectsCycle(t *testing.T) {
	rec, db, _ := setupReconciler(t, nil)
	ctx := context.Background()

	files := []store.MirroredFile{
		{ConnectorID: "conn-1", FileID: "a", ParentID: "b", Name: "a"},
		{ConnectorID: "conn-1", FileID: "b", ParentID: "a", Name: "b"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	_, err := rec.ResolveParentChain(ctx, "conn-1", "a", NewChainCache())
	testhelpers.AssertErrorCode(t, err, utils.ErrCodeCycleDetected)
}
