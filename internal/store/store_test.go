package store

import (
	"context"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestConnector(t *testing.T, db *DB, id string) {
	t.Helper()
	err := db.CreateConnector(context.Background(), Connector{
		ID:          id,
		Provider:    "google_drive",
		WorkspaceID: "ws-1",
	})
	if err != nil {
		t.Fatalf("failed to create connector: %v", err)
	}
}

func TestConnectorLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	createTestConnector(t, db, "conn-1")

	c, err := db.GetConnector(ctx, "conn-1")
	if err != nil {
		t.Fatalf("GetConnector failed: %v", err)
	}
	if c == nil {
		t.Fatal("expected connector, got nil")
	}
	if c.Provider != "google_drive" || c.WorkspaceID != "ws-1" {
		t.Errorf("unexpected connector: %+v", c)
	}
	if c.Paused {
		t.Error("new connector should not be paused")
	}

	missing, err := db.GetConnector(ctx, "conn-unknown")
	if err != nil {
		t.Fatalf("GetConnector failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown connector, got %+v", missing)
	}

	if err := db.SetPaused(ctx, "conn-1", true); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	c, _ = db.GetConnector(ctx, "conn-1")
	if !c.Paused {
		t.Error("connector should be paused")
	}

	if err := db.UpdateSyncCursor(ctx, "conn-1", "token-42"); err != nil {
		t.Fatalf("UpdateSyncCursor failed: %v", err)
	}
	c, _ = db.GetConnector(ctx, "conn-1")
	if c.SyncCursor != "token-42" {
		t.Errorf("got cursor %q, want token-42", c.SyncCursor)
	}
}

func TestListConnectors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	connectors, err := db.ListConnectors(ctx)
	if err != nil {
		t.Fatalf("ListConnectors failed: %v", err)
	}
	if len(connectors) != 0 {
		t.Errorf("expected empty list, got %d", len(connectors))
	}

	createTestConnector(t, db, "conn-a")
	createTestConnector(t, db, "conn-b")

	connectors, err = db.ListConnectors(ctx)
	if err != nil {
		t.Fatalf("ListConnectors failed: %v", err)
	}
	if len(connectors) != 2 {
		t.Fatalf("expected 2 connectors, got %d", len(connectors))
	}
}

func TestFolderSelectionIdempotency(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	inserted, err := db.UpsertFolder(ctx, "conn-1", "folder-1")
	if err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}
	if !inserted {
		t.Error("first upsert should report inserted")
	}

	inserted, err = db.UpsertFolder(ctx, "conn-1", "folder-1")
	if err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}
	if inserted {
		t.Error("second upsert of same folder should be a no-op")
	}

	deleted, err := db.DeleteFolder(ctx, "conn-1", "folder-1")
	if err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}
	if !deleted {
		t.Error("delete of existing folder should report deleted")
	}

	deleted, err = db.DeleteFolder(ctx, "conn-1", "folder-1")
	if err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}
	if deleted {
		t.Error("delete of absent folder should be a no-op")
	}
}

func TestFolderExistsIsPerConnector(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")
	createTestConnector(t, db, "conn-2")

	if _, err := db.UpsertFolder(ctx, "conn-1", "folder-1"); err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}

	exists, err := db.FolderExists(ctx, "conn-1", "folder-1")
	if err != nil {
		t.Fatalf("FolderExists failed: %v", err)
	}
	if !exists {
		t.Error("folder should exist for conn-1")
	}

	exists, err = db.FolderExists(ctx, "conn-2", "folder-1")
	if err != nil {
		t.Fatalf("FolderExists failed: %v", err)
	}
	if exists {
		t.Error("folder must not leak into another connector")
	}
}

func TestFileUpsertAndChildren(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	files := []MirroredFile{
		{ConnectorID: "conn-1", FileID: "f-1", ParentID: "root", Name: "Budget", MimeType: "application/pdf"},
		{ConnectorID: "conn-1", FileID: "f-2", ParentID: "root", Name: "Reports", MimeType: "application/vnd.google-apps.folder"},
		{ConnectorID: "conn-1", FileID: "f-3", ParentID: "f-2", Name: "Q1", MimeType: "application/pdf"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	children, err := db.FindChildren(ctx, "conn-1", "root")
	if err != nil {
		t.Fatalf("FindChildren failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children of root, got %d", len(children))
	}

	// Rename via upsert must replace, not duplicate
	if err := db.UpsertFile(ctx, MirroredFile{
		ConnectorID: "conn-1", FileID: "f-1", ParentID: "root", Name: "Budget v2", MimeType: "application/pdf",
	}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}
	f, err := db.GetFile(ctx, "conn-1", "f-1")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if f == nil || f.Name != "Budget v2" {
		t.Errorf("expected renamed file, got %+v", f)
	}
	children, _ = db.FindChildren(ctx, "conn-1", "root")
	if len(children) != 2 {
		t.Errorf("upsert must not duplicate rows, got %d children", len(children))
	}

	hasChild, err := db.ChildExists(ctx, "conn-1", "f-2")
	if err != nil {
		t.Fatalf("ChildExists failed: %v", err)
	}
	if !hasChild {
		t.Error("f-2 should have a child")
	}
	hasChild, _ = db.ChildExists(ctx, "conn-1", "f-3")
	if hasChild {
		t.Error("f-3 should have no children")
	}
}

func TestResolveNames(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	if err := db.UpsertFile(ctx, MirroredFile{
		ConnectorID: "conn-1", FileID: "f-1", Name: "Notes",
	}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	names, err := db.ResolveNames(ctx, "conn-1", []string{"f-1", "f-missing"})
	if err != nil {
		t.Fatalf("ResolveNames failed: %v", err)
	}
	if len(names) != 1 || names["f-1"] != "Notes" {
		t.Errorf("unexpected names: %v", names)
	}

	names, err = db.ResolveNames(ctx, "conn-1", nil)
	if err != nil {
		t.Fatalf("ResolveNames failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty map for empty input, got %v", names)
	}
}

func TestGarbageCollectRemovesUnreachable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	if _, err := db.UpsertFolder(ctx, "conn-1", "root-1"); err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}

	files := []MirroredFile{
		{ConnectorID: "conn-1", FileID: "a", ParentID: "root-1", Name: "a"},
		{ConnectorID: "conn-1", FileID: "b", ParentID: "a", Name: "b"},
		// orphaned subtree from a deselected root
		{ConnectorID: "conn-1", FileID: "x", ParentID: "root-gone", Name: "x"},
		{ConnectorID: "conn-1", FileID: "y", ParentID: "x", Name: "y"},
	}
	if err := db.UpsertFilesBatch(ctx, files); err != nil {
		t.Fatalf("UpsertFilesBatch failed: %v", err)
	}

	removed, err := db.GarbageCollect(ctx, "conn-1")
	if err != nil {
		t.Fatalf("GarbageCollect failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 rows removed, got %d", removed)
	}

	for _, id := range []string{"a", "b"} {
		f, _ := db.GetFile(ctx, "conn-1", id)
		if f == nil {
			t.Errorf("reachable file %s was collected", id)
		}
	}
	for _, id := range []string{"x", "y"} {
		f, _ := db.GetFile(ctx, "conn-1", id)
		if f != nil {
			t.Errorf("unreachable file %s survived collection", id)
		}
	}
}

func TestChannelPersistence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	ch := WebhookChannel{
		ConnectorID: "conn-1",
		ChannelID:   "chan-1",
		ResourceID:  "res-1",
		ExpiresAt:   1700000000,
		RenewedAt:   1699000000,
	}
	if err := db.SaveChannel(ctx, ch); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}

	got, err := db.FindChannelByID(ctx, "chan-1")
	if err != nil {
		t.Fatalf("FindChannelByID failed: %v", err)
	}
	if got == nil || got.ConnectorID != "conn-1" {
		t.Fatalf("unexpected channel: %+v", got)
	}

	// One channel per connector: a second save replaces the first
	replacement := WebhookChannel{
		ConnectorID: "conn-1",
		ChannelID:   "chan-2",
		ResourceID:  "res-2",
		ExpiresAt:   1800000000,
		RenewedAt:   1700000000,
	}
	if err := db.SaveChannel(ctx, replacement); err != nil {
		t.Fatalf("SaveChannel replace failed: %v", err)
	}

	got, err = db.FindChannelByConnector(ctx, "conn-1")
	if err != nil {
		t.Fatalf("FindChannelByConnector failed: %v", err)
	}
	if got == nil || got.ChannelID != "chan-2" {
		t.Fatalf("expected replaced channel, got %+v", got)
	}

	stale, err := db.FindChannelByID(ctx, "chan-1")
	if err != nil {
		t.Fatalf("FindChannelByID failed: %v", err)
	}
	if stale != nil {
		t.Errorf("old channel should be gone, got %+v", stale)
	}

	if err := db.DeleteChannel(ctx, "conn-1"); err != nil {
		t.Fatalf("DeleteChannel failed: %v", err)
	}
	got, _ = db.FindChannelByConnector(ctx, "conn-1")
	if got != nil {
		t.Errorf("channel should be deleted, got %+v", got)
	}
}

func TestSyncConfigBumpsVersion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	if err := db.SetSyncConfig(ctx, "conn-1", "include_shortcuts", "true"); err != nil {
		t.Fatalf("SetSyncConfig failed: %v", err)
	}

	value, ok, err := db.GetSyncConfig(ctx, "conn-1", "include_shortcuts")
	if err != nil {
		t.Fatalf("GetSyncConfig failed: %v", err)
	}
	if !ok || value != "true" {
		t.Errorf("got (%q, %v), want (true, true)", value, ok)
	}

	c, _ := db.GetConnector(ctx, "conn-1")
	if c.ConfigVersion != 1 {
		t.Errorf("config version should bump to 1, got %d", c.ConfigVersion)
	}

	if err := db.SetSyncConfig(ctx, "conn-1", "include_shortcuts", "false"); err != nil {
		t.Fatalf("SetSyncConfig failed: %v", err)
	}
	c, _ = db.GetConnector(ctx, "conn-1")
	if c.ConfigVersion != 2 {
		t.Errorf("config version should bump to 2, got %d", c.ConfigVersion)
	}

	configs, err := db.ListSyncConfig(ctx, "conn-1")
	if err != nil {
		t.Fatalf("ListSyncConfig failed: %v", err)
	}
	if configs["include_shortcuts"] != "false" {
		t.Errorf("unexpected configs: %v", configs)
	}
}

func TestDeleteConnectorCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createTestConnector(t, db, "conn-1")

	if _, err := db.UpsertFolder(ctx, "conn-1", "folder-1"); err != nil {
		t.Fatalf("UpsertFolder failed: %v", err)
	}
	if err := db.UpsertFile(ctx, MirroredFile{ConnectorID: "conn-1", FileID: "f-1", Name: "f"}); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}
	if err := db.SaveChannel(ctx, WebhookChannel{ConnectorID: "conn-1", ChannelID: "chan-1", ExpiresAt: 1, RenewedAt: 1}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}
	if err := db.SetSyncConfig(ctx, "conn-1", "k", "v"); err != nil {
		t.Fatalf("SetSyncConfig failed: %v", err)
	}

	if err := db.DeleteConnector(ctx, "conn-1"); err != nil {
		t.Fatalf("DeleteConnector failed: %v", err)
	}

	c, _ := db.GetConnector(ctx, "conn-1")
	if c != nil {
		t.Error("connector should be gone")
	}
	folders, _ := db.ListFolders(ctx, "conn-1")
	if len(folders) != 0 {
		t.Error("folders should be gone")
	}
	f, _ := db.GetFile(ctx, "conn-1", "f-1")
	if f != nil {
		t.Error("files should be gone")
	}
	ch, _ := db.FindChannelByConnector(ctx, "conn-1")
	if ch != nil {
		t.Error("channel should be gone")
	}
	configs, _ := db.ListSyncConfig(ctx, "conn-1")
	if len(configs) != 0 {
		t.Error("configs should be gone")
	}
}
