package reconciler

import (
	"context"
	"sort"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"golang.org/x/sync/errgroup"
)

// RemoteDirectory is the provider listing contract the reconciler consumes
type RemoteDirectory interface {
	ListChildFolders(ctx context.Context, connectorID, parentID string) ([]types.RemoteNode, error)
	ListSharedDrives(ctx context.Context, connectorID string) ([]types.RemoteNode, error)
	GetNode(ctx context.Context, connectorID, id string) (*types.RemoteNode, error)
}

// Launcher triggers workflows on the external engine. The reconciler never
// waits for the triggered work; only the trigger itself can fail.
type Launcher interface {
	TriggerFullSync(ctx context.Context, connectorID, cursor string) error
}

// Reconciler computes the externally visible permission tree and keeps the
// local mirror in agreement with selections.
type Reconciler struct {
	db       *store.DB
	remote   RemoteDirectory
	launcher Launcher
	logger   logging.Logger
}

// New creates a reconciler
func New(db *store.DB, remote RemoteDirectory, launcher Launcher, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reconciler{
		db:       db,
		remote:   remote,
		launcher: launcher,
		logger:   logger,
	}
}

// ListVisibleNodes produces the permission tree below parentID. An empty
// parentID means the top level. The read-only filter answers from granted
// state; the discover filter browses remote state for new selections.
// Results are always folders first, then case-sensitive lexicographic by
// title, regardless of remote ordering.
func (r *Reconciler) ListVisibleNodes(ctx context.Context, connectorID, parentID string, filter types.Filter) ([]types.ContentNode, error) {
	connector, err := r.requireConnector(ctx, connectorID)
	if err != nil {
		return nil, err
	}

	var nodes []types.ContentNode
	switch filter {
	case types.FilterReadOnly:
		if parentID == "" {
			nodes, err = r.listSelectedRoots(ctx, connector.ID)
		} else {
			nodes, err = r.listMirroredChildren(ctx, connector.ID, parentID)
		}
	case types.FilterDiscover:
		if parentID == "" {
			nodes, err = r.discoverRoots(ctx, connector.ID)
		} else {
			nodes, err = r.discoverChildFolders(ctx, connector.ID, parentID)
		}
	default:
		return nil, utils.NewAppError(utils.NewServiceError(utils.ErrCodeInvalidArgument,
			"unknown filter").WithContext("filter", string(filter)).Build())
	}
	if err != nil {
		return nil, err
	}

	sortNodes(nodes)
	return nodes, nil
}

// listSelectedRoots enriches every selected folder with live remote
// metadata. Folders gone remotely are treated as revoked and excluded.
func (r *Reconciler) listSelectedRoots(ctx context.Context, connectorID string) ([]types.ContentNode, error) {
	folders, err := r.db.ListFolders(ctx, connectorID)
	if err != nil {
		return nil, err
	}

	results := make([]*types.ContentNode, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ReconcilerFanOut)

	for i, folder := range folders {
		g.Go(func() error {
			remote, err := r.remote.GetNode(gctx, connectorID, folder.FolderID)
			if err != nil {
				return err
			}
			if remote == nil {
				r.logger.Warn("Selected folder missing remotely, excluding from listing",
					logging.F("connectorId", connectorID),
					logging.F("folderId", folder.FolderID),
				)
				return nil
			}

			expandable, err := r.db.ChildExists(gctx, connectorID, folder.FolderID)
			if err != nil {
				return err
			}

			results[i] = &types.ContentNode{
				ID:           remote.ID,
				Title:        remote.Name,
				Kind:         types.NodeKindFolder,
				Permission:   types.PermissionRead,
				Expandable:   expandable,
				ModifiedTime: remote.ModifiedTime,
				WebViewLink:  remote.WebViewLink,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	nodes := make([]types.ContentNode, 0, len(results))
	for _, n := range results {
		if n != nil {
			nodes = append(nodes, *n)
		}
	}
	return nodes, nil
}

// listMirroredChildren answers entirely from the local mirror
func (r *Reconciler) listMirroredChildren(ctx context.Context, connectorID, parentID string) ([]types.ContentNode, error) {
	children, err := r.db.FindChildren(ctx, connectorID, parentID)
	if err != nil {
		return nil, err
	}

	nodes := make([]types.ContentNode, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ReconcilerFanOut)

	for i, child := range children {
		g.Go(func() error {
			expandable, err := r.db.ChildExists(gctx, connectorID, child.FileID)
			if err != nil {
				return err
			}
			kind := types.NodeKindFile
			if utils.IsFolderMimeType(child.MimeType) {
				kind = types.NodeKindFolder
			}
			nodes[i] = types.ContentNode{
				ID:         child.FileID,
				ParentID:   child.ParentID,
				Title:      child.Name,
				Kind:       kind,
				Permission: types.PermissionRead,
				Expandable: expandable,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// discoverRoots lists top-level remote containers annotated with the
// connector's current selection state
func (r *Reconciler) discoverRoots(ctx context.Context, connectorID string) ([]types.ContentNode, error) {
	drives, err := r.remote.ListSharedDrives(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	return r.annotateRemoteFolders(ctx, connectorID, drives)
}

// discoverChildFolders pages the remote API for child folders (not files)
func (r *Reconciler) discoverChildFolders(ctx context.Context, connectorID, parentID string) ([]types.ContentNode, error) {
	folders, err := r.remote.ListChildFolders(ctx, connectorID, parentID)
	if err != nil {
		return nil, err
	}
	return r.annotateRemoteFolders(ctx, connectorID, folders)
}

func (r *Reconciler) annotateRemoteFolders(ctx context.Context, connectorID string, remoteNodes []types.RemoteNode) ([]types.ContentNode, error) {
	nodes := make([]types.ContentNode, len(remoteNodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ReconcilerFanOut)

	for i, rn := range remoteNodes {
		g.Go(func() error {
			selected, err := r.db.FolderExists(gctx, connectorID, rn.ID)
			if err != nil {
				return err
			}
			permission := types.PermissionNone
			if selected {
				permission = types.PermissionRead
			}
			nodes[i] = types.ContentNode{
				ID:           rn.ID,
				ParentID:     rn.ParentID,
				Title:        rn.Name,
				Kind:         types.NodeKindFolder,
				Permission:   permission,
				Expandable:   true,
				ModifiedTime: rn.ModifiedTime,
				WebViewLink:  rn.WebViewLink,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *Reconciler) requireConnector(ctx context.Context, connectorID string) (*store.Connector, error) {
	connector, err := r.db.GetConnector(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if connector == nil {
		return nil, utils.NewAppError(utils.NewServiceError(utils.ErrCodeConnectorNotFound,
			"connector does not exist").WithContext("connectorId", connectorID).Build())
	}
	return connector, nil
}

// sortNodes orders folders before files, then case-sensitive lexicographic
// by title. Stable so equal titles keep their relative order.
func sortNodes(nodes []types.ContentNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == types.NodeKindFolder
		}
		return nodes[i].Title < nodes[j].Title
	})
}
