package remote

import (
	"context"
	"fmt"

	"github.com/kestrelhq/driveconnect/internal/api"
	"github.com/kestrelhq/driveconnect/internal/errors"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"google.golang.org/api/drive/v3"
)

const nodeFields = "id,name,mimeType,modifiedTime,parents,trashed,webViewLink"

// Manager lists remote folders, files and drives as normalized node
// descriptors. All pagination loops suspend on ctx between pages.
type Manager struct {
	client *api.Client
}

// NewManager creates a new directory manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// ListChildFolders pages through all child folders of parentID, merging
// pages until the remote reports exhaustion. Files are not included.
func (m *Manager) ListChildFolders(ctx context.Context, connectorID, parentID string) ([]types.RemoteNode, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		parentID, utils.MimeTypeFolder)

	var nodes []types.RemoteNode
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqCtx := api.NewRequestContext(connectorID, types.RequestTypeListChildren)
		m.client.WithNodeIDs(reqCtx, parentID)

		call := m.client.Service().Files.List().
			Q(query).
			Fields("nextPageToken", "files("+nodeFields+")").
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Corpora("allDrives").
			PageSize(utils.FilesPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}

		for _, f := range result.Files {
			nodes = append(nodes, convertFile(f))
		}

		if result.NextPageToken == "" {
			return nodes, nil
		}
		pageToken = result.NextPageToken
	}
}

// ListChildren returns one page of all children (folders and files) of
// parentID together with the token for the next page, if any. Shortcuts
// are excluded; mirroring them would alias subtrees.
func (m *Manager) ListChildren(ctx context.Context, connectorID, parentID, pageToken string) ([]types.RemoteNode, string, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false",
		parentID, utils.MimeTypeShortcut)

	reqCtx := api.NewRequestContext(connectorID, types.RequestTypeListChildren)
	m.client.WithNodeIDs(reqCtx, parentID)

	call := m.client.Service().Files.List().
		Q(query).
		Fields("nextPageToken", "files("+nodeFields+")").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Corpora("allDrives").
		PageSize(utils.FilesPageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
		return call.Do()
	})
	if err != nil {
		return nil, "", err
	}

	nodes := make([]types.RemoteNode, 0, len(result.Files))
	for _, f := range result.Files {
		nodes = append(nodes, convertFile(f))
	}
	return nodes, result.NextPageToken, nil
}

// GetNode fetches one node by id. A remote 404 returns (nil, nil): the
// caller decides whether absence is an error.
func (m *Manager) GetNode(ctx context.Context, connectorID, id string) (*types.RemoteNode, error) {
	reqCtx := api.NewRequestContext(connectorID, types.RequestTypeGetNode)
	m.client.WithNodeIDs(reqCtx, id)

	call := m.client.Service().Files.Get(id).
		Fields(nodeFields).
		SupportsAllDrives(true)

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.File, error) {
		f, callErr := call.Do()
		if callErr != nil && errors.IsNotFound(callErr) {
			return nil, nil
		}
		return f, callErr
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.Trashed {
		return nil, nil
	}

	node := convertFile(result)
	return &node, nil
}

// ListSharedDrives returns all shared drives visible to the credentials,
// as folder nodes with no parent.
func (m *Manager) ListSharedDrives(ctx context.Context, connectorID string) ([]types.RemoteNode, error) {
	var nodes []types.RemoteNode
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqCtx := api.NewRequestContext(connectorID, types.RequestTypeListDrives)

		call := m.client.Service().Drives.List().
			Fields("nextPageToken", "drives(id,name,createdTime)").
			PageSize(utils.DrivesPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.DriveList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}

		for _, d := range result.Drives {
			nodes = append(nodes, types.RemoteNode{
				ID:   d.Id,
				Name: d.Name,
				Kind: types.NodeKindFolder,
			})
		}

		if result.NextPageToken == "" {
			return nodes, nil
		}
		pageToken = result.NextPageToken
	}
}

func convertFile(f *drive.File) types.RemoteNode {
	node := types.RemoteNode{
		ID:           f.Id,
		Name:         f.Name,
		Kind:         types.NodeKindFile,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
	}
	if utils.IsFolderMimeType(f.MimeType) {
		node.Kind = types.NodeKindFolder
	}
	if len(f.Parents) > 0 {
		node.ParentID = f.Parents[0]
	}
	return node
}
