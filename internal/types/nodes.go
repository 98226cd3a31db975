package types

// Permission is the access level a connector tracks for a remote node
type Permission string

const (
	PermissionRead Permission = "read"
	PermissionNone Permission = "none"
)

// Valid reports whether the permission is one of the accepted values
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionNone
}

// Filter selects which view a visible-nodes listing produces
type Filter string

const (
	// FilterReadOnly lists nodes already granted to the connector
	FilterReadOnly Filter = "read-only"
	// FilterDiscover browses remote state to pick new selections
	FilterDiscover Filter = "discover"
)

// NodeKind classifies a node as a container or a leaf
type NodeKind string

const (
	NodeKindFolder NodeKind = "folder"
	NodeKindFile   NodeKind = "file"
)

// RemoteNode is an immutable snapshot of provider state at fetch time
type RemoteNode struct {
	ID           string `json:"id"`
	ParentID     string `json:"parentId,omitempty"`
	Name         string `json:"name"`
	Kind         NodeKind `json:"kind"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
}

// ContentNode is a node in the externally visible permission tree
type ContentNode struct {
	ID           string     `json:"id"`
	ParentID     string     `json:"parentId,omitempty"`
	Title        string     `json:"title"`
	Kind         NodeKind   `json:"kind"`
	Permission   Permission `json:"permission"`
	Expandable   bool       `json:"expandable"`
	ModifiedTime string     `json:"modifiedTime,omitempty"`
	WebViewLink  string     `json:"webViewLink,omitempty"`
}
