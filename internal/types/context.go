package types

// RequestType categorizes outbound provider API calls for logging
type RequestType string

const (
	RequestTypeListChildren RequestType = "list_children"
	RequestTypeGetNode      RequestType = "get_node"
	RequestTypeListDrives   RequestType = "list_drives"
	RequestTypeWatch        RequestType = "watch"
	RequestTypeStopChannel  RequestType = "stop_channel"
	RequestTypeStartToken   RequestType = "start_page_token"
)

// RequestContext carries per-call correlation data for provider requests
type RequestContext struct {
	ConnectorID     string
	InvolvedNodeIDs []string
	RequestType     RequestType
	TraceID         string
}
