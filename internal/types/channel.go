package types

// Channel is a provider-issued push notification registration
type Channel struct {
	ID          string            `json:"id"`
	ResourceID  string            `json:"resourceId,omitempty"`
	ResourceURI string            `json:"resourceUri,omitempty"`
	Token       string            `json:"token,omitempty"`
	Type        string            `json:"type,omitempty"`
	Address     string            `json:"address,omitempty"`
	Expiration  int64             `json:"expiration,omitempty"` // ms since epoch
	Params      map[string]string `json:"params,omitempty"`
}
