package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/webhook"
	"github.com/olekukonko/tablewriter"
)

func writeJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeNodeTable(nodes []types.ContentNode) {
	if len(nodes) == 0 {
		fmt.Println("No nodes found")
		return
	}

	table := newTable([]string{"ID", "Title", "Kind", "Permission", "Expandable"})
	for _, n := range nodes {
		table.Append([]string{
			truncate(n.ID, 25),
			truncate(n.Title, 40),
			string(n.Kind),
			string(n.Permission),
			fmt.Sprintf("%t", n.Expandable),
		})
	}
	table.Render()
}

func writeConnectorTable(connectors []store.Connector) {
	if len(connectors) == 0 {
		fmt.Println("No connectors found")
		return
	}

	table := newTable([]string{"ID", "Provider", "Workspace", "Paused", "Created"})
	for _, c := range connectors {
		table.Append([]string{
			c.ID,
			c.Provider,
			c.WorkspaceID,
			fmt.Sprintf("%t", c.Paused),
			time.Unix(c.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func writeChannelTable(channels []store.WebhookChannel, now time.Time) {
	if len(channels) == 0 {
		fmt.Println("No channels registered")
		return
	}

	table := newTable([]string{"Connector", "Channel", "Resource", "Expires", "Renew"})
	for i := range channels {
		ch := channels[i]
		renew := "-"
		if webhook.IsExpiringSoon(&ch, now) {
			renew = "due"
		}
		table.Append([]string{
			ch.ConnectorID,
			truncate(ch.ChannelID, 25),
			truncate(ch.ResourceID, 25),
			time.Unix(ch.ExpiresAt, 0).UTC().Format("2006-01-02 15:04:05"),
			renew,
		})
	}
	table.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
