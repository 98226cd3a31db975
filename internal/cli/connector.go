package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/spf13/cobra"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Manage connectors",
	Long:  "Create, inspect and tear down Google Drive connectors",
}

var connectorListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List connectors",
	RunE:  runConnectorList,
}

var connectorAddCmd = &cobra.Command{
	Use:   "add <connector-id>",
	Short: "Create a connector",
	Long: `Create a connector for a workspace, register its webhook channel
and launch the initial full sync.

Examples:
  driveconnect connector add conn-1 --workspace ws-42`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectorAdd,
}

var connectorRemoveCmd = &cobra.Command{
	Use:   "rm <connector-id>",
	Short: "Tear down a connector",
	Long:  "Stop the webhook channel and delete the connector with all its mirrored state",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorRemove,
}

var connectorPauseCmd = &cobra.Command{
	Use:   "pause <connector-id>",
	Short: "Pause notification processing for a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorPause,
}

var connectorResumeCmd = &cobra.Command{
	Use:   "resume <connector-id>",
	Short: "Resume a paused connector and trigger a catch-up sync",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorResume,
}

var connectorSyncCmd = &cobra.Command{
	Use:   "sync <connector-id>",
	Short: "Trigger a full sync for a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorSync,
}

var connectorNodesCmd = &cobra.Command{
	Use:   "nodes <connector-id>",
	Short: "List the permission tree of a connector",
	Long: `List the visible nodes of a connector.

With --filter read-only (the default) only selected folders and their
mirrored children are shown. With --filter discover the remote folder
structure is browsed so new folders can be selected.

Examples:
  driveconnect connector nodes conn-1
  driveconnect connector nodes conn-1 --filter discover
  driveconnect connector nodes conn-1 --parent <folder-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectorNodes,
}

var connectorPermsCmd = &cobra.Command{
	Use:   "perms <connector-id> <node-id>=<read|none> ...",
	Short: "Grant or revoke folder selections",
	Long: `Apply a batch of permission changes. Every assignment must be
read or none; an invalid value rejects the whole batch before anything
is applied. A batch that changed at least one selection triggers a full
sync.

Examples:
  driveconnect connector perms conn-1 folder-a=read
  driveconnect connector perms conn-1 folder-a=read folder-b=none`,
	Args: cobra.MinimumNArgs(2),
	RunE: runConnectorPerms,
}

var connectorConfigCmd = &cobra.Command{
	Use:   "config <connector-id> [key] [value]",
	Short: "Show or set sync configuration for a connector",
	Long: `With no key, list the connector's sync configuration. With a key,
print its value. With a key and a value, set it; any change bumps the
connector's config version, so the next sync runs as a full sync.

Examples:
  driveconnect connector config conn-1
  driveconnect connector config conn-1 exclude_pattern
  driveconnect connector config conn-1 exclude_pattern '*.tmp'`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runConnectorConfig,
}

var (
	connectorWorkspace string
	connectorParent    string
	connectorFilter    string
)

func init() {
	connectorAddCmd.Flags().StringVar(&connectorWorkspace, "workspace", "", "Workspace the connector belongs to (required)")
	connectorAddCmd.MarkFlagRequired("workspace")

	connectorNodesCmd.Flags().StringVar(&connectorParent, "parent", "", "Parent folder to list under (empty for roots)")
	connectorNodesCmd.Flags().StringVar(&connectorFilter, "filter", string(types.FilterReadOnly), "Filter (read-only, discover)")

	connectorCmd.AddCommand(connectorListCmd)
	connectorCmd.AddCommand(connectorAddCmd)
	connectorCmd.AddCommand(connectorRemoveCmd)
	connectorCmd.AddCommand(connectorPauseCmd)
	connectorCmd.AddCommand(connectorResumeCmd)
	connectorCmd.AddCommand(connectorSyncCmd)
	connectorCmd.AddCommand(connectorNodesCmd)
	connectorCmd.AddCommand(connectorPermsCmd)
	connectorCmd.AddCommand(connectorConfigCmd)
	rootCmd.AddCommand(connectorCmd)
}

func runConnectorList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	connectors, err := rt.db.ListConnectors(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(map[string]interface{}{"connectors": connectors})
	}
	writeConnectorTable(connectors)
	return nil
}

func runConnectorAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Create(ctx, args[0], connectorWorkspace); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(map[string]string{"status": "created", "connectorId": args[0]})
	}
	fmt.Printf("Created connector %s\n", args[0])
	return nil
}

func runConnectorRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Cleanup(ctx, args[0]); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(map[string]string{"status": "deleted", "connectorId": args[0]})
	}
	fmt.Printf("Deleted connector %s\n", args[0])
	return nil
}

func runConnectorPause(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Stop(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Paused connector %s\n", args[0])
	return nil
}

func runConnectorResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Resume(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Resumed connector %s\n", args[0])
	return nil
}

func runConnectorSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Sync(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Triggered full sync for connector %s\n", args[0])
	return nil
}

func runConnectorPerms(cmd *cobra.Command, args []string) error {
	changes := make(map[string]types.Permission, len(args)-1)
	for _, arg := range args[1:] {
		nodeID, value, ok := strings.Cut(arg, "=")
		if !ok || nodeID == "" {
			return fmt.Errorf("invalid assignment %q, expected <node-id>=<read|none>", arg)
		}
		changes[nodeID] = types.Permission(value)
	}

	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.reconciler.ApplyPermissionChanges(ctx, args[0], changes); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(map[string]interface{}{"status": "applied", "connectorId": args[0], "changes": len(changes)})
	}
	fmt.Printf("Applied %d permission changes to connector %s\n", len(changes), args[0])
	return nil
}

func runConnectorConfig(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch len(args) {
	case 1:
		configs, err := rt.db.ListSyncConfig(ctx, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(map[string]interface{}{"config": configs})
		}
		for key, value := range configs {
			fmt.Printf("%s=%s\n", key, value)
		}
		return nil
	case 2:
		value, ok, err := rt.db.GetSyncConfig(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("config key %q is not set", args[1])
		}
		fmt.Println(value)
		return nil
	default:
		if err := rt.provider.UpdateSyncConfig(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("Set %s for connector %s; full sync triggered\n", args[1], args[0])
		return nil
	}
}

func runConnectorNodes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	nodes, err := rt.reconciler.ListVisibleNodes(ctx, args[0], connectorParent, types.Filter(connectorFilter))
	if err != nil {
		return err
	}

	if flagJSON {
		if nodes == nil {
			nodes = []types.ContentNode{}
		}
		return writeJSON(map[string]interface{}{"nodes": nodes})
	}
	writeNodeTable(nodes)
	return nil
}
