package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/spf13/cobra"
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage webhook channels",
	Long:  "Register, renew and inspect Google Drive notification channels",
}

var channelStatusCmd = &cobra.Command{
	Use:   "status [connector-id]",
	Short: "Show webhook channel state",
	Long: `Show the webhook channel of a connector, or of all connectors
when no id is given. Channels inside the renewal window are marked due.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChannelStatus,
}

var channelRegisterCmd = &cobra.Command{
	Use:   "register <connector-id>",
	Short: "Register a webhook channel for a connector",
	Long: `Register a change notification channel with the provider. The
connector's sync cursor is initialized from the current change feed
position so the first incremental sync starts from now.`,
	Args: cobra.ExactArgs(1),
	RunE: runChannelRegister,
}

var channelRenewCmd = &cobra.Command{
	Use:   "renew <connector-id>",
	Short: "Renew a connector's webhook channel",
	Long:  "Stop the current channel and register a fresh one in its place",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannelRenew,
}

func init() {
	channelCmd.AddCommand(channelStatusCmd)
	channelCmd.AddCommand(channelRegisterCmd)
	channelCmd.AddCommand(channelRenewCmd)
	rootCmd.AddCommand(channelCmd)
}

func runChannelStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var channels []store.WebhookChannel
	if len(args) == 1 {
		ch, err := rt.db.FindChannelByConnector(ctx, args[0])
		if err != nil {
			return err
		}
		if ch != nil {
			channels = append(channels, *ch)
		}
	} else {
		connectors, err := rt.db.ListConnectors(ctx)
		if err != nil {
			return err
		}
		for _, c := range connectors {
			ch, err := rt.db.FindChannelByConnector(ctx, c.ID)
			if err != nil {
				return err
			}
			if ch != nil {
				channels = append(channels, *ch)
			}
		}
	}

	if flagJSON {
		return writeJSON(map[string]interface{}{"channels": channels})
	}
	writeChannelTable(channels, time.Now())
	return nil
}

func runChannelRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	channel, err := rt.webhooks.Register(ctx, args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(channel)
	}
	fmt.Printf("Registered channel %s (expires %s)\n",
		channel.ChannelID,
		time.Unix(channel.ExpiresAt, 0).UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func runChannelRenew(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	channel, err := rt.webhooks.Renew(ctx, args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(channel)
	}
	fmt.Printf("Renewed channel for connector %s, new channel %s (expires %s)\n",
		args[0],
		channel.ChannelID,
		time.Unix(channel.ExpiresAt, 0).UTC().Format("2006-01-02 15:04:05"))
	return nil
}
