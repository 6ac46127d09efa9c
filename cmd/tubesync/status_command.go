package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tubesync/internal/ipc"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync client status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("query status: %w", err)
				}
				rows := [][]string{
					{"Running", yesNo(status.Running)},
					{"Connected", yesNo(status.Connected)},
					{"Client ID", status.ClientID},
					{"Active downloads", strconv.Itoa(status.ActiveDownloads)},
					{"Queue length", strconv.Itoa(status.QueueLength)},
					{"Exclusion DB", status.DatabasePath},
					{"PID", strconv.Itoa(status.PID)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}
