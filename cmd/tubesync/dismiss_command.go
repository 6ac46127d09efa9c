package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubesync/internal/ipc"
)

func newDismissCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss",
		Short: "Dismiss the download notification on every device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.Dismiss()
				if err != nil {
					return fmt.Errorf("dismiss notification: %w", err)
				}
				if resp.Dismissed {
					fmt.Fprintln(cmd.OutOrStdout(), "notification dismissed")
				}
				return nil
			})
		},
	}
}
