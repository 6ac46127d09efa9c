package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tubesync/internal/ipc"
)

func newQueueCommand(cmdCtx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and control the download queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(cmd, cmdCtx, false)
		},
	}

	var sortByTitle bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the displayed download queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(cmd, cmdCtx, sortByTitle)
		},
	}
	listCmd.Flags().BoolVar(&sortByTitle, "sort-title", false, "Sort entries by title instead of queue order")

	toggleCmd := &cobra.Command{
		Use:   "toggle <video-id>",
		Short: "Start a download, or cancel the one already tracked for the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.Toggle(args[0])
				if err != nil {
					return fmt.Errorf("toggle download: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	queueCmd.AddCommand(listCmd)
	queueCmd.AddCommand(toggleCmd)
	return queueCmd
}

func runQueueList(cmd *cobra.Command, cmdCtx *commandContext, sortByTitle bool) error {
	return cmdCtx.withClient(func(client *ipc.Client) error {
		resp, err := client.Queue()
		if err != nil {
			return fmt.Errorf("query queue: %w", err)
		}
		entries := resp.Entries
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
			return nil
		}

		if sortByTitle {
			collator := collate.New(language.Und, collate.IgnoreCase)
			sort.Slice(entries, func(i, j int) bool {
				return collator.CompareString(entries[i].Title, entries[j].Title) < 0
			})
		}

		rows := make([][]string, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, []string{
				entry.VideoID,
				entry.Title,
				formatDuration(entry.DurationSeconds),
				entry.Status,
				formatExclusion(entry),
			})
		}
		headers := []string{"Video", "Title", "Duration", "Status", "Excluded"}
		aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
		return nil
	})
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatExclusion(entry ipc.QueueEntry) string {
	if !entry.Excluded {
		return "no"
	}
	if entry.ExclusionReason == "" || entry.ExclusionReason == "none" {
		return "yes"
	}
	return "yes (" + entry.ExclusionReason + ")"
}
