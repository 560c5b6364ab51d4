package main

import (
	"fmt"

	"github.com/openmined/marksync/internal/controlplane/handlers"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRetentionCmd())
}

func newRetentionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Backup retention",
	}
	cmd.AddCommand(newRetentionEnforceCmd())
	return cmd
}

func newRetentionEnforceCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "enforce <schedule>",
		Short: "Trim a schedule to its newest successful backups",
		Long: `Trim a schedule to its newest successful backups.

Without --keep the schedule's configured policy applies. --keep -1 keeps everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			req := &handlers.EnforceRetentionRequest{ScheduleID: args[0]}
			if cmd.Flags().Changed("keep") {
				req.RetentionCount = &keep
			}

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.EnforceRetention(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, resp)
			}
			fmt.Fprintf(out, "%s keep=%d removed=%d\n", cyan.Render(resp.ScheduleID), resp.RetentionCount, resp.Removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "override the schedule's retention count")
	return cmd
}
