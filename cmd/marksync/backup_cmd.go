package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/backup"
	"github.com/openmined/marksync/internal/controlplane/handlers"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newBackupCmd())
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Record, list and delete backups",
	}
	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupDeleteCmd())
	cmd.AddCommand(newBackupSweepCmd())
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var scheduleID string
	var status string
	var ref string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a finished backup. Scheduled backups are trimmed to their retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			typ := backup.TypeManual
			if scheduleID != "" {
				typ = backup.TypeScheduled
			}

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			saved, err := b.CreateBackup(cmd.Context(), &handlers.CreateBackupRequest{
				Type:       typ,
				ScheduleID: scheduleID,
				Status:     backup.Status(status),
				ContentRef: ref,
			})
			if saved != nil {
				if wantJSON(cmd) {
					if jsonErr := printJSON(cmd.OutOrStdout(), saved); jsonErr != nil {
						return jsonErr
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green.Render("saved"), saved.ID)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&scheduleID, "schedule", "", "schedule id; empty records a manual backup")
	cmd.Flags().StringVar(&status, "status", string(backup.StatusSuccess), "success or failed")
	cmd.Flags().StringVar(&ref, "ref", "", "object key of the backup content")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	var scheduleID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.ListBackups(cmd.Context(), scheduleID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, resp)
			}
			if len(resp.Backups) == 0 {
				fmt.Fprintln(out, gray.Render("no backups"))
				return nil
			}
			for _, r := range resp.Backups {
				fmt.Fprintf(out, "%s  %-9s %-12s %s %s\n", r.ID, r.Type, scheduleLabel(r), statusLabel(r.Status), lightGray.Render(humanize.Time(r.Timestamp)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scheduleID, "schedule", "", "only list backups of this schedule")
	return cmd
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one backup regardless of its type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.DeleteBackup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red.Render("deleted"), args[0])
			return nil
		},
	}
}

func newBackupSweepCmd() *cobra.Command {
	var minAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored backup content that no backup references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.SweepContent(cmd.Context(), &handlers.SweepContentRequest{MinAge: minAge.String()})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, resp)
			}
			fmt.Fprintf(out, "%s %s removed=%d\n", cyan.Render("swept"), resp.Prefix, resp.Removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&minAge, "min-age", app.DefaultSweepMinAge, "only delete content at least this old")
	return cmd
}

func scheduleLabel(r *backup.Record) string {
	if r.ScheduleID == "" {
		return "-"
	}
	return r.ScheduleID
}

func statusLabel(s backup.Status) string {
	if s == backup.StatusSuccess {
		return green.Render(string(s))
	}
	return red.Render(string(s))
}
