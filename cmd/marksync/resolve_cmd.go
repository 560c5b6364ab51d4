package main

import (
	"fmt"

	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newResolveCmd())
}

func newResolveCmd() *cobra.Command {
	var strategy string
	var commit bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve every open conflict of a scope with one strategy",
		Long: `Resolve every open conflict of a scope with one strategy.

Strategies: local-wins, remote-wins, merge. Without --commit this is a dry run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			s, err := conflict.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			scope, _ := cmd.Flags().GetString("scope")
			result, err := b.Resolve(cmd.Context(), &app.ResolveRequest{
				Scope:    scope,
				Strategy: s,
				Commit:   commit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, result)
			}

			for _, r := range result.Resolved {
				if r.Result == nil {
					fmt.Fprintf(out, "  %s %s\n", gray.Render("skipped"), r.ConflictID)
					continue
				}
				fmt.Fprintf(out, "  %s %s %q %s\n", green.Render("resolved"), r.ConflictID, r.Result.Title, lightGray.Render(string(r.Strategy)))
			}
			fmt.Fprintf(out, "%s %d resolved, %d pending\n", cyan.Render(result.Scope), result.ResolvedCount, len(result.Pending))
			if result.Committed {
				fmt.Fprintln(out, green.Render("committed"))
			} else {
				fmt.Fprintln(out, yellow.Render("dry run, use --commit to apply"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(conflict.StrategyMerge), "local-wins, remote-wins or merge")
	cmd.Flags().BoolVar(&commit, "commit", false, "write the outcome to the snapshots")
	return cmd
}
