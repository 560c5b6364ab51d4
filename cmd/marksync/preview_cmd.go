package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/openmined/marksync/internal/preview"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newPreviewCmd())
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show what the next sync would change, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			scope, _ := cmd.Flags().GetString("scope")
			result, err := b.Preview(cmd.Context(), scope)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, result)
			}
			if !result.Success {
				fmt.Fprintln(out, red.Render("preview failed: "+result.Message))
				return errors.New(result.Message)
			}
			printPreview(out, result.Preview)
			return nil
		},
	}
}

func printPreview(w io.Writer, p *preview.Preview) {
	d := p.Details
	fmt.Fprintf(w, "%s %s\n", bold.Render("scope"), cyan.Render(p.Scope))
	fmt.Fprintf(w, "%s %d  %s %d  %s %d  %s %d  %s %d\n",
		gray.Render("local-added"), len(d.Added),
		gray.Render("remote-added"), len(d.RemoteAdded),
		gray.Render("removed"), len(d.Removed),
		gray.Render("conflicts"), len(d.Conflicts),
		gray.Render("unchanged"), d.Unchanged,
	)

	for _, r := range d.Added {
		fmt.Fprintf(w, "  %s %s %q\n", green.Render("+ local "), r.ID, r.Title)
	}
	for _, r := range d.RemoteAdded {
		fmt.Fprintf(w, "  %s %s %q\n", green.Render("+ remote"), r.ID, r.Title)
	}
	for _, r := range d.Removed {
		fmt.Fprintf(w, "  %s %s (%s)\n", red.Render("- removed"), r.ID, r.Side)
	}
	for _, c := range d.Conflicts {
		style := severityStyle(c.Severity)
		fmt.Fprintf(w, "  %s %s %s %s\n", style.Render("! "+string(c.Severity)), c.ID, lightGray.Render(string(c.Type)), gray.Render("changed: "+string(c.Changed)))
	}

	if len(d.Added)+len(d.RemoteAdded)+len(d.Removed)+len(d.Conflicts) == 0 {
		fmt.Fprintln(w, green.Render("in sync"))
	}
}
