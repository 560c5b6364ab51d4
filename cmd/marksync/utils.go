package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/openmined/marksync/internal/codec"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/spf13/cobra"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold      = lipgloss.NewStyle().Bold(true)
	lightGray = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
)

func severityStyle(s conflict.Severity) lipgloss.Style {
	switch s {
	case conflict.SeverityHigh:
		return red
	case conflict.SeverityMedium:
		return yellow
	default:
		return lightGray
	}
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := codec.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
