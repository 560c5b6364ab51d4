package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/controlplane"
	"github.com/openmined/marksync/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var addr string
	var authToken string
	var rateLimit string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the marksync control plane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			slog.Info("marksync", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.ServerAddr = addr
			}
			if cmd.Flags().Changed("http-token") {
				cfg.AuthToken = authToken
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			slog.Info("serve using config", "path", cfg.Path, "scope", cfg.Scope, "log", cfg.LogBackend)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := controlplane.NewServer(a, &controlplane.Config{
				Addr:      cfg.ServerAddr,
				AuthToken: cfg.AuthToken,
				RateLimit: rateLimit,
			})
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			if err := server.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("serve start", "error", err)
				return err
			}
			return nil
		},
	}

	serveCmd.Flags().StringVarP(&addr, "http-addr", "a", "", "address to bind the control plane (default: server_addr from config)")
	serveCmd.Flags().StringVar(&authToken, "http-token", "", "access token for the control plane")
	serveCmd.Flags().StringVar(&rateLimit, "rate-limit", "", "per client rate limit, e.g. 100-M")

	return serveCmd
}
