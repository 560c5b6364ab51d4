package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/marksync/internal/config"
	"github.com/openmined/marksync/internal/utils"
	"github.com/openmined/marksync/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "marksync",
	Short:   "Bookmark sync preview, conflict resolution and backup retention",
	Version: version.Detailed(),
	// no default action; print help
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "marksync config file")
	rootCmd.PersistentFlags().StringP("datadir", "d", config.DefaultDataDir, "marksync data directory")
	rootCmd.PersistentFlags().String("scope", "", "sync scope (default: derived from the machine id)")
	rootCmd.PersistentFlags().String("log-backend", config.LogBackendSQLite, "backup log backend: sqlite, object or memory")
	rootCmd.PersistentFlags().StringP("server", "s", "", "control plane url; when set, commands run against a running 'marksync serve'")
	rootCmd.PersistentFlags().StringP("token", "t", "", "control plane access token")
	rootCmd.PersistentFlags().Bool("json", false, "print machine readable JSON")
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	logFile := config.DefaultLogFilePath
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	// console logs go to stderr so command output stays pipeable
	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// time is added by the log interceptor
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// logLevel keeps the console quiet for one-shot commands. MARKSYNC_DEBUG=1 turns on debug output.
func logLevel() slog.Level {
	if os.Getenv("MARKSYNC_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
