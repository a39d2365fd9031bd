package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fazaachat/internal/app"
	"fazaachat/internal/domain/entity"
	"fazaachat/pkg/config"
	"fazaachat/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	userID  string
	verbose bool

	chat *app.App
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Operate on order conversations from the command line",
	Long: `chatctl drives the chat core directly against the configured backend.
It reads the same environment as the API server (CHAT_BACKEND, NOTIFIER, ...).`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger.Init(cfg.Environment, level)

		chat, err = app.New(cmd.Context(), cfg)
		return err
	},
}

// Execute runs the root command and returns the process exit code. The chat
// core is closed whether or not the command succeeded.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if chat != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		chat.Close(closeCtx)
		cancel()
	}
	logger.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "act as this user id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func currentSession() (entity.Session, error) {
	if userID == "" {
		return entity.Session{}, fmt.Errorf("--user is required")
	}
	return entity.Session{CurrentUserID: userID}, nil
}
