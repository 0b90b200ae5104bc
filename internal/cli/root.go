// Package cli provides the command-line interface for shopchat.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sellerapp/shopchat/internal/api"
	"github.com/sellerapp/shopchat/internal/auth"
	"github.com/sellerapp/shopchat/internal/config"
	"github.com/sellerapp/shopchat/internal/persist"
	"github.com/sellerapp/shopchat/internal/service"
	"github.com/sellerapp/shopchat/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared wiring, built in PersistentPreRunE.
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	adapter    persist.Adapter
	appStore   *store.Store
	tokens     *auth.TokenStore
	chatSvc    *service.ChatService
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shopchat",
	Short: "Terminal chat client for the Sellerapp product search",
	Long: `Shopchat is a terminal chat client for the Sellerapp AI product search.

Conversations are kept locally: every session and message is stored in a
durable state slot on this machine and survives restarts. Sign in with a
Google ID token to query the backend.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		var err error
		adapter, err = openAdapter(cfg, logger)
		if err != nil {
			return fmt.Errorf("open state slot: %w", err)
		}

		appStore = store.New(adapter, logger)
		tokens = &auth.TokenStore{}
		// Bearer tokens are not persisted; each process picks one up from
		// the environment or the login command.
		if token := os.Getenv("SHOPCHAT_ID_TOKEN"); token != "" {
			tokens.Set(token)
		}
		client := api.New(cfg.APIBaseURL, tokens, logger)
		chatSvc = service.NewChatService(appStore, client, logger, cfg.Location)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if adapter != nil {
			if err := adapter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close state slot: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// openAdapter picks the durable slot backend from configuration.
func openAdapter(cfg config.Config, logger *slog.Logger) (persist.Adapter, error) {
	switch cfg.StateBackend {
	case "sqlite":
		return persist.NewSQLiteSlot(cfg.StateDB, persist.DefaultSlotName, logger)
	case "", "file":
		return persist.NewFileSlot(cfg.StateFile, logger)
	default:
		return nil, fmt.Errorf("unknown state backend %q (want file or sqlite)", cfg.StateBackend)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(exportCmd)
}
