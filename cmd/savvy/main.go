// Package main implements savvy, a terminal client for Savvy Bot.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"savvybot-backend/internal/config"
	"savvybot-backend/internal/gateway"
	"savvybot-backend/internal/kv"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/notify"
	"savvybot-backend/internal/persistence"
	"savvybot-backend/internal/store/local"
)

var (
	apiURL     string
	backendURL string
	token      string
	offline    bool
	verbose    bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "savvy",
	Short: "Chat with Savvy Bot from the terminal",
	Long: `savvy is a command-line client for Savvy Bot, the personal-finance assistant.
It talks to the chat backend and the conversation persistence API, and keeps a
local copy of conversations for when the API is unreachable.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "persistence API base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "chat backend URL (default from CHAT_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("SAVVY_TOKEN"), "bearer token for the persistence API")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use canned replies and local storage only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(receiptCmd)
	rootCmd.AddCommand(transcribeCmd)
}

// app holds the clients every subcommand needs.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	gateway  *gateway.Client
	store    persistence.Store
	notifier notify.Sink
	closeFn  func() error
}

func (a *app) Close() error {
	if a.closeFn != nil {
		return a.closeFn()
	}
	return nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if backendURL != "" {
		cfg.ChatBackendURL = backendURL
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logging.NewLogger(logging.Config{Level: level, Pretty: true, Output: cmd.ErrOrStderr(), Service: "savvy-cli"})

	errOut := cmd.ErrOrStderr()
	notifier := notify.SinkFunc(func(n notify.Notification) {
		fmt.Fprintf(errOut, "[%s] %s\n", n.Title, n.Description)
	})

	db, err := kv.OpenSQLite(cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	localStore, err := local.Open(cmd.Context(), db, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	var st persistence.Store = persistence.NewLocal(localStore, log)
	if !offline {
		remote := persistence.NewRemote(persistence.RemoteOptions{BaseURL: cfg.APIBaseURL, Token: token, Logger: log})
		st = persistence.NewFallback(remote, persistence.NewLocal(localStore, log), notifier, log)
	}

	return &app{
		cfg: cfg,
		log: log,
		gateway: gateway.New(gateway.Options{
			BaseURL:   cfg.ChatBackendURL,
			RateLimit: cfg.GatewayRateLimit,
			Logger:    log,
		}),
		store:    st,
		notifier: notifier,
		closeFn:  localStore.Close,
	}, nil
}
