// Package cli implements kioskctl, the operator tool for the session
// registry and checklist templates.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kiosk-backend/internal/bootstrap"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/service"

	"github.com/spf13/cobra"
)

var errMemoryRegistry = errors.New("the memory registry does not outlive the server; set REGISTRY_DRIVER to sqlite or postgres")

var version = "dev"

func Execute() error {
	return newRootCmd().Execute()
}

type app struct {
	loadConfig func() (config.Config, error)

	registry   string
	sqlitePath string
	dbURL      string
}

// config loads the environment and applies the registry flags on top.
func (a *app) config() (config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if a.registry != "" {
		cfg.RegistryDriver = a.registry
	}
	if a.sqlitePath != "" {
		cfg.SQLitePath = a.sqlitePath
	}
	if a.dbURL != "" {
		cfg.DatabaseURL = a.dbURL
	}
	return cfg, cfg.Validate()
}

// sessions opens the configured SQL registry behind a session service.
func (a *app) sessions(ctx context.Context) (*service.SessionService, func() error, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	if cfg.RegistryDriver == config.RegistryMemory {
		return nil, nil, errMemoryRegistry
	}

	template, err := bootstrap.Template(cfg)
	if err != nil {
		return nil, nil, err
	}
	cfg.SeedDemoSessions = false
	store, err := bootstrap.OpenStore(ctx, cfg, template)
	if err != nil {
		return nil, nil, err
	}
	return service.NewSessionService(store, template), store.Close, nil
}

func newRootCmd() *cobra.Command {
	a := &app{loadConfig: config.Load}

	rootCmd := &cobra.Command{
		Use:           "kioskctl",
		Short:         "Operate the kiosk backend: registry schema, sessions and checklist templates",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.registry, "registry", "", "registry driver (sqlite or postgres), overrides REGISTRY_DRIVER")
	flags.StringVar(&a.sqlitePath, "sqlite-path", "", "sqlite database file, overrides SQLITE_PATH")
	flags.StringVar(&a.dbURL, "database-url", "", "postgres DSN, overrides DATABASE_URL")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMigrateCmd(a),
		newSessionsCmd(a),
		newLanguagesCmd(),
		newChecklistCmd(a),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kioskctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
