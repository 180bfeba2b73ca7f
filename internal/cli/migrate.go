package cli

import (
	"fmt"
	"time"

	"kiosk-backend/internal/bootstrap"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/service"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the session registry schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.RegistryDriver == config.RegistryMemory {
				return errMemoryRegistry
			}

			store, err := bootstrap.OpenSQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.RegistryDriver)

			if !seed {
				return nil
			}
			template, err := bootstrap.Template(cfg)
			if err != nil {
				return err
			}
			seeded := 0
			for _, s := range service.DemoSessions(time.Now().UTC(), template) {
				if _, err := store.Get(cmd.Context(), s.ID); err == nil {
					continue
				}
				if err := store.Insert(cmd.Context(), s); err != nil {
					return fmt.Errorf("seed session %s: %w", s.ID, err)
				}
				seeded++
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d demo sessions\n", seeded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "insert the demo sessions when missing")
	return cmd
}
