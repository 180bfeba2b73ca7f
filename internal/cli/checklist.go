package cli

import (
	"fmt"

	"kiosk-backend/internal/bootstrap"
	"kiosk-backend/internal/checklist"

	"github.com/spf13/cobra"
)

func newChecklistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Work with checklist templates",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "print",
			Short: "Print the active checklist template as TOML",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				items, err := bootstrap.Template(cfg)
				if err != nil {
					return err
				}
				data, err := checklist.EncodeTemplate(items)
				if err != nil {
					return fmt.Errorf("encode checklist template: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check a checklist template file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				items, err := checklist.LoadTemplate(args[0])
				if err != nil {
					return err
				}
				stats := checklist.Evaluate(items)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d items, %d required, %d categories\n",
					stats.TotalItems, stats.RequiredTotal, len(checklist.GroupByCategory(items)))
				return nil
			},
		},
	)

	return cmd
}
