package cli

import (
	"fmt"

	"kiosk-backend/internal/i18n"

	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the supported citizen languages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs := i18n.Supported()
			if asJSON {
				return writeJSON(cmd, langs)
			}
			for _, l := range langs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", l.Code, l.Name, l.NativeName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
