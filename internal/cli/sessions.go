package cli

import (
	"fmt"
	"strings"
	"time"

	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/service"

	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage recorded sessions",
	}

	cmd.AddCommand(
		newSessionsListCmd(a),
		newSessionsShowCmd(a),
		newSessionsCreateCmd(a),
		newSessionsArchiveCmd(a),
	)

	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var (
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeStore, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if status == "all" {
				status = ""
			}
			sessions, err := svc.List(cmd.Context(), models.SessionStatus(status))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, sessions)
			}

			for _, s := range sessions {
				stats := checklist.Evaluate(s.Checklist)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%d/%d required\n",
					s.ID, s.Timestamp.Format(time.RFC3339), s.CitizenLanguage, s.Status,
					stats.RequiredCompleted, stats.RequiredTotal)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sessions: %d\n", len(sessions))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "active, completed or archived; empty or all lists everything not archived")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSessionsShowCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			s, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, s)
			}
			printSession(cmd, s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSession(cmd *cobra.Command, s models.Session) {
	out := cmd.OutOrStdout()
	stats := checklist.Evaluate(s.Checklist)

	_, _ = fmt.Fprintf(out, "id:         %s\n", s.ID)
	_, _ = fmt.Fprintf(out, "started:    %s\n", s.Timestamp.Format(time.RFC3339))
	_, _ = fmt.Fprintf(out, "language:   %s\n", s.CitizenLanguage)
	_, _ = fmt.Fprintf(out, "status:     %s\n", s.Status)
	_, _ = fmt.Fprintf(out, "version:    %d\n", s.Version)
	_, _ = fmt.Fprintf(out, "checklist:  %d/%d required, %d/%d total\n",
		stats.RequiredCompleted, stats.RequiredTotal, stats.TotalCompleted, stats.TotalItems)
	if s.Summary != "" {
		_, _ = fmt.Fprintf(out, "summary:    %s\n", s.Summary)
	}
	if s.Transcript != "" {
		_, _ = fmt.Fprintf(out, "transcript:\n  %s\n", strings.ReplaceAll(s.Transcript, "\n", "\n  "))
	}
	for _, r := range s.Responses {
		_, _ = fmt.Fprintf(out, "response:   [%s] %s\n", r.Type, r.Text)
	}
}

func newSessionsCreateCmd(a *app) *cobra.Command {
	var in service.NewSession

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeStore, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			s, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), s.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.CitizenLanguage, "language", "", "citizen language code or name (default English)")
	cmd.Flags().StringVar(&in.Transcript, "transcript", "", "initial transcript")
	cmd.Flags().StringVar(&in.Summary, "summary", "", "short summary")
	return cmd
}

func newSessionsArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a session; it stays in the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			s, err := svc.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Status)
			return nil
		},
	}
}
