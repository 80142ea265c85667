package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

var (
	listLimit      int
	createThread   string
	createTitle    string
	createFilename string
	deleteAll      bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSessionClient()
		if err != nil {
			return err
		}
		summaries, err := client.ListN(cmd.Context(), listLimit)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		printSummaries(cmd.OutOrStdout(), summaries, "")
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSessionClient()
		if err != nil {
			return err
		}
		session, err := client.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(session.Title))
		fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("Resume: %s  ATS: %g  Thread: %s", session.Filename, session.AnalysisSnapshot.ATSScore, session.ThreadID)))
		fmt.Fprintln(out)
		if len(session.Messages) == 0 {
			fmt.Fprintln(out, statusStyle.Render("No messages yet."))
			return nil
		}
		printMessages(out, session.Messages)
		return nil
	},
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session for an analysed resume",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSessionClient()
		if err != nil {
			return err
		}
		session, err := client.Create(cmd.Context(), domain.CreateSessionRequest{
			ThreadID: createThread,
			Title:    createTitle,
			Filename: createFilename,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created session %s\n", idStyle.Render(session.ID))
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSessionClient()
		if err != nil {
			return err
		}
		title := args[1]
		session, err := client.Update(cmd.Context(), args[0], domain.UpdateSessionRequest{Title: &title})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", idStyle.Render(session.ID), titleStyle.Render(session.Title))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session, or all of them with --all",
	Args: func(cmd *cobra.Command, args []string) error {
		if deleteAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSessionClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if deleteAll {
			n, err := client.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %d session(s)\n", n)
			return nil
		}

		deleted, err := client.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return &domain.NotFoundError{Resource: "session", ID: args[0]}
		}
		fmt.Fprintf(out, "Deleted session %s\n", idStyle.Render(args[0]))
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of sessions (0 uses the server default)")

	sessionsCreateCmd.Flags().StringVar(&createThread, "thread", "", "Agent thread id of the analysed resume")
	sessionsCreateCmd.Flags().StringVar(&createTitle, "title", "", "Session title")
	sessionsCreateCmd.Flags().StringVar(&createFilename, "filename", "", "Resume file name")
	_ = sessionsCreateCmd.MarkFlagRequired("thread")

	sessionsDeleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every session")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsCreateCmd, sessionsRenameCmd, sessionsDeleteCmd)
}
