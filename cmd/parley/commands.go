package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parley/internal/types"
)

func newListCmd(app *appContext) *cobra.Command {
	var (
		filter string
		search string
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			f := types.Filter(filter)
			if !f.Valid() {
				return fmt.Errorf("unknown filter %q (want all, pinned, or archived)", filter)
			}
			// A one-shot command has no keystrokes to debounce; put the term
			// in place first so the single load below queries with it.
			if search != "" {
				app.store.SetSearch(search)
			}
			var err error
			if app.store.View().Filter != f {
				err = app.sync.SetFilter(cmd.Context(), f)
			} else {
				err = app.sync.LoadSessions(cmd.Context())
			}
			if err != nil {
				return err
			}

			sessions := app.store.Sessions()
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMSGS\tFLAGS\tUPDATED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					s.ID, s.Title, s.MessageCount, sessionFlags(s),
					s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "View filter: all, pinned, or archived")
	cmd.Flags().StringVar(&search, "search", "", "Free-text search")
	return cmd
}

func newCreateCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create [message]",
		Short: "Create a session, optionally with an initial message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			initial := ""
			if len(args) > 0 {
				initial = args[0]
			}
			session, err := app.sync.CreateSession(cmd.Context(), initial)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", session.ID, session.Title)
			printMessages(cmd, app.store.Messages(session.ID))
			return nil
		},
	}
}

func newSendCmd(app *appContext) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			if sessionID != "" {
				if _, err := app.sync.SelectSession(cmd.Context(), sessionID); err != nil {
					return err
				}
			}
			outcome, err := app.sync.SendMessage(cmd.Context(), args[0], sessionID, types.RoleUser)
			if err != nil {
				return err
			}
			printMessages(cmd, outcome.Messages)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Target session id (omit to start a new session)")
	return cmd
}

func newSystemCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "system <session-id> <content>",
		Short: "Add a system notice to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			if _, err := app.sync.SelectSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			outcome, err := app.sync.SendMessage(cmd.Context(), args[1], args[0], types.RoleSystem)
			if err != nil {
				return err
			}
			printMessages(cmd, outcome.Messages)
			return nil
		},
	}
}

func newPinCmd(app *appContext) *cobra.Command {
	var unpin bool
	cmd := &cobra.Command{
		Use:   "pin <session-id>",
		Short: "Pin or unpin a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateFlag(cmd, app, args[0], func(upd *types.SessionUpdate, value bool) {
				upd.Pinned = &value
			}, !unpin)
		},
	}
	cmd.Flags().BoolVar(&unpin, "undo", false, "Unpin instead of pin")
	return cmd
}

func newArchiveCmd(app *appContext) *cobra.Command {
	var unarchive bool
	cmd := &cobra.Command{
		Use:   "archive <session-id>",
		Short: "Archive or unarchive a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateFlag(cmd, app, args[0], func(upd *types.SessionUpdate, value bool) {
				upd.Archived = &value
			}, !unarchive)
		},
	}
	cmd.Flags().BoolVar(&unarchive, "undo", false, "Unarchive instead of archive")
	return cmd
}

func updateFlag(cmd *cobra.Command, app *appContext, id string, set func(*types.SessionUpdate, bool), value bool) error {
	if err := app.init(); err != nil {
		return err
	}
	defer app.close()

	if _, err := app.sync.SelectSession(cmd.Context(), id); err != nil {
		return err
	}
	var upd types.SessionUpdate
	set(&upd, value)
	session, err := app.sync.UpdateSession(cmd.Context(), id, upd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", session.ID, sessionFlags(session))
	return nil
}

func newRemoveCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			if err := app.sync.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newSettingsCmd(app *appContext) *cobra.Command {
	var (
		temperature  string
		maxTokens    int
		systemPrompt string
	)
	cmd := &cobra.Command{
		Use:   "settings <session-id>",
		Short: "Show or change per-session generation settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(); err != nil {
				return err
			}
			defer app.close()

			var upd types.SettingsUpdate
			if cmd.Flags().Changed("temperature") {
				upd.Temperature = &temperature
			}
			if cmd.Flags().Changed("max-tokens") {
				upd.MaxTokens = &maxTokens
			}
			if cmd.Flags().Changed("system-prompt") {
				upd.SystemPrompt = &systemPrompt
			}

			var (
				settings types.Settings
				err      error
			)
			if upd.Temperature != nil || upd.MaxTokens != nil || upd.SystemPrompt != nil {
				settings, err = app.sync.UpdateSettings(cmd.Context(), args[0], upd)
			} else {
				settings, err = app.sync.GetSettings(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "temperature=%s max_tokens=%d system_prompt=%s\n",
				settings.Temperature, settings.MaxTokens, strconv.Quote(settings.SystemPrompt))
			return nil
		},
	}
	cmd.Flags().StringVar(&temperature, "temperature", "", "Sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum response tokens")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt")
	return cmd
}

func printMessages(cmd *cobra.Command, messages []types.Message) {
	for _, msg := range messages {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", msg.Role, strings.TrimSpace(msg.Content))
	}
}

func sessionFlags(s types.Session) string {
	var flags []string
	if s.Pinned {
		flags = append(flags, "pinned")
	}
	if s.Archived {
		flags = append(flags, "archived")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
