package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/adapter/agentclient"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/logging"
)

var (
	chatSession     string
	chatThread      string
	chatFilename    string
	chatNoStream    bool
	chatIdleTimeout time.Duration
)

const chatHelp = `Commands:
  /new <thread-id> [title]   start a session for another analysed resume
  /switch <session-id>       continue another session
  /list                      list your sessions
  /delete <session-id>       delete a session
  /help                      show this help
  /quit                      leave the chat
Press Ctrl-C while a reply streams to cancel it.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the resume agent",
	Long: `Open an interactive chat.

Without flags the most recently updated session is resumed. --session picks
a session by id and --thread starts a new one for an analysed resume.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newSessionClient()
		if err != nil {
			return err
		}

		orch := chat.New(sessions, agentclient.NewClient(agentURL), chat.Options{
			Streaming:      !chatNoStream,
			IdleTimeout:    chatIdleTimeout,
			PersistTimeout: 10 * time.Second,
			Logger:         logging.New(logLevel, "text", cmd.ErrOrStderr()),
		})
		defer orch.Wait()

		r := &chatREPL{orch: orch, out: cmd.OutOrStdout()}
		unsubscribe := orch.History().Subscribe(r.render)
		defer unsubscribe()

		if err := r.open(cmd.Context()); err != nil {
			return err
		}
		return r.loop(cmd.Context(), cmd.InOrStdin())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session id to continue")
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "Start a new session for this agent thread id")
	chatCmd.Flags().StringVar(&chatFilename, "filename", "", "Resume file name for a new session")
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "Use single-shot replies instead of streaming")
	chatCmd.Flags().DurationVar(&chatIdleTimeout, "idle-timeout", 60*time.Second, "Give up when the agent is silent this long")
}

// chatREPL prints the history view as it changes. render runs on the
// goroutine that mutates the history, which is the REPL's own.
type chatREPL struct {
	orch *chat.Orchestrator
	out  io.Writer

	status    string
	streaming bool
	shown     string
}

func (r *chatREPL) open(ctx context.Context) error {
	var (
		session *domain.Session
		err     error
	)
	switch {
	case chatThread != "":
		session, err = r.orch.NewSession(ctx, domain.CreateSessionRequest{ThreadID: chatThread, Filename: chatFilename})
		if err == nil {
			err = r.orch.Refresh(ctx)
		}
	case chatSession != "":
		session, err = r.orch.SwitchSession(ctx, chatSession)
	default:
		session, err = r.orch.Restore(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	if session == nil {
		fmt.Fprintln(r.out, statusStyle.Render("You have no sessions yet. Start one with /new <thread-id>."))
		return nil
	}
	r.printSession(session)
	return nil
}

func (r *chatREPL) printSession(session *domain.Session) {
	fmt.Fprintln(r.out, headerStyle.Render(session.Title)+" "+idStyle.Render(session.ID))
	printMessages(r.out, session.Messages)
}

func (r *chatREPL) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, userLabelStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}
		r.submit(ctx, line)
	}
}

func (r *chatREPL) submit(ctx context.Context, line string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.status, r.streaming, r.shown = "", false, ""
	final, err := r.orch.Submit(turnCtx, line)

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.out, statusStyle.Render(" (cancelled)"))
	case errors.Is(err, chat.ErrNoActiveSession):
		fmt.Fprintln(r.out, errorStyle.Render("No active session. Start one with /new <thread-id>."))
	case err != nil:
		r.finish("")
		fmt.Fprintln(r.out, errorStyle.Render(chat.FallbackReply))
		fmt.Fprintln(r.out, statusStyle.Render(err.Error()))
	default:
		r.finish(final)
	}
}

// finish prints what the stream has not shown yet of the final reply.
func (r *chatREPL) finish(final string) {
	if !r.streaming {
		if final != "" {
			fmt.Fprintf(r.out, "%s %s\n\n", roleLabel(domain.RoleAssistant), final)
		}
		return
	}
	if strings.HasPrefix(final, r.shown) {
		fmt.Fprint(r.out, final[len(r.shown):])
	} else {
		fmt.Fprint(r.out, "\n"+final)
	}
	fmt.Fprint(r.out, "\n\n")
	r.streaming = false
}

func (r *chatREPL) render(s chat.Snapshot) {
	if s.Status != r.status {
		r.status = s.Status
		if s.Status != "" && !r.streaming {
			fmt.Fprintln(r.out, statusStyle.Render("  "+s.Status))
		}
	}

	if len(s.Messages) == 0 {
		return
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != domain.RoleAssistant || !last.Pending || last.Content == "" {
		return
	}
	if !r.streaming {
		r.streaming = true
		r.shown = ""
		fmt.Fprint(r.out, roleLabel(domain.RoleAssistant)+" ")
	}
	// Token events carry the running text.
	if len(last.Content) > len(r.shown) && strings.HasPrefix(last.Content, r.shown) {
		fmt.Fprint(r.out, last.Content[len(r.shown):])
		r.shown = last.Content
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (r *chatREPL) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(r.out, chatHelp)

	case "/list":
		if err := r.orch.Refresh(ctx); err != nil {
			return false, err
		}
		snap := r.orch.History().Snapshot()
		activeID := ""
		if snap.Active != nil {
			activeID = snap.Active.ID
		}
		printSummaries(r.out, snap.Summaries, activeID)

	case "/new":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /new <thread-id> [title]")
		}
		session, err := r.orch.NewSession(ctx, domain.CreateSessionRequest{
			ThreadID: fields[1],
			Title:    strings.Join(fields[2:], " "),
		})
		if err != nil {
			return false, err
		}
		r.printSession(session)

	case "/switch":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /switch <session-id>")
		}
		session, err := r.orch.SwitchSession(ctx, fields[1])
		if err != nil {
			return false, err
		}
		r.printSession(session)

	case "/delete":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /delete <session-id>")
		}
		deleted, err := r.orch.DeleteSession(ctx, fields[1])
		if err != nil {
			return false, err
		}
		if !deleted {
			return false, &domain.NotFoundError{Resource: "session", ID: fields[1]}
		}
		fmt.Fprintln(r.out, statusStyle.Render("Deleted session "+fields[1]))

	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
	return false, nil
}
