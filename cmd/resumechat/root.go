package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/adapter/sessionclient"
)

var (
	serverURL  string
	agentURL   string
	userID     string
	userHeader string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "resumechat",
	Short: "Chat with the resume agent and manage your sessions",
	Long: `A terminal client for the resume chat service.

Each analysed resume gets its own session with the agent. Sessions are kept
by the server and can be resumed, listed, deleted and exported.

Quick Start:
  resumechat chat                         # resume your most recent session
  resumechat chat --thread <thread-id>    # start a session for a new analysis
  resumechat sessions list                # list your sessions
  resumechat export <session-id> -f md    # export a transcript as Markdown`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("RESUMECHAT_SERVER", "http://localhost:8080"), "Session API base URL")
	rootCmd.PersistentFlags().StringVar(&agentURL, "agent", envOr("RESUMECHAT_AGENT", "http://localhost:8001"), "Agent service base URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("RESUMECHAT_USER"), "User id sent to the session API")
	rootCmd.PersistentFlags().StringVar(&userHeader, "user-header", "X-User-ID", "Header carrying the user id")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(chatCmd, sessionsCmd, exportCmd)
}

func envOr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// newSessionClient builds the session API client for the configured user.
func newSessionClient() (*sessionclient.Client, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("a user id is required: pass --user or set RESUMECHAT_USER")
	}
	return sessionclient.NewClient(serverURL, userID, userHeader), nil
}
