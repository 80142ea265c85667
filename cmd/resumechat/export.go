package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long: `Export a session transcript as json, jsonl, yaml or md.

The transcript is written to stdout unless --out names a file or directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}
		client, err := newSessionClient()
		if err != nil {
			return err
		}

		data, err := client.Export(cmd.Context(), args[0], exportFormat)
		if err != nil {
			return fmt.Errorf("failed to export session: %w", err)
		}

		if exportOut == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		path := exportOut
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "session-"+args[0]+"."+exporter.Extension())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported session %s to %s\n", args[0], path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, jsonl, yaml, md)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory")
}
