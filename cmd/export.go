package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opd-ai/storyverse/bookcompiler"
	storyverse "github.com/opd-ai/storyverse/src"
)

func newExportCmd() *cobra.Command {
	var logPath, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved story as text, JSON or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := exportStory(logPath, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = defaultExportPath(logPath, format)
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "saved story log (JSON)")
	cmd.Flags().StringVar(&format, "format", "txt", "txt, json or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file, "-" for stdout`)
	cmd.MarkFlagRequired("log")
	return cmd
}

// exportStory renders the log at logPath. Parameters are read from the
// sidecar when one exists; a PDF without them gets a generic title.
func exportStory(logPath, format string) ([]byte, error) {
	log, err := storyverse.LoadStoryLog(logPath)
	if err != nil {
		return nil, err
	}
	if log.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", logPath, storyverse.ErrEmptyInput)
	}
	params, err := storyverse.LoadParams(storyverse.ParamsPath(logPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	switch format {
	case "txt":
		return storyverse.ExportText(log), nil
	case "json":
		return log.Serialize()
	case "pdf":
		var buf bytes.Buffer
		if err := bookcompiler.CompileStory(&buf, params, log); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func defaultExportPath(logPath, format string) string {
	if format == "txt" {
		return filepath.Join(filepath.Dir(logPath), storyverse.StoryFileName)
	}
	return strings.TrimSuffix(logPath, filepath.Ext(logPath)) + ".export." + format
}
