package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resume-enhancer/internal/enhancements"
	"resume-enhancer/internal/extract"
	"resume-enhancer/internal/shared/util"
)

var (
	runFile   string
	runText   string
	runOwner  string
	runSource string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Enhance a resume file and print the resulting record",
		RunE:  runEnhance,
	}

	getCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored enhancement record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := loadService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			rec, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	listOwner  string
	listSource string
	listLimit  int

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List enhancement records by owner or source document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (listOwner == "") == (listSource == "") {
				return errors.New("exactly one of --owner or --source is required")
			}
			svc, cleanup, err := loadService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var recs []enhancements.Record
			if listOwner != "" {
				recs, err = svc.ListByOwner(cmd.Context(), listOwner, listLimit, 0)
			} else {
				recs, err = svc.ListBySource(cmd.Context(), listSource)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "resume file (PDF, DOCX, text or markdown)")
	runCmd.Flags().StringVar(&runText, "text", "", "resume text, instead of --file")
	runCmd.Flags().StringVar(&runOwner, "owner", "cli", "owner ID stored on the record")
	runCmd.Flags().StringVar(&runSource, "source", "", "source document ID (default: file name)")

	listCmd.Flags().StringVar(&listOwner, "owner", "", "owner ID")
	listCmd.Flags().StringVar(&listSource, "source", "", "source document ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum records for --owner")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	content, source, err := resolveInput(cmd.Context())
	if err != nil {
		return err
	}

	svc, cleanup, err := loadService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := svc.Enhance(cmd.Context(), source, runOwner, content)
	if rec.ID != "" {
		if printErr := printJSON(cmd.OutOrStdout(), rec); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return err
	}
	if rec.Status == enhancements.StatusFailed {
		return fmt.Errorf("enhancement %s failed", rec.ID)
	}
	return nil
}

func resolveInput(ctx context.Context) (content, source string, err error) {
	source = runSource
	switch {
	case runFile != "" && runText != "":
		return "", "", errors.New("use either --file or --text")
	case runFile != "":
		data, err := os.ReadFile(runFile)
		if err != nil {
			return "", "", fmt.Errorf("read resume: %w", err)
		}
		content, err = extract.Text(ctx, data, "", filepath.Base(runFile))
		if err != nil {
			return "", "", err
		}
		if source == "" {
			if source, err = util.SourceIDFromFileName(runFile); err != nil {
				return "", "", err
			}
		}
	case runText != "":
		content = runText
		if source == "" {
			source = "inline"
		}
	default:
		return "", "", errors.New("--file or --text is required")
	}
	return content, source, nil
}
