package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
)

// cleanedFile is the outcome of cleaning one input.
type cleanedFile struct {
	input  string
	output string
	report core.Report
}

func cleanCmd(opts *rootOptions) *cobra.Command {
	var (
		planPath string
		outDir   string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "clean <file>...",
		Short: "Clean files with the automatic or a YAML plan",
		Long: `Apply the automatic cleaning plan, or the operations of a YAML plan
(see "smartclean plan"), to each file. Cleaned files are written to the
output directory as <name>_cleaned.<ext> and a report is printed per file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userOps []core.Operation
			if planPath != "" {
				ops, err := loadPlan(planPath)
				if err != nil {
					return err
				}
				userOps = ops
			}

			var outFormat ingest.Format
			if format != "" {
				f, ok := ingest.ParseExportFormat(format)
				if !ok {
					return fmt.Errorf("unsupported export format %q", format)
				}
				outFormat = f
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			bar := progressbar.NewOptions(len(args),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Cleaning files"),
				progressbar.OptionClearOnFinish(),
			)

			results := make([]cleanedFile, 0, len(args))
			for _, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				res, err := cleanFile(cmd, opts, path, userOps, outDir, outFormat)
				if err != nil {
					_ = bar.Exit()
					return err
				}
				results = append(results, res)
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			out := cmd.OutOrStdout()
			for _, res := range results {
				printCleaned(out, res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "YAML plan of user operations (default: automatic plan)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for cleaned files")
	cmd.Flags().StringVar(&format, "format", "", "output format: csv or xlsx (default: same as input)")
	return cmd
}

func cleanFile(cmd *cobra.Command, opts *rootOptions, path string, userOps []core.Operation, outDir string, format ingest.Format) (cleanedFile, error) {
	t, _, err := loadTable(cmd, opts, path)
	if err != nil {
		return cleanedFile{}, err
	}
	if format == "" {
		if format, err = ingest.DetectFormat(path); err != nil {
			return cleanedFile{}, err
		}
	}

	ops, actor := userOps, core.ActorUser
	if ops == nil {
		ops, actor = core.Plan(t, core.DetectIssues(t)), core.ActorAuto
	} else if rejected := core.ValidatePlan(ops, t); len(rejected) > 0 {
		msgs := make([]string, len(rejected))
		for i, r := range rejected {
			msgs[i] = r.Error()
		}
		return cleanedFile{}, fmt.Errorf("%s: %w", filepath.Base(path), errors.New(strings.Join(msgs, "; ")))
	}

	start := time.Now()
	before := core.Score(t)
	cleaned, log := core.Apply(t, ops, actor)
	after := core.Score(cleaned)
	elapsed := time.Since(start)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_cleaned." + string(format)
	output := filepath.Join(outDir, name)
	if err := writeTable(output, format, cleaned); err != nil {
		return cleanedFile{}, err
	}

	slog.Info("file cleaned",
		"input", path,
		"output", output,
		"operations", len(log),
		"quality_before", before.Overall,
		"quality_after", after.Overall,
	)

	return cleanedFile{
		input:  path,
		output: output,
		report: core.BuildReport(log, before, after, float64(elapsed.Microseconds())/1000),
	}, nil
}

func writeTable(path string, format ingest.Format, t *core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := ingest.Write(f, format, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printCleaned(w io.Writer, res cleanedFile) {
	s := res.report.Summary
	fmt.Fprintln(w, titleStyle.Render(filepath.Base(res.input)+" → "+res.output))
	fmt.Fprintln(w, labelStyle.Render("Quality")+
		scoreStyle(s.BeforeScore).Render(fmt.Sprintf("%.1f", s.BeforeScore))+" → "+
		scoreStyle(s.AfterScore).Bold(true).Render(fmt.Sprintf("%.1f", s.AfterScore)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, core.RenderText(res.report))
}
