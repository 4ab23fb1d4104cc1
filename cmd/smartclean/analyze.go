package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
)

// analysis is the JSON output of the analyze command.
type analysis struct {
	DatasetInfo core.DatasetInfo `json:"dataset_info"`
	Issues      []core.Issue     `json:"issues"`
}

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Score a file and list its data-quality issues",
		Long: `Parse a CSV or Excel file, score it on the four quality axes and list
every detected issue with the operation that would fix it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analyzeFile(cmd, opts, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderAnalysis(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of styled text")
	return cmd
}

func loadTable(cmd *cobra.Command, opts *rootOptions, path string) (*core.Table, int64, error) {
	return ingest.ParseFile(cmd.Context(), path, ingest.Options{Workers: opts.workers})
}

func analyzeFile(cmd *cobra.Command, opts *rootOptions, path string) (analysis, error) {
	t, size, err := loadTable(cmd, opts, path)
	if err != nil {
		return analysis{}, err
	}

	issues := core.DetectIssues(t)
	if issues == nil {
		issues = []core.Issue{}
	}
	return analysis{
		DatasetInfo: core.Describe(t, filepath.Base(path), float64(size)/1024),
		Issues:      issues,
	}, nil
}

func renderAnalysis(w io.Writer, a analysis) {
	info, q := a.DatasetInfo, a.DatasetInfo.QualityScore

	fmt.Fprintln(w, titleStyle.Render("SmartClean analysis: "+info.Filename))
	fmt.Fprintln(w, labelStyle.Render("Rows")+fmt.Sprint(info.Rows))
	fmt.Fprintln(w, labelStyle.Render("Columns")+fmt.Sprint(info.Columns))
	fmt.Fprintln(w, labelStyle.Render("Size")+fmt.Sprintf("%.1f KB", info.SizeKB))
	fmt.Fprintln(w)

	scores := []string{
		labelStyle.Render("Overall") + scoreStyle(q.Overall).Bold(true).Render(fmt.Sprintf("%.1f", q.Overall)),
		labelStyle.Render("Completeness") + scoreStyle(q.Completeness).Render(fmt.Sprintf("%.1f", q.Completeness)),
		labelStyle.Render("Uniqueness") + scoreStyle(q.Uniqueness).Render(fmt.Sprintf("%.1f", q.Uniqueness)),
		labelStyle.Render("Consistency") + scoreStyle(q.Consistency).Render(fmt.Sprintf("%.1f", q.Consistency)),
		labelStyle.Render("Accuracy") + scoreStyle(q.Accuracy).Render(fmt.Sprintf("%.1f", q.Accuracy)),
	}
	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, scores...)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Issues (%d)", len(a.Issues))))
	if len(a.Issues) == 0 {
		fmt.Fprintln(w, successStyle.Render("No issues detected"))
		return
	}
	for _, is := range a.Issues {
		sev := severityStyle(is.Severity).Render(fmt.Sprintf("%-6s", strings.ToUpper(string(is.Severity))))
		fmt.Fprintf(w, "%s %s  %s  %d rows (%.1f%%)\n", sev, is.Column, is.IssueType, is.AffectedCount, is.AffectedPercentage)
		fmt.Fprintln(w, "       "+subtleStyle.Render(is.SuggestedFix))
	}
}
