package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/JonMunkholm/smartclean/internal/core"
)

const reportStyle = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;color:#1f2937}` +
	`table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #d1d5db;padding:.35rem .7rem;text-align:left}` +
	`th{background:#f3f4f6}.score{font-size:1.25rem}`

// reportPage renders the Markdown report as a standalone HTML page. Raw HTML
// in the Markdown (e.g. from column names) is dropped.
func reportPage(r core.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := parser.NewWithExtensions(parser.CommonExtensions)
		renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
		body := markdown.ToHTML([]byte(core.RenderMarkdown(r)), p, renderer)

		title := fmt.Sprintf("Data Cleaning Report (%.1f → %.1f)", r.Summary.BeforeScore, r.Summary.AfterScore)
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>\n",
			templ.EscapeString(title), reportStyle); err != nil {
			return err
		}
		if _, err := w.Write(body); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>\n")
		return err
	})
}
