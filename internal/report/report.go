// Package report renders a session as a Markdown page and converts it to HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// Markdown summarises the inventory, the fit for the drafted target (when it
// is computable) and the saved outputs.
func Markdown(state *session.State, calc calculator.Calculator) string {
	var b strings.Builder

	b.WriteString("# Spacing Calculator\n\n")

	if result, err := state.CurrentFit(calc); err == nil {
		fmt.Fprintf(&b, "## Fit for %s in\n\n", escape(strings.TrimSpace(state.Draft.Target)))
		fmt.Fprintf(&b, "Off by %s\n\n", result.Residual)
		for _, a := range result.Used() {
			fmt.Fprintf(&b, "- %d × %s (%s)\n", a.Count, escape(a.Spacer.Name), a.Spacer.Thickness)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Spacers\n\n")
	b.WriteString("| Thickness | Name | Enabled |\n")
	b.WriteString("|---:|---|:---:|\n")
	for _, s := range state.Registry.Spacers() {
		enabled := ""
		if s.Enabled {
			enabled = "✓"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Thickness, escape(s.Name), enabled)
	}

	if state.Log.Len() > 0 {
		b.WriteString("\n## Previous Outputs\n\n")
		for _, e := range state.Log.Entries() {
			b.WriteString("```\n")
			b.WriteString(e.Text)
			b.WriteString("\n```\n\n")
		}
	}

	return b.String()
}

// HTML converts Markdown source to an HTML fragment.
func HTML(source string) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page renders the session as a complete HTML document.
func Page(state *session.State, calc calculator.Calculator) ([]byte, error) {
	body, err := HTML(Markdown(state, calc))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Spacing Calculator</title></head><body>\n")
	buf.Write(body)
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
