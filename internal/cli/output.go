package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/manyblack/studio/pkg/schema"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Printer writes command output, with colour and Markdown rendering only on terminals.
type Printer struct {
	out     io.Writer
	rich    bool
	profile termenv.Profile
}

// NewPrinter writes to w. Output is rich when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	p := &Printer{out: w, profile: termenv.Ascii}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.rich = true
		p.profile = termenv.ColorProfile()
	}
	return p
}

// Rich reports whether the printer targets a terminal.
func (p *Printer) Rich() bool { return p.rich }

// Printf writes formatted text.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (p *Printer) YAML(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (p *Printer) color(s, hex string) termenv.Style {
	return termenv.String(s).Foreground(p.profile.Color(hex))
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.color("✓ "+fmt.Sprintf(format, args...), "#22c55e"))
}

// Report prints validation issues grouped by severity. It prints nothing for an empty report.
func (p *Printer) Report(r schema.Report) {
	for _, issue := range r.Errors() {
		fmt.Fprintln(p.out, p.color(fmt.Sprintf("  error   %s: %s", issue.Key, issue.Reason), "#ef4444"))
	}
	for _, issue := range r.Warnings() {
		fmt.Fprintln(p.out, p.color(fmt.Sprintf("  warning %s: %s", issue.Key, issue.Reason), "#eab308"))
	}
}

// Table prints rows with left-aligned columns.
func (p *Printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c + strings.Repeat(" ", widths[i]-len(c))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	head := p.color(line(header), "#818cf8")
	if p.rich {
		head = head.Bold()
	}
	fmt.Fprintln(p.out, head)
	for _, row := range rows {
		fmt.Fprintln(p.out, line(row))
	}
}

// Markdown renders md with glamour on terminals and prints it verbatim elsewhere.
func (p *Printer) Markdown(md string) error {
	if !p.rich {
		_, err := io.WriteString(p.out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(p.out, out)
	return err
}

// Banner prints the Studio logo on terminals.
func (p *Printer) Banner() {
	if !p.rich {
		return
	}
	lines := []struct{ text, hex string }{
		{"   ____  _             _ _       ", "#818cf8"},
		{"  / ___|| |_ _   _  __| (_) ___  ", "#a78bfa"},
		{"  \\___ \\| __| | | |/ _` | |/ _ \\ ", "#c084fc"},
		{"   ___) | |_| |_| | (_| | | (_) |", "#e879f9"},
		{"  |____/ \\__|\\__,_|\\__,_|_|\\___/ ", "#f472b6"},
	}
	fmt.Fprintln(p.out)
	for _, l := range lines {
		fmt.Fprintln(p.out, p.color(l.text, l.hex))
	}
	fmt.Fprintln(p.out)
}
