// Package report renders a batch summary as a table for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/flemzord/codeshift/internal/batch"
)

// Options controls rendering.
type Options struct {
	// Color enables ANSI styling and rounded borders. Without it the table
	// is drawn with plain ASCII.
	Color bool

	// Width caps the table width. Zero means no cap.
	Width int
}

// Detect returns options suited to w: color and the terminal width when w
// is a terminal, plain output otherwise. NO_COLOR disables color.
func Detect(w io.Writer) Options {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return Options{}
	}
	opts := Options{Color: os.Getenv("NO_COLOR") == ""}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil {
		opts.Width = width
	}
	return opts
}

type styles struct {
	header, cell, dim, ok, warn, bad lipgloss.Style
	border                           lipgloss.Border
}

func newStyles(w io.Writer, opts Options) styles {
	profile := termenv.Ascii
	if opts.Color {
		profile = termenv.ANSI256
	}
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetColorProfile(profile)

	s := styles{
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		border: lipgloss.ASCIIBorder(),
	}
	s.dim = s.cell.Foreground(lipgloss.Color("244"))
	s.ok = s.cell.Foreground(lipgloss.Color("42"))
	s.warn = s.cell.Foreground(lipgloss.Color("214"))
	s.bad = s.cell.Foreground(lipgloss.Color("196"))
	if opts.Color {
		s.border = lipgloss.RoundedBorder()
	}
	return s
}

var headers = []string{"File", "Status", "Windows", "Skipped", "Lines", "Duration", "Balance"}

// Render writes the summary table, a totals line and the error of every
// failed file.
func Render(w io.Writer, sum batch.Summary, opts Options) error {
	st := newStyles(w, opts)

	rows := make([][]string, len(sum.Results))
	for i, r := range sum.Results {
		rows[i] = []string{
			r.Source,
			string(r.Status),
			strconv.Itoa(r.Windows),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Lines),
			r.Duration.Round(time.Millisecond).String(),
			balance(r),
		}
	}

	t := table.New().
		Border(st.border).
		BorderStyle(st.dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if row < 0 || row >= len(sum.Results) {
				return st.cell
			}
			r := sum.Results[row]
			switch {
			case col == 1:
				return statusStyle(st, r.Status)
			case col == 3 && r.Skipped > 0, col == 6 && r.Unbalanced():
				return st.warn
			}
			return st.cell
		})
	if opts.Width > 0 {
		t = t.Width(opts.Width)
	}

	if len(rows) > 0 {
		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, Totals(sum)); err != nil {
		return err
	}
	for _, r := range sum.Results {
		if r.Error == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", st.bad.UnsetPadding().Render("error"), r.Source, r.Error); err != nil {
			return err
		}
	}
	return nil
}

// Totals is the one-line summary of a run.
func Totals(sum batch.Summary) string {
	var parts []string
	for _, s := range []batch.Status{batch.StatusTranslated, batch.StatusFailed, batch.StatusSkipped, batch.StatusCanceled} {
		if n := sum.Count(s); n > 0 || s == batch.StatusTranslated {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	var unbalanced int
	for _, r := range sum.Results {
		if r.Unbalanced() {
			unbalanced++
		}
	}
	if unbalanced > 0 {
		parts = append(parts, fmt.Sprintf("%d unbalanced", unbalanced))
	}
	d := sum.Finished.Sub(sum.Started).Round(time.Millisecond)
	return fmt.Sprintf("run %s: %s in %s", sum.RunID, strings.Join(parts, ", "), d)
}

func statusStyle(st styles, s batch.Status) lipgloss.Style {
	switch s {
	case batch.StatusTranslated:
		return st.ok
	case batch.StatusFailed:
		return st.bad
	default:
		return st.warn
	}
}

func balance(r batch.Result) string {
	if r.Balance == nil {
		return "-"
	}
	return r.Balance.String()
}
