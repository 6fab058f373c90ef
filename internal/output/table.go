package output

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/fatih/color"

	"vuln-feed/internal/domain/entity"
)

const (
	minNameWidth = 20
	// fixedColumnsWidth is the width of every column except Name, borders
	// included.
	fixedColumnsWidth = 70
)

// TableConfig controls table rendering.
type TableConfig struct {
	// IsTerminal enables ANSI styling.
	IsTerminal bool

	// Width is the terminal width. Zero disables name truncation.
	Width int

	// Title is printed above the table when set.
	Title string
}

// severityColors follows the usual scanner palette.
var severityColors = map[entity.Level]func(a ...any) string{
	entity.LevelUnknown:  color.New(color.FgCyan).SprintFunc(),
	entity.LevelLow:      color.New(color.FgBlue).SprintFunc(),
	entity.LevelMedium:   color.New(color.FgYellow).SprintFunc(),
	entity.LevelHigh:     color.New(color.FgHiRed).SprintFunc(),
	entity.LevelCritical: color.New(color.FgRed, color.Bold).SprintFunc(),
}

// WriteTable renders records with a severity summary line, in
// SortForDisplay order.
func WriteTable(w io.Writer, records []*entity.Vuln, cfg TableConfig) {
	if cfg.Title != "" {
		if cfg.IsTerminal {
			_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n", cfg.Title)
		} else {
			fmt.Fprintln(w, cfg.Title)
			fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(cfg.Title)))
		}
	}
	fmt.Fprintln(w, SeveritySummary(records))
	if len(records) == 0 {
		return
	}
	fmt.Fprintln(w)

	tw := aqtable.New(w)
	if cfg.IsTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetRowLines(false)
	tw.SetHeaders("Date", "Severity", "ID", "Name", "Source")

	nameWidth := 0
	if cfg.Width > 0 {
		nameWidth = max(cfg.Width-fixedColumnsWidth, minNameWidth)
	}
	for _, v := range SortForDisplay(records) {
		tw.AddRow(
			v.Date(),
			severityCell(v.Severity(), cfg.IsTerminal),
			displayID(v),
			truncate(v.Name(), nameWidth),
			v.Source(),
		)
	}
	tw.Render()
}

// SortForDisplay returns a copy of records ordered newest date first, then
// by severity, then by name.
func SortForDisplay(records []*entity.Vuln) []*entity.Vuln {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b *entity.Vuln) int {
		if c := cmp.Compare(b.Date(), a.Date()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Severity().Rank(), a.Severity().Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	return out
}

// SeveritySummary returns a line like:
// Total: 5 (CRITICAL: 1, HIGH: 1, MEDIUM: 1, LOW: 0, OTHER: 2)
func SeveritySummary(records []*entity.Vuln) string {
	counts := make(map[entity.Level]int)
	for _, v := range records {
		counts[v.Severity().Level]++
	}
	other := len(records) - counts[entity.LevelCritical] - counts[entity.LevelHigh] -
		counts[entity.LevelMedium] - counts[entity.LevelLow]
	return fmt.Sprintf("Total: %d (CRITICAL: %d, HIGH: %d, MEDIUM: %d, LOW: %d, OTHER: %d)",
		len(records), counts[entity.LevelCritical], counts[entity.LevelHigh],
		counts[entity.LevelMedium], counts[entity.LevelLow], other)
}

func severityCell(s entity.Severity, isTerminal bool) string {
	text := s.String()
	if text == "" {
		return "-"
	}
	if isTerminal {
		if fn, ok := severityColors[s.Level]; ok {
			return fn(text)
		}
	}
	return text
}

func displayID(v *entity.Vuln) string {
	if v.CVE() != "" {
		return v.CVE()
	}
	if v.OtherID() != "" {
		return v.OtherID()
	}
	return "-"
}

// truncate shortens s to width runes with an ellipsis. width <= 0 keeps s.
func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
