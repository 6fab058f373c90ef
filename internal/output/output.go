// Package output renders vulnerability records for the command line, as a
// table or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// Formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ValidFormat reports whether f is a supported format.
func ValidFormat(f string) bool {
	return f == FormatTable || f == FormatJSON
}

// IsOutputToTerminal returns true if w is a file attached to a TTY.
func IsOutputToTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of stdout, or 0 when it is not a TTY.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// recordsJSON is the JSON document for fetch and search.
type recordsJSON struct {
	Records  []*entity.Vuln `json:"records"`
	Count    int            `json:"count"`
	Failures []failureJSON  `json:"failures,omitempty"`
}

type failureJSON struct {
	Source    string `json:"source"`
	Date      string `json:"date,omitempty"`
	Error     string `json:"error,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *collect.Report) error {
	doc := recordsJSON{Records: report.Records, Count: len(report.Records)}
	if doc.Records == nil {
		doc.Records = []*entity.Vuln{}
	}
	for _, s := range report.Failed() {
		f := failureJSON{Source: s.Source, Date: s.Date, Truncated: s.Truncated}
		if s.Err != nil {
			f.Error = s.Err.Error()
		}
		doc.Failures = append(doc.Failures, f)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// WriteWarnings writes one line per failed or truncated source call.
func WriteWarnings(w io.Writer, report *collect.Report, isTerminal bool) {
	warn := fmt.Sprint
	if isTerminal {
		warn = color.New(color.FgYellow).SprintFunc()
	}
	for _, s := range report.Failed() {
		where := s.Source
		if s.Date != "" {
			where += " (" + s.Date + ")"
		}
		switch {
		case s.Err != nil:
			fmt.Fprintln(w, warn("warning: "+where+" failed: "+s.Err.Error()))
		case s.Truncated:
			fmt.Fprintln(w, warn("warning: "+where+" returned partial results"))
		}
	}
}

// WriteURLs writes PoC URLs, one per line, or a JSON array.
func WriteURLs(w io.Writer, urls []string, format string) error {
	if format == FormatJSON {
		if urls == nil {
			urls = []string{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(urls)
	}
	if len(urls) == 0 {
		_, err := fmt.Fprintln(w, "no PoC found")
		return err
	}
	_, err := fmt.Fprintln(w, strings.Join(urls, "\n"))
	return err
}
