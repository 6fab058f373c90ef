package output

import (
	"encoding/json"
	"io"
	"strconv"

	aqtable "github.com/aquasecurity/table"
	"github.com/fatih/color"

	"vuln-feed/internal/usecase/collect"
)

// Source health labels.
const (
	StatusOK      = "OK"
	StatusPartial = "PARTIAL"
	StatusError   = "ERROR"
)

var statusColors = map[string]func(a ...any) string{
	StatusOK:      color.New(color.FgGreen).SprintFunc(),
	StatusPartial: color.New(color.FgYellow).SprintFunc(),
	StatusError:   color.New(color.FgRed, color.Bold).SprintFunc(),
}

const maxErrorWidth = 60

// StatusOf labels one source call.
func StatusOf(s collect.SourceStatus) string {
	switch {
	case s.Err != nil:
		return StatusError
	case s.Truncated:
		return StatusPartial
	default:
		return StatusOK
	}
}

// WriteStatusTable renders one row per source call.
func WriteStatusTable(w io.Writer, statuses []collect.SourceStatus, isTerminal bool) {
	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetHeaders("Source", "Date", "Status", "Records", "Time (ms)", "Error")

	for _, s := range statuses {
		label := StatusOf(s)
		if isTerminal {
			label = statusColors[label](label)
		}
		errText := "-"
		if s.Err != nil {
			errText = truncate(s.Err.Error(), maxErrorWidth)
		}
		date := s.Date
		if date == "" {
			date = "-"
		}
		tw.AddRow(s.Source, date, label, strconv.Itoa(s.Count),
			strconv.FormatInt(s.Duration.Milliseconds(), 10), errText)
	}
	tw.Render()
}

type statusJSON struct {
	Source     string `json:"source"`
	Date       string `json:"date,omitempty"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// WriteStatusJSON writes the source calls as an indented JSON array.
func WriteStatusJSON(w io.Writer, statuses []collect.SourceStatus) error {
	out := make([]statusJSON, 0, len(statuses))
	for _, s := range statuses {
		d := statusJSON{
			Source:     s.Source,
			Date:       s.Date,
			Status:     StatusOf(s),
			Count:      s.Count,
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Err != nil {
			d.Error = s.Err.Error()
		}
		out = append(out, d)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
