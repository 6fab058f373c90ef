package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/usecase/collect"
)

var sampleStatuses = []collect.SourceStatus{
	{Source: "KEV", Date: "2025-03-04", Count: 3, Duration: 120 * time.Millisecond},
	{Source: "NVD", Date: "2025-03-04", Count: 40, Truncated: true, Duration: 2 * time.Second},
	{Source: "OSCS", Date: "2025-03-04", Err: errors.New("status 502"), Duration: 5 * time.Millisecond},
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(sampleStatuses[0]))
	assert.Equal(t, StatusPartial, StatusOf(sampleStatuses[1]))
	assert.Equal(t, StatusError, StatusOf(sampleStatuses[2]))
}

func TestWriteStatusTable(t *testing.T) {
	var buf bytes.Buffer
	WriteStatusTable(&buf, sampleStatuses, false)

	out := buf.String()
	assert.Contains(t, out, "KEV")
	assert.Contains(t, out, "PARTIAL")
	assert.Contains(t, out, "status 502")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes off-terminal")
}

func TestWriteStatusJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatusJSON(&buf, sampleStatuses))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "OK", got[0]["status"])
	assert.Equal(t, 2000.0, got[1]["duration_ms"])
	assert.Equal(t, "status 502", got[2]["error"])
	assert.NotContains(t, got[0], "error")
}
