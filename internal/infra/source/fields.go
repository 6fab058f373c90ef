package source

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Keys is an ordered list of alternative field paths for one logical field.
// Upstream schemas drift between endpoints and releases; the first path
// holding a non-empty value wins.
type Keys []string

// First returns the first non-empty value, trimmed. Arrays of scalars are
// joined with ", ".
func (k Keys) First(row gjson.Result) string {
	for _, path := range k {
		if s := text(row.Get(path)); s != "" {
			return s
		}
	}
	return ""
}

// Or returns First, or def when every path is empty.
func (k Keys) Or(row gjson.Result, def string) string {
	if s := k.First(row); s != "" {
		return s
	}
	return def
}

func text(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.IsArray():
		parts := make([]string, 0, len(v.Array()))
		for _, e := range v.Array() {
			if s := text(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case v.IsObject():
		return ""
	default:
		return strings.TrimSpace(v.String())
	}
}

// rowsAt returns the elements of the first path that holds an array.
func rowsAt(doc gjson.Result, paths ...string) []gjson.Result {
	for _, p := range paths {
		if v := doc.Get(p); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// intAt returns the first positive integer found at paths, or 0.
func intAt(doc gjson.Result, paths ...string) int {
	for _, p := range paths {
		if n := doc.Get(p).Int(); n > 0 {
			return int(n)
		}
	}
	return 0
}
