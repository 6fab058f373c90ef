package source

import (
	"strings"

	"vuln-feed/internal/domain/entity"
)

// matcher implements the keyword rule shared by every adapter's Search.
type matcher struct {
	keyword string
	cve     bool
}

func newMatcher(keyword string) matcher {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	return matcher{keyword: kw, cve: entity.IsCVEKeyword(kw)}
}

func (m matcher) match(v *entity.Vuln) bool {
	if m.cve {
		return strings.ToLower(v.CVE()) == m.keyword
	}
	return strings.Contains(strings.ToLower(v.Name()), m.keyword)
}
