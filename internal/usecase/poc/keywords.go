package poc

import (
	"regexp"
	"strings"
)

const maxNameTokens = 5

var nameSeparators = regexp.MustCompile(`[()/、\-_\s]`)

// stopWords are generic vulnerability terms that only widen a search.
var stopWords = map[string]struct{}{
	"漏洞": {}, "远程": {}, "代码": {}, "执行": {}, "权限": {}, "提升": {}, "信息": {}, "泄露": {},
	"vulnerability": {}, "remote": {}, "code": {}, "execution": {},
	"privilege": {}, "escalation": {}, "information": {}, "disclosure": {},
}

// Keywords builds the ordered search terms for one record: the CVE first,
// then otherID when distinct, then up to five name tokens.
func Keywords(cve, name, otherID string) []string {
	var kws []string
	if cve = strings.TrimSpace(cve); cve != "" {
		kws = append(kws, cve)
	}
	if otherID = strings.TrimSpace(otherID); otherID != "" && !contains(kws, otherID) {
		kws = append(kws, otherID)
	}
	return append(kws, nameTokens(name)...)
}

func nameTokens(name string) []string {
	var out []string
	for _, p := range nameSeparators.Split(name, -1) {
		if p == "" {
			continue
		}
		if _, stop := stopWords[strings.ToLower(p)]; stop {
			continue
		}
		out = append(out, p)
		if len(out) == maxNameTokens {
			break
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
