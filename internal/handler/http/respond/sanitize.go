package respond

import "regexp"

var (
	githubTokenPattern = regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr|github_pat)_[A-Za-z0-9_]+`)
	bearerPattern      = regexp.MustCompile(`(?i)(bearer|token)\s+[A-Za-z0-9._\-]+`)
	webhookPattern     = regexp.MustCompile(`(hooks\.slack\.com/services|discord(?:app)?\.com/api/webhooks)/[^\s"']+`)
	apiKeyParamPattern = regexp.MustCompile(`(?i)(api_?key|token|cookie)=([^&\s"']+)`)
	userinfoPattern    = regexp.MustCompile(`://([^:/\s]+):([^@/\s]+)@`)
)

// SanitizeError masks credentials that can appear inside upstream error
// messages: GitHub tokens, bearer headers, webhook paths, key query
// parameters and proxy userinfo.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = githubTokenPattern.ReplaceAllString(msg, "${1}_****")
	msg = bearerPattern.ReplaceAllString(msg, "$1 ****")
	msg = webhookPattern.ReplaceAllString(msg, "$1/****")
	msg = apiKeyParamPattern.ReplaceAllString(msg, "$1=****")
	msg = userinfoPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
