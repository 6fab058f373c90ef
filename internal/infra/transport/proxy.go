package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeProxy turns a bare "host:port" into "http://host:port".
// Values that already carry a scheme (http, https, socks5, ...) are
// returned unchanged and an empty value stays empty.
func NormalizeProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return "http://" + raw
	}
	return raw
}

func parseProxy(raw string) (*url.URL, error) {
	raw = NormalizeProxy(raw)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", raw)
	}
	return u, nil
}
