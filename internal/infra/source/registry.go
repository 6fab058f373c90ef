// Package source implements the vulnerability feed adapters. Every adapter
// shares the same page retry policy, circuit breaker, ordered-key field
// lookup and keyword matching; they differ in wire format and vocabulary.
package source

import (
	"fmt"
	"strings"

	"vuln-feed/internal/usecase/collect"
)

// Registry holds the configured adapters in precedence order.
type Registry struct {
	keys       []string
	byKey      map[string]collect.Source
	threatBook *ThreatBook
	nvd        *NVD
}

// NewRegistry builds every enabled adapter in cfg over client.
func NewRegistry(client Doer, cfg Config) (*Registry, error) {
	if err := validateSpecs(cfg.Specs); err != nil {
		return nil, err
	}

	r := &Registry{byKey: make(map[string]collect.Source, len(cfg.Specs))}
	for _, spec := range cfg.Specs {
		if spec.Disabled {
			continue
		}
		opts := Options{
			Endpoint:          spec.Endpoint,
			Timeout:           spec.Timeout,
			PageSize:          spec.PageSize,
			MaxPages:          cfg.MaxPages,
			RetryClientErrors: cfg.RetryClientErrors,
			Location:          cfg.Location,
		}

		var src collect.Source
		switch spec.kind() {
		case TypeChaitin:
			src = NewChaitin(client, opts)
		case TypeOSCS:
			src = NewOSCS(client, opts)
		case TypeQianxin:
			src = NewQianxin(client, opts, cfg.QianxinLookbackDays)
		case TypeThreatBook:
			r.threatBook = NewThreatBook(client, opts, cfg.ThreatBookCookie)
			src = r.threatBook
		case TypeKEV:
			src = NewKEV(client, opts, cfg.KEVCatalogTTL)
		case TypeNVD:
			r.nvd = NewNVD(client, opts, cfg.NVDAPIKey)
			src = r.nvd
		case TypeAdvisory:
			src = NewAdvisory(client, opts, spec.Name, spec.URL)
		}

		key := strings.ToLower(spec.Key)
		r.keys = append(r.keys, key)
		r.byKey[key] = src
	}
	return r, nil
}

// Keys lists the enabled adapter keys in precedence order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Sources returns every enabled adapter in precedence order.
func (r *Registry) Sources() []collect.Source {
	out := make([]collect.Source, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.byKey[k])
	}
	return out
}

// Select returns the adapters named by keys, in the given order. An empty
// keys list selects everything.
func (r *Registry) Select(keys []string) ([]collect.Source, error) {
	if len(keys) == 0 {
		return r.Sources(), nil
	}
	out := make([]collect.Source, 0, len(keys))
	for _, k := range keys {
		src, ok := r.byKey[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q (have %s)",
				ErrInvalidSourceConfig, k, strings.Join(r.keys, ", "))
		}
		out = append(out, src)
	}
	return out, nil
}

// SetThreatBookCookie updates the ThreatBook session cookie, if that
// adapter is enabled.
func (r *Registry) SetThreatBookCookie(raw string) {
	if r.threatBook != nil {
		r.threatBook.SetCookie(raw)
	}
}

// SetNVDAPIKey updates the NVD API key, if that adapter is enabled.
func (r *Registry) SetNVDAPIKey(raw string) {
	if r.nvd != nil {
		r.nvd.SetAPIKey(raw)
	}
}
