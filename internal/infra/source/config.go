package source

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	envconfig "vuln-feed/pkg/config"
)

// Adapter types.
const (
	TypeChaitin    = "chaitin"
	TypeOSCS       = "oscs"
	TypeQianxin    = "qianxin"
	TypeThreatBook = "threatbook"
	TypeKEV        = "kev"
	TypeNVD        = "nvd"
	TypeAdvisory   = "advisory"
)

// DefaultOrder is the built-in adapter order, which is also the dedup
// precedence: on a duplicate the earlier source's record is kept.
var DefaultOrder = []string{TypeChaitin, TypeOSCS, TypeQianxin, TypeThreatBook, TypeKEV, TypeNVD}

// ErrInvalidSourceConfig is returned for unusable source definitions.
var ErrInvalidSourceConfig = errors.New("invalid source config")

// Spec declares one adapter instance.
type Spec struct {
	// Key selects the adapter from the CLI and in SOURCES; unique.
	Key string `yaml:"key"`

	// Type is the adapter kind; it defaults to Key.
	Type string `yaml:"type,omitempty"`

	// Name is the provenance tag of an advisory feed.
	Name string `yaml:"name,omitempty"`

	// URL is the advisory feed location.
	URL string `yaml:"url,omitempty"`

	Disabled bool          `yaml:"disabled,omitempty"`
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	PageSize int           `yaml:"page_size,omitempty"`
}

func (s Spec) kind() string {
	if s.Type != "" {
		return strings.ToLower(s.Type)
	}
	return strings.ToLower(s.Key)
}

// Config is everything needed to build the adapter set.
type Config struct {
	// Specs lists adapters in precedence order.
	Specs []Spec

	ThreatBookCookie string
	NVDAPIKey        string

	RetryClientErrors   bool
	MaxPages            int
	QianxinLookbackDays int
	KEVCatalogTTL       time.Duration

	// Location sets the calendar day for lookback windows; the worker
	// passes its refresh time zone.
	Location *time.Location
}

// DefaultConfig enables the built-in adapters in DefaultOrder.
func DefaultConfig() Config {
	specs := make([]Spec, 0, len(DefaultOrder))
	for _, k := range DefaultOrder {
		specs = append(specs, Spec{Key: k})
	}
	return Config{
		Specs:               specs,
		MaxPages:            defaultMaxPages,
		QianxinLookbackDays: defaultQianxinLookback,
		KEVCatalogTTL:       defaultCatalogTTL,
	}
}

// LoadConfigFromEnv reads the adapter configuration.
//
//   - SOURCES_FILE: YAML file with a "sources" list, replacing the defaults
//   - SOURCES: comma-separated keys restricting and reordering the list
//   - THREATBOOK_COOKIE, NVD_API_KEY: credentials
//   - RETRY_CLIENT_ERRORS: retry 4xx responses as well
//   - PAGE_MAX, QIANXIN_LOOKBACK_DAYS, KEV_CATALOG_TTL: limits
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if path := envconfig.GetEnvString("SOURCES_FILE", ""); path != "" {
		specs, err := LoadSpecsFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Specs = specs
	}

	if order := envconfig.GetEnvStringList("SOURCES", nil); len(order) > 0 {
		specs, err := Reorder(cfg.Specs, order)
		if err != nil {
			return Config{}, err
		}
		cfg.Specs = specs
	}

	cfg.ThreatBookCookie = envconfig.GetEnvString("THREATBOOK_COOKIE", "")
	cfg.NVDAPIKey = envconfig.GetEnvString("NVD_API_KEY", "")
	cfg.RetryClientErrors = envconfig.GetEnvBool("RETRY_CLIENT_ERRORS", false)
	cfg.MaxPages = envconfig.GetEnvInt("PAGE_MAX", cfg.MaxPages)
	cfg.QianxinLookbackDays = envconfig.GetEnvInt("QIANXIN_LOOKBACK_DAYS", cfg.QianxinLookbackDays)
	cfg.KEVCatalogTTL = envconfig.GetEnvDuration("KEV_CATALOG_TTL", cfg.KEVCatalogTTL)
	return cfg, nil
}

type specsFile struct {
	Sources []Spec `yaml:"sources"`
}

// LoadSpecsFile reads adapter specs from a YAML file:
//
//	sources:
//	  - key: kev
//	  - key: chaitin
//	    page_size: 50
//	  - key: cert-cc
//	    type: advisory
//	    name: CERT/CC
//	    url: https://www.kb.cert.org/vuls/atomfeed/
func LoadSpecsFile(path string) ([]Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f specsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSourceConfig, path, err)
	}
	if err := validateSpecs(f.Sources); err != nil {
		return nil, err
	}
	return f.Sources, nil
}

// Reorder keeps only the specs named in keys, in that order.
func Reorder(specs []Spec, keys []string) ([]Spec, error) {
	byKey := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byKey[strings.ToLower(s.Key)] = s
	}
	out := make([]Spec, 0, len(keys))
	for _, k := range keys {
		s, ok := byKey[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidSourceConfig, k)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateSpecs(specs []Spec) error {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		key := strings.ToLower(s.Key)
		if key == "" {
			return fmt.Errorf("%w: source #%d has no key", ErrInvalidSourceConfig, i+1)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate source key %q", ErrInvalidSourceConfig, s.Key)
		}
		seen[key] = true

		switch s.kind() {
		case TypeChaitin, TypeOSCS, TypeQianxin, TypeThreatBook, TypeKEV, TypeNVD:
		case TypeAdvisory:
			if s.URL == "" || s.Name == "" {
				return fmt.Errorf("%w: advisory %q needs name and url", ErrInvalidSourceConfig, s.Key)
			}
		default:
			return fmt.Errorf("%w: source %q has unknown type %q", ErrInvalidSourceConfig, s.Key, s.kind())
		}
	}
	return nil
}
