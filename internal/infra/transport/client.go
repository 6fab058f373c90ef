// Package transport provides the HTTP client shared by every feed adapter.
//
// Proxy settings are process-wide but held in an immutable snapshot that is
// swapped atomically, so a concurrent SetProxy never races an in-flight request.
package transport

import (
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 vuln-feed/1.0"

// Config holds transport-level settings supplied by the caller.
type Config struct {
	// Timeout bounds a whole request. Adapters apply their own tighter
	// per-call deadlines through the request context.
	Timeout time.Duration

	UserAgent string

	// HTTPProxy and HTTPSProxy accept "host:port" or a full URL.
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

type proxySettings struct {
	http  *url.URL
	https *url.URL
}

// Client wraps an *http.Client whose proxy can be changed at runtime.
type Client struct {
	hc        *http.Client
	userAgent string
	proxies   atomic.Pointer[proxySettings]
}

// New builds a Client from cfg. It fails only when a proxy URL is malformed.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{userAgent: cfg.UserAgent}
	if err := c.SetProxy(cfg.HTTPProxy, cfg.HTTPSProxy); err != nil {
		return nil, err
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = c.proxyFor
	tr.MaxIdleConnsPerHost = 4
	c.hc = &http.Client{Timeout: cfg.Timeout, Transport: tr}
	return c, nil
}

// SetProxy replaces both proxy settings. An empty value clears that scheme.
func (c *Client) SetProxy(httpURL, httpsURL string) error {
	h, err := parseProxy(httpURL)
	if err != nil {
		return err
	}
	hs, err := parseProxy(httpsURL)
	if err != nil {
		return err
	}
	c.proxies.Store(&proxySettings{http: h, https: hs})
	return nil
}

// Proxies returns the active proxy URLs with any password masked, "" when
// unset.
func (c *Client) Proxies() (httpURL, httpsURL string) {
	p := c.proxies.Load()
	if p.http != nil {
		httpURL = p.http.Redacted()
	}
	if p.https != nil {
		httpsURL = p.https.Redacted()
	}
	return httpURL, httpsURL
}

func (c *Client) proxyFor(req *http.Request) (*url.URL, error) {
	p := c.proxies.Load()
	if req.URL.Scheme == "https" {
		return p.https, nil
	}
	return p.http, nil
}

// HTTPClient exposes the underlying client for SDKs that take one.
func (c *Client) HTTPClient() *http.Client {
	return c.hc
}

// Do sends req with the default User-Agent and Accept headers filled in.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain, */*")
	}
	return c.hc.Do(req)
}
