package transport

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// Headers is a copy-on-write header set owned by one adapter. Updates
// publish a new immutable snapshot; readers never observe a partial write.
type Headers struct {
	snap atomic.Pointer[http.Header]
}

// NewHeaders creates a header set seeded with init.
func NewHeaders(init map[string]string) *Headers {
	h := http.Header{}
	for k, v := range init {
		h.Set(k, v)
	}
	hs := &Headers{}
	hs.snap.Store(&h)
	return hs
}

// Set stores value under key. A blank value removes the key.
func (h *Headers) Set(key, value string) {
	value = strings.TrimSpace(value)
	for {
		old := h.snap.Load()
		next := old.Clone()
		if value == "" {
			next.Del(key)
		} else {
			next.Set(key, value)
		}
		if h.snap.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Get returns the current value for key.
func (h *Headers) Get(key string) string {
	return h.snap.Load().Get(key)
}

// Apply copies the current snapshot onto req.
func (h *Headers) Apply(req *http.Request) {
	for k, vs := range *h.snap.Load() {
		req.Header[k] = append([]string(nil), vs...)
	}
}
