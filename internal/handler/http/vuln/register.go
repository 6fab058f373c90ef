package vuln

import (
	"net/http"

	"vuln-feed/internal/common/pagination"
)

// Register mounts the query API on mux.
func Register(mux *http.ServeMux, feed Feed, resolver Resolver, paging pagination.Config) {
	mux.Handle("GET /api/vulns", ListHandler{Feed: feed, Paging: paging})
	mux.Handle("GET /api/vulns/search", SearchHandler{Feed: feed, Paging: paging})
	mux.Handle("GET /api/poc", PoCHandler{Resolver: resolver})
}
