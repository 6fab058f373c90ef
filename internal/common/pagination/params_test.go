package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vuln-feed/internal/common/pagination"
)

func TestParseQueryParams(t *testing.T) {
	t.Parallel()

	config := pagination.Config{
		DefaultLimit: 20,
		MaxLimit:     100,
	}

	tests := []struct {
		name      string
		query     string
		want      pagination.Params
		wantError bool
	}{
		{
			name:  "valid parameters",
			query: "page=2&limit=30",
			want:  pagination.Params{Page: 2, Limit: 30},
		},
		{
			name:  "no parameters (use defaults)",
			query: "",
			want:  pagination.Params{Page: 1, Limit: 20},
		},
		{
			name:  "only page parameter",
			query: "page=3",
			want:  pagination.Params{Page: 3, Limit: 20},
		},
		{
			name:  "limit at max",
			query: "limit=100",
			want:  pagination.Params{Page: 1, Limit: 100},
		},
		{
			name:      "page zero",
			query:     "page=0",
			wantError: true,
		},
		{
			name:      "page not a number",
			query:     "page=abc",
			wantError: true,
		},
		{
			name:      "limit over max",
			query:     "limit=101",
			wantError: true,
		},
		{
			name:      "negative limit",
			query:     "limit=-5",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/vulns?"+tt.query, nil)
			got, err := pagination.ParseQueryParams(req, config)

			if tt.wantError {
				if err == nil {
					t.Errorf("ParseQueryParams() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQueryParams() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseQueryParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseQueryParams_ZeroConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/vulns", nil)
	got, err := pagination.ParseQueryParams(req, pagination.Config{})
	if err != nil {
		t.Fatalf("ParseQueryParams() unexpected error = %v", err)
	}
	if got.Limit != pagination.DefaultConfig().DefaultLimit {
		t.Errorf("Limit = %d, want %d", got.Limit, pagination.DefaultConfig().DefaultLimit)
	}
}

func TestParams_Offset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, limit, want int
	}{
		{1, 20, 0},
		{2, 20, 20},
		{3, 10, 20},
	}
	for _, tt := range tests {
		if got := (pagination.Params{Page: tt.page, Limit: tt.limit}).Offset(); got != tt.want {
			t.Errorf("Offset(page=%d, limit=%d) = %d, want %d", tt.page, tt.limit, got, tt.want)
		}
	}
}
