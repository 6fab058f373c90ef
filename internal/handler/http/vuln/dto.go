package vuln

import (
	"time"

	"vuln-feed/internal/common/pagination"
	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/handler/http/respond"
	"vuln-feed/internal/usecase/collect"
)

// StatusDTO reports how one source call went.
type StatusDTO struct {
	Source     string `json:"source"`
	Date       string `json:"date,omitempty"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ListDTO is the body of /api/vulns and /api/vulns/search. Count is the
// number of records on this page.
type ListDTO struct {
	Records     []*entity.Vuln      `json:"records"`
	Count       int                 `json:"count"`
	Pagination  pagination.Metadata `json:"pagination"`
	Partial     bool                `json:"partial"`
	Statuses    []StatusDTO         `json:"sources"`
	Start       string              `json:"start,omitempty"`
	End         string              `json:"end,omitempty"`
	RefreshedAt *time.Time          `json:"refreshed_at,omitempty"`
}

// PoCDTO is the body of /api/poc.
type PoCDTO struct {
	Keywords []string `json:"keywords"`
	URLs     []string `json:"urls"`
}

func statusDTOs(statuses []collect.SourceStatus) ([]StatusDTO, bool) {
	out := make([]StatusDTO, 0, len(statuses))
	partial := false
	for _, s := range statuses {
		d := StatusDTO{
			Source:     s.Source,
			Date:       s.Date,
			Count:      s.Count,
			Truncated:  s.Truncated,
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Err != nil {
			d.Error = respond.SanitizeError(s.Err)
			partial = true
		}
		if s.Truncated {
			partial = true
		}
		out = append(out, d)
	}
	return out, partial
}
