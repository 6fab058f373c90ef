package refresh

import (
	"sync"
	"time"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// Snapshot is the published result of one refresh. It is never mutated
// after publication.
type Snapshot struct {
	Records     []*entity.Vuln
	Statuses    []collect.SourceStatus
	Start       string
	End         string
	RefreshedAt time.Time

	// NewRecords counts records no earlier refresh had seen. It is zero for
	// the first refresh, which only seeds the seen set.
	NewRecords int
}

// BySource returns the records whose provenance tag equals source, or all
// records when source is empty.
func (s *Snapshot) BySource(source string) []*entity.Vuln {
	if source == "" {
		return s.Records
	}
	out := make([]*entity.Vuln, 0)
	for _, v := range s.Records {
		if v.Source() == source {
			out = append(out, v)
		}
	}
	return out
}

type store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func (s *store) load() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *store) publish(snap *Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
