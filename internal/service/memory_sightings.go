package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

var _ domain.SightingStore = (*MemorySightings)(nil)

// MemorySightings keeps the sighting log in process when no database is
// configured. The oldest entries are evicted once max is reached.
type MemorySightings struct {
	mu   sync.Mutex
	max  int
	byID map[string]*domain.ArbitrageSighting
}

// NewMemorySightings creates an in-process sighting log holding at most max
// entries. A max of zero or less means 1000.
func NewMemorySightings(max int) *MemorySightings {
	if max <= 0 {
		max = 1000
	}
	return &MemorySightings{max: max, byID: make(map[string]*domain.ArbitrageSighting)}
}

func (m *MemorySightings) Record(_ context.Context, opps []domain.ArbitrageOpportunity, seenAt time.Time) ([]domain.ArbitrageOpportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := []domain.ArbitrageOpportunity{}
	for _, o := range opps {
		key := o.Key()
		if s, ok := m.byID[key]; ok {
			s.Opportunity = o
			s.TimesSeen++
			s.LastSeenAt = seenAt
			if o.ProfitPercentage > s.PeakProfit {
				s.PeakProfit = o.ProfitPercentage
			}
			continue
		}
		m.byID[key] = &domain.ArbitrageSighting{
			Opportunity: o,
			PeakProfit:  o.ProfitPercentage,
			TimesSeen:   1,
			FirstSeenAt: seenAt,
			LastSeenAt:  seenAt,
		}
		fresh = append(fresh, o)
	}
	m.evict()
	return fresh, nil
}

func (m *MemorySightings) ListRecent(_ context.Context, limit int) ([]domain.ArbitrageSighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.ArbitrageSighting, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemorySightings) evict() {
	for len(m.byID) > m.max {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, s := range m.byID {
			if oldestKey == "" || s.LastSeenAt.Before(oldest) {
				oldestKey, oldest = k, s.LastSeenAt
			}
		}
		delete(m.byID, oldestKey)
	}
}
