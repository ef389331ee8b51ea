// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haulfile/tax-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	rateTables map[generic.RateTableID]generic.RateTableRecord
	filings    map[generic.FilingID]generic.Filing
	order      []generic.FilingID
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		rateTables: make(map[generic.RateTableID]generic.RateTableRecord),
		filings:    make(map[generic.FilingID]generic.Filing),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SaveRateTable(_ context.Context, r generic.RateTableRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.rateTables[r.ID]; ok {
		r.Version = existing.Version + 1
		r.CreatedAt = existing.CreatedAt
	} else {
		if r.Version == 0 {
			r.Version = 1
		}
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.rateTables[r.ID] = r
	return nil
}

func (m *Memory) GetRateTable(_ context.Context, id generic.RateTableID) (*generic.RateTableRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rateTables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrRateTableNotFound, id)
	}
	return &r, nil
}

func (m *Memory) ListRateTables(_ context.Context) ([]generic.RateTableRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.RateTableRecord, 0, len(m.rateTables))
	for _, r := range m.rateTables {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SaveFiling appends a filing. Append-only.
func (m *Memory) SaveFiling(_ context.Context, f generic.Filing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.filings[f.ID]; exists {
		return fmt.Errorf("%w: %s", generic.ErrFilingExists, f.ID)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	m.filings[f.ID] = f
	m.order = append(m.order, f.ID)
	return nil
}

func (m *Memory) GetFiling(_ context.Context, id generic.FilingID) (*generic.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.filings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrFilingNotFound, id)
	}
	return &f, nil
}

func (m *Memory) ListFilings(_ context.Context, filter generic.FilingFilter) ([]generic.Filing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Filing
	// Walk insertion order backwards: newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		f := m.filings[m.order[i]]
		if filter.CarrierID != "" && f.CarrierID != filter.CarrierID {
			continue
		}
		if filter.Kind != "" && f.Kind != filter.Kind {
			continue
		}
		result = append(result, f)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}
