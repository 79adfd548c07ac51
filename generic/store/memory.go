// Package store provides Source implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/introducer-commission/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	rates     []generic.RateTableEntry
	profiles  []generic.CommissionProfile
	customers map[generic.CustomerID]generic.Customer
	records   []generic.ServiceRecord
	failures  map[generic.SourceName]error
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[generic.CustomerID]generic.Customer),
		failures:  make(map[generic.SourceName]error),
	}
}

// NewMemoryFromDataset returns a store preloaded with d.
func NewMemoryFromDataset(d generic.Dataset) *Memory {
	m := NewMemory()
	m.Load(d)
	return m
}

// Load appends every record of d.
func (m *Memory) Load(d generic.Dataset) {
	for _, e := range d.Rates {
		m.AddRate(e)
	}
	for _, p := range d.Profiles {
		m.AddProfile(p)
	}
	for _, c := range d.Customers {
		m.AddCustomer(c)
	}
	for _, r := range d.Records {
		m.AddRecord(r)
	}
}

// AddRate appends an entry at the end of the table.
func (m *Memory) AddRate(e generic.RateTableEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, e)
}

// AddProfile inserts or replaces the profile for its introducer.
func (m *Memory) AddProfile(p generic.CommissionProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.profiles {
		if m.profiles[i].Introducer == p.Introducer {
			m.profiles[i] = p
			return
		}
	}
	m.profiles = append(m.profiles, p)
}

func (m *Memory) AddCustomer(c generic.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

func (m *Memory) AddRecord(r generic.ServiceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep records sorted by (date, id) so range reads need no sort.
	i := sort.Search(len(m.records), func(i int) bool {
		cur := m.records[i]
		if !cur.Date.Equal(r.Date) {
			return cur.Date.After(r.Date)
		}
		return cur.ID > r.ID
	})
	m.records = append(m.records, generic.ServiceRecord{})
	copy(m.records[i+1:], m.records[i:])
	m.records[i] = r
}

// FailOn makes every subsequent fetch of source return err.
// Pass a nil err to clear.
func (m *Memory) FailOn(source generic.SourceName, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, source)
		return
	}
	m.failures[source] = err
}

// RateTable returns a copy of the table in insertion order.
func (m *Memory) RateTable(_ context.Context) ([]generic.RateTableEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[generic.SourceRateTable]; err != nil {
		return nil, err
	}
	out := make([]generic.RateTableEntry, len(m.rates))
	copy(out, m.rates)
	return out, nil
}

func (m *Memory) CommissionProfiles(_ context.Context) ([]generic.CommissionProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[generic.SourceProfiles]; err != nil {
		return nil, err
	}
	out := make([]generic.CommissionProfile, len(m.profiles))
	copy(out, m.profiles)
	return out, nil
}

// ServiceRecords returns records in [r.Start, r.End], ordered by date then id.
func (m *Memory) ServiceRecords(_ context.Context, r generic.DateRange) ([]generic.ServiceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[generic.SourceLedger]; err != nil {
		return nil, err
	}
	var out []generic.ServiceRecord
	for _, rec := range m.records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Customers returns the directory ordered by customer id.
func (m *Memory) Customers(_ context.Context) ([]generic.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[generic.SourceDirectory]; err != nil {
		return nil, err
	}
	out := make([]generic.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ generic.Sources = (*Memory)(nil)
