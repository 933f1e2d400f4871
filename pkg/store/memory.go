package store

import (
	"fmt"
	"sort"
	"sync"
)

// Memory keeps slices in memory. Dry runs and tests use it.
type Memory struct {
	mu     sync.RWMutex
	slices map[string][][]float64
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		slices: make(map[string][][]float64),
	}
}

// Save stores a copy of rows under name.
func (m *Memory) Save(name string, rows [][]float64) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("store: %s: empty slice", name)
	}
	cp := make([][]float64, len(rows))
	for i, r := range rows {
		cp[i] = append([]float64(nil), r...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slices[name] = cp
	return "mem://" + name + ".npy", nil
}

// Path names a media output without creating anything.
func (m *Memory) Path(name, ext string) (string, error) {
	return "mem://" + name + "." + ext, nil
}

// Get returns the rows saved under name.
func (m *Memory) Get(name string) ([][]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.slices[name]
	return rows, ok
}

// Names lists the saved slice names in order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.slices))
	for name := range m.slices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
