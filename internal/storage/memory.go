package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu          sync.RWMutex
	providers   map[string]ProviderInfo
	runs        []PriceRun
	records     map[string][]PriceRecord
	settings    map[string]string
	jobs        map[string]ScheduledJob
	emailConfig *EmailConfig
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		providers: make(map[string]ProviderInfo),
		records:   make(map[string][]PriceRecord),
		settings:  make(map[string]string),
		jobs:      make(map[string]ScheduledJob),
	}
}

// NewMemoryWithProviders returns a MemoryStorage seeded with the given
// provider list.
func NewMemoryWithProviders(list []ProviderInfo) *MemoryStorage {
	m := NewMemory()
	for _, p := range list {
		m.providers[p.Key] = p
	}
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStorage) GetProvider(ctx context.Context, key string) (*ProviderInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[key]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStorage) UpsertProvider(ctx context.Context, p ProviderInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Key] = p
	return nil
}

func (m *MemoryStorage) SaveRun(ctx context.Context, run PriceRun, records []PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}
	m.runs = append(m.runs, run)
	stored := make([]PriceRecord, len(records))
	copy(stored, records)
	for i := range stored {
		stored[i].RunID = run.RunID
	}
	m.records[run.RunID] = stored
	return nil
}

func (m *MemoryStorage) GetLatestRun(ctx context.Context) (*PriceRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	cp := m.runs[len(m.runs)-1]
	return &cp, nil
}

func (m *MemoryStorage) ListRuns(ctx context.Context, limit int) ([]PriceRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PriceRun, len(m.runs))
	copy(out, m.runs)
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStorage) ListRunRecords(ctx context.Context, runID string) ([]PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.records[runID]
	if !ok {
		return nil, nil
	}
	out := make([]PriceRecord, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.emailConfig == nil {
		return nil, nil
	}
	cfg := *m.emailConfig
	return &cfg, nil
}

func (m *MemoryStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailConfig = &config
	return nil
}

func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	// In-memory single instance always acquires the lock.
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := 0
	if success {
		status = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return nil
}
