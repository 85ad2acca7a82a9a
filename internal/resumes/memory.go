package resumes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/humexxx/tech9-parserdf/internal/types"
)

// MemoryRepository is an in-process Repository used by tests and the
// database-less server mode.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]types.ResumeRecord
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]types.ResumeRecord)}
}

// Insert stores a copy of rec
func (m *MemoryRepository) Insert(_ context.Context, rec *types.ResumeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = cloneRecord(*rec)
	return nil
}

// Update replaces an existing record
func (m *MemoryRepository) Update(_ context.Context, rec *types.ResumeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneRecord(*rec)
	updated.CreatedAt = existing.CreatedAt
	m.records[rec.ID] = updated
	return nil
}

// Get returns a copy of the record
func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*types.ResumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

// ListFavorites returns favorites, most recently updated first
func (m *MemoryRepository) ListFavorites(_ context.Context) ([]types.ResumeRecord, error) {
	return m.filter(func(r types.ResumeRecord) bool { return r.IsFavorite }), nil
}

// ListRecent returns non-favorites created at or after since
func (m *MemoryRepository) ListRecent(_ context.Context, since time.Time) ([]types.ResumeRecord, error) {
	return m.filter(func(r types.ResumeRecord) bool {
		return !r.IsFavorite && !r.CreatedAt.Before(since)
	}), nil
}

// Delete removes a record
func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// DeleteStale removes non-favorites created before cutoff
func (m *MemoryRepository) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if !r.IsFavorite && r.CreatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) filter(keep func(types.ResumeRecord) bool) []types.ResumeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []types.ResumeRecord{}
	for _, r := range m.records {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func cloneRecord(r types.ResumeRecord) types.ResumeRecord {
	r.HiddenSections = append(types.HiddenSections{}, r.HiddenSections...)
	r.ResumeData.Summary = append(types.Summary(nil), r.ResumeData.Summary...)
	r.ResumeData.Skills = append([]string(nil), r.ResumeData.Skills...)
	r.ResumeData.Experience = append([]types.ExperienceItem(nil), r.ResumeData.Experience...)
	r.ResumeData.Education = append([]types.EducationItem(nil), r.ResumeData.Education...)
	return r
}
