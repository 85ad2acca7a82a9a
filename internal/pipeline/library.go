package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// ErrUnknownResume is returned for an id that is not in the loaded library
var ErrUnknownResume = errors.New("resume is not in the library")

// LibraryStore is the persistence API behind the saved-resumes view
type LibraryStore interface {
	ListResumes(ctx context.Context) (*types.ResumeList, error)
	UpdateResume(ctx context.Context, id uuid.UUID, patch types.ResumePatch) (*types.ResumeRecord, error)
	DeleteResume(ctx context.Context, id uuid.UUID) error
	Cleanup(ctx context.Context) (int64, error)
}

// Library is a local view of saved resumes. Changes are applied locally
// first and reverted if the store rejects them.
type Library struct {
	store LibraryStore

	mu        sync.Mutex
	favorites []types.ResumeRecord
	recent    []types.ResumeRecord
}

// NewLibrary creates an empty library backed by store
func NewLibrary(store LibraryStore) *Library {
	return &Library{store: store}
}

// Load runs the retention sweep and then fetches the listing.
// A failed sweep is logged and does not stop the load.
func (l *Library) Load(ctx context.Context) error {
	log := observability.Logger()
	if n, err := l.store.Cleanup(ctx); err != nil {
		log.WithError(err).Warn("resume cleanup failed")
	} else if n > 0 {
		log.WithField("deleted", n).Info("removed stale resumes")
	}

	list, err := l.store.ListResumes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list resumes: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.favorites = append([]types.ResumeRecord(nil), list.Favorites...)
	l.recent = append([]types.ResumeRecord(nil), list.Recent...)
	return nil
}

// Favorites returns the pinned resumes, most recently updated first
func (l *Library) Favorites() []types.ResumeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.ResumeRecord(nil), l.favorites...)
}

// Recent returns the unpinned resumes, most recently updated first
func (l *Library) Recent() []types.ResumeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.ResumeRecord(nil), l.recent...)
}

// ToggleFavorite pins or unpins a resume
func (l *Library) ToggleFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return l.optimistic(ctx, id, func(rec *types.ResumeRecord) (types.ResumePatch, func(*types.ResumeRecord)) {
		prev := rec.IsFavorite
		rec.IsFavorite = favorite
		return types.ResumePatch{IsFavorite: &favorite}, func(r *types.ResumeRecord) { r.IsFavorite = prev }
	})
}

// HideSection hides a section of a saved resume
func (l *Library) HideSection(ctx context.Context, id uuid.UUID, sec types.Section) error {
	if !sec.Hideable() {
		return fmt.Errorf("section %q cannot be hidden", sec)
	}
	return l.setHidden(ctx, id, func(h types.HiddenSections) types.HiddenSections { return h.Hide(sec) })
}

// RestoreSection shows a hidden section of a saved resume again
func (l *Library) RestoreSection(ctx context.Context, id uuid.UUID, sec types.Section) error {
	return l.setHidden(ctx, id, func(h types.HiddenSections) types.HiddenSections { return h.Restore(sec) })
}

func (l *Library) setHidden(ctx context.Context, id uuid.UUID, change func(types.HiddenSections) types.HiddenSections) error {
	return l.optimistic(ctx, id, func(rec *types.ResumeRecord) (types.ResumePatch, func(*types.ResumeRecord)) {
		prev := rec.HiddenSections
		next := change(prev)
		rec.HiddenSections = next
		return types.ResumePatch{HiddenSections: &next}, func(r *types.ResumeRecord) { r.HiddenSections = prev }
	})
}

// Delete removes a resume from the store and the library
func (l *Library) Delete(ctx context.Context, id uuid.UUID) error {
	if err := l.store.DeleteResume(ctx, id); err != nil && !client.IsNotFound(err) {
		return fmt.Errorf("failed to delete resume: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.favorites = without(l.favorites, id)
	l.recent = without(l.recent, id)
	return nil
}

// optimistic applies change locally, sends the resulting patch, and on
// failure replays the inverse captured when the change was applied.
func (l *Library) optimistic(ctx context.Context, id uuid.UUID, change func(*types.ResumeRecord) (types.ResumePatch, func(*types.ResumeRecord))) error {
	l.mu.Lock()
	rec := l.findLocked(id)
	if rec == nil {
		l.mu.Unlock()
		return ErrUnknownResume
	}
	patch, inverse := change(rec)
	l.arrangeLocked()
	l.mu.Unlock()

	updated, err := l.store.UpdateResume(ctx, id, patch)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if rec := l.findLocked(id); rec != nil {
			inverse(rec)
			l.arrangeLocked()
		}
		observability.Logger().WithFields(logrus.Fields{"resume_id": id}).WithError(err).Warn("update rejected, change reverted")
		return fmt.Errorf("failed to update resume: %w", err)
	}
	if rec := l.findLocked(id); rec != nil {
		*rec = *updated
		l.arrangeLocked()
	}
	return nil
}

func (l *Library) findLocked(id uuid.UUID) *types.ResumeRecord {
	for i := range l.favorites {
		if l.favorites[i].ID == id {
			return &l.favorites[i]
		}
	}
	for i := range l.recent {
		if l.recent[i].ID == id {
			return &l.recent[i]
		}
	}
	return nil
}

// arrangeLocked moves records to the list matching their favorite flag and
// orders both lists by updatedAt, newest first.
func (l *Library) arrangeLocked() {
	all := make([]types.ResumeRecord, 0, len(l.favorites)+len(l.recent))
	all = append(all, l.favorites...)
	all = append(all, l.recent...)

	favorites := make([]types.ResumeRecord, 0, len(all))
	recent := make([]types.ResumeRecord, 0, len(all))
	for _, r := range all {
		if r.IsFavorite {
			favorites = append(favorites, r)
		} else {
			recent = append(recent, r)
		}
	}
	byUpdated := func(s []types.ResumeRecord) func(i, j int) bool {
		return func(i, j int) bool { return s[i].UpdatedAt.After(s[j].UpdatedAt) }
	}
	sort.SliceStable(favorites, byUpdated(favorites))
	sort.SliceStable(recent, byUpdated(recent))
	l.favorites, l.recent = favorites, recent
}

func without(records []types.ResumeRecord, id uuid.UUID) []types.ResumeRecord {
	out := records[:0]
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
