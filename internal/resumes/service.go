package resumes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Retention windows
const (
	RecentWindow    = 30 * 24 * time.Hour
	RetentionWindow = 90 * 24 * time.Hour
)

// Service applies the resume lifecycle rules on top of a Repository
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// Save inserts a new record when id is nil, otherwise replaces the mutable
// fields of the existing record. IsFavorite defaults to false only on insert.
func (s *Service) Save(ctx context.Context, in types.ResumeInput, id *uuid.UUID) (*types.ResumeRecord, error) {
	now := s.timestamp()

	if id == nil {
		rec := &types.ResumeRecord{
			ID:               uuid.New(),
			Name:             in.Name,
			ResumeData:       in.ResumeData,
			OriginalDocument: in.OriginalDocument,
			Format:           layoutOrDefault(in.Format),
			HiddenSections:   in.HiddenSections.Normalize(),
			IsFavorite:       in.IsFavorite != nil && *in.IsFavorite,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to insert resume: %w", err)
		}
		s.log(rec.ID).Info("resume created")
		return rec, nil
	}

	rec, err := s.repo.Get(ctx, *id)
	if err != nil {
		return nil, err
	}
	rec.Name = in.Name
	rec.ResumeData = in.ResumeData
	rec.OriginalDocument = in.OriginalDocument
	rec.Format = layoutOrDefault(in.Format)
	rec.HiddenSections = in.HiddenSections.Normalize()
	if in.IsFavorite != nil {
		rec.IsFavorite = *in.IsFavorite
	}
	rec.UpdatedAt = bump(rec.CreatedAt, now)

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.log(rec.ID).Debug("resume saved")
	return rec, nil
}

// Get returns a record or ErrNotFound
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.ResumeRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListAll returns favorites and the recent window. The two sets are disjoint.
func (s *Service) ListAll(ctx context.Context) (*types.ResumeList, error) {
	since := s.timestamp().Add(-RecentWindow)

	var list types.ResumeList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		favorites, err := s.repo.ListFavorites(gctx)
		if err != nil {
			return fmt.Errorf("failed to list favorites: %w", err)
		}
		list.Favorites = favorites
		return nil
	})
	g.Go(func() error {
		recent, err := s.repo.ListRecent(gctx, since)
		if err != nil {
			return fmt.Errorf("failed to list recent resumes: %w", err)
		}
		list.Recent = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if list.Favorites == nil {
		list.Favorites = []types.ResumeRecord{}
	}
	if list.Recent == nil {
		list.Recent = []types.ResumeRecord{}
	}
	return &list, nil
}

// Update applies a partial update and bumps updated_at
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch types.ResumePatch) (*types.ResumeRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.ResumeData != nil {
		rec.ResumeData = *patch.ResumeData
	}
	if patch.Format != nil {
		rec.Format = layoutOrDefault(*patch.Format)
	}
	if patch.HiddenSections != nil {
		rec.HiddenSections = patch.HiddenSections.Normalize()
	}
	if patch.IsFavorite != nil {
		rec.IsFavorite = *patch.IsFavorite
	}
	rec.UpdatedAt = bump(rec.CreatedAt, s.timestamp())

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ToggleFavorite sets the favorite flag
func (s *Service) ToggleFavorite(ctx context.Context, id uuid.UUID, favorite bool) (*types.ResumeRecord, error) {
	return s.Update(ctx, id, types.ResumePatch{IsFavorite: &favorite})
}

// Delete removes a record permanently
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log(id).Info("resume deleted")
	return nil
}

// Cleanup deletes non-favorites older than the retention window and returns the count
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.timestamp().Add(-RetentionWindow)
	n, err := s.repo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up resumes: %w", err)
	}
	observability.Logger().WithFields(logrus.Fields{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("retention cleanup finished")
	return n, nil
}

func (s *Service) log(id uuid.UUID) *logrus.Entry {
	return observability.Logger().WithField("resume_id", id.String())
}

func layoutOrDefault(l types.Layout) types.Layout {
	if l == "" {
		return types.DefaultLayout
	}
	return l
}

// bump keeps updated_at >= created_at even if the clock moves backwards
func bump(createdAt, now time.Time) time.Time {
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}
