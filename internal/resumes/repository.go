// Package resumes implements the persistence rules for converted resumes:
// upserts, favorites, the recent window and retention cleanup.
package resumes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/humexxx/tech9-parserdf/internal/types"
)

// ErrNotFound is returned when a resume id does not exist
var ErrNotFound = errors.New("resume not found")

// Repository stores resume records. Implementations return ErrNotFound for
// unknown ids on Get, Update and Delete.
type Repository interface {
	Insert(ctx context.Context, rec *types.ResumeRecord) error
	// Update replaces the mutable fields of rec (name, data, original document,
	// format, hidden sections, favorite, updated_at)
	Update(ctx context.Context, rec *types.ResumeRecord) error
	Get(ctx context.Context, id uuid.UUID) (*types.ResumeRecord, error)
	// ListFavorites returns favorites ordered by updated_at descending
	ListFavorites(ctx context.Context) ([]types.ResumeRecord, error)
	// ListRecent returns non-favorites created at or after since, ordered by updated_at descending
	ListRecent(ctx context.Context, since time.Time) ([]types.ResumeRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteStale removes non-favorites created before cutoff and returns the count
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
