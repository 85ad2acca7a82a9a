package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/humexxx/tech9-parserdf/internal/resumes"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

const resumeColumns = `id, name, resume_data, original_pdf, format, hidden_sections, is_favorite, created_at, updated_at`

// ResumeRepository implements resumes.Repository on PostgreSQL
type ResumeRepository struct {
	db *DB
}

// Resumes returns the resume repository backed by this database
func (db *DB) Resumes() *ResumeRepository {
	return &ResumeRepository{db: db}
}

var _ resumes.Repository = (*ResumeRepository)(nil)

// Insert creates a resume row
func (r *ResumeRepository) Insert(ctx context.Context, rec *types.ResumeRecord) error {
	data, err := json.Marshal(rec.ResumeData)
	if err != nil {
		return fmt.Errorf("failed to marshal resume data: %w", err)
	}

	_, err = r.db.pool.Exec(ctx,
		`INSERT INTO resumes (`+resumeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Name, data, rec.OriginalDocument, string(rec.Format),
		rec.HiddenSections.Strings(), rec.IsFavorite, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resume: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing row
func (r *ResumeRepository) Update(ctx context.Context, rec *types.ResumeRecord) error {
	data, err := json.Marshal(rec.ResumeData)
	if err != nil {
		return fmt.Errorf("failed to marshal resume data: %w", err)
	}

	result, err := r.db.pool.Exec(ctx,
		`UPDATE resumes
		 SET name = $2, resume_data = $3, original_pdf = $4, format = $5,
		     hidden_sections = $6, is_favorite = $7, updated_at = $8
		 WHERE id = $1`,
		rec.ID, rec.Name, data, rec.OriginalDocument, string(rec.Format),
		rec.HiddenSections.Strings(), rec.IsFavorite, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return resumes.ErrNotFound
	}
	return nil
}

// Get retrieves a resume by ID
func (r *ResumeRepository) Get(ctx context.Context, id uuid.UUID) (*types.ResumeRecord, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id)
	rec, err := scanResume(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resumes.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return rec, nil
}

// ListFavorites returns favorites, most recently updated first
func (r *ResumeRepository) ListFavorites(ctx context.Context) ([]types.ResumeRecord, error) {
	return r.list(ctx,
		`SELECT `+resumeColumns+` FROM resumes
		 WHERE is_favorite = TRUE
		 ORDER BY updated_at DESC`)
}

// ListRecent returns non-favorites created at or after since
func (r *ResumeRepository) ListRecent(ctx context.Context, since time.Time) ([]types.ResumeRecord, error) {
	return r.list(ctx,
		`SELECT `+resumeColumns+` FROM resumes
		 WHERE is_favorite = FALSE AND created_at >= $1
		 ORDER BY updated_at DESC`, since)
}

// Delete removes a resume row
func (r *ResumeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return resumes.ErrNotFound
	}
	return nil
}

// DeleteStale removes non-favorites created before cutoff
func (r *ResumeRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx,
		`DELETE FROM resumes WHERE is_favorite = FALSE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale resumes: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *ResumeRepository) list(ctx context.Context, query string, args ...any) ([]types.ResumeRecord, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	out := []types.ResumeRecord{}
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resumes: %w", err)
	}
	return out, nil
}

func scanResume(row pgx.Row) (*types.ResumeRecord, error) {
	var (
		rec    types.ResumeRecord
		data   []byte
		format string
		hidden []string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &data, &rec.OriginalDocument, &format,
		&hidden, &rec.IsFavorite, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.ResumeData); err != nil {
		return nil, fmt.Errorf("failed to decode resume data: %w", err)
	}
	rec.Format = types.Layout(format)
	rec.HiddenSections = types.NewHiddenSections(hidden...)
	return &rec, nil
}
