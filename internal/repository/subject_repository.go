package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const subjectColumns = "id, name, level, weekly_blocks, type, color, created_at, updated_at"

// SubjectRepository reads the subject catalog.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByLevel returns the subjects of one level ordered by id.
func (r *SubjectRepository) ListByLevel(ctx context.Context, level string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subject WHERE level = $1 ORDER BY id ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, level); err != nil {
		return nil, fmt.Errorf("list subjects by level: %w", err)
	}
	return subjects, nil
}

// ListByIDs returns the subjects with the given ids.
func (r *SubjectRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM subject WHERE id = ANY($1) ORDER BY id ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list subjects by ids: %w", err)
	}
	return subjects, nil
}
