package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TeacherRepository reads teachers with their qualifications and availability.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns every teacher ordered by id with subject ids and available blocks attached.
func (r *TeacherRepository) List(ctx context.Context) ([]models.TeacherProfile, error) {
	const teachersQuery = `SELECT id, name, contract_type, weekly_hours, created_at, updated_at FROM teacher ORDER BY id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, teachersQuery); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	if len(teachers) == 0 {
		return []models.TeacherProfile{}, nil
	}

	const subjectsQuery = `SELECT teacher_id, subject_id FROM teacher_subjects ORDER BY teacher_id ASC, subject_id ASC`
	var links []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &links, subjectsQuery); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}

	const blocksQuery = `SELECT teacher_id, block FROM teacher_available_blocks ORDER BY teacher_id ASC, block ASC`
	var blocks []models.TeacherBlock
	if err := r.db.SelectContext(ctx, &blocks, blocksQuery); err != nil {
		return nil, fmt.Errorf("list teacher available blocks: %w", err)
	}

	profiles := make([]models.TeacherProfile, len(teachers))
	index := make(map[string]int, len(teachers))
	for i, teacher := range teachers {
		profiles[i] = models.TeacherProfile{Teacher: teacher, SubjectIDs: []string{}, AvailableBlocks: []string{}}
		index[teacher.ID] = i
	}
	for _, link := range links {
		if i, ok := index[link.TeacherID]; ok {
			profiles[i].SubjectIDs = append(profiles[i].SubjectIDs, link.SubjectID)
		}
	}
	for _, block := range blocks {
		if i, ok := index[block.TeacherID]; ok {
			profiles[i].AvailableBlocks = append(profiles[i].AvailableBlocks, block.Block)
		}
	}
	return profiles, nil
}
