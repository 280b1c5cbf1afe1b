package models

import "time"

// Course is a group of students of one level that shares a weekly timetable.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Level         string    `db:"level" json:"level"`
	HeadTeacherID *string   `db:"head_teacher_id" json:"head_teacher_id,omitempty"`
	StudentCount  int       `db:"student_count" json:"student_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
