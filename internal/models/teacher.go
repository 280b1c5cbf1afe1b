package models

import "time"

// ContractType distinguishes full and partial teaching contracts.
type ContractType string

const (
	ContractTypeFull    ContractType = "FULL"
	ContractTypePartial ContractType = "PARTIAL"
)

// Teacher represents an instructor record.
type Teacher struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	ContractType ContractType `db:"contract_type" json:"contract_type"`
	WeeklyHours  int          `db:"weekly_hours" json:"weekly_hours"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// TeacherSubject links a teacher to a subject they are qualified to teach.
type TeacherSubject struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// TeacherBlock is one weekly block token (e.g. MON-1) in which a teacher is available.
type TeacherBlock struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Block     string `db:"block" json:"block"`
}

// TeacherProfile aggregates a teacher with qualifications and availability.
type TeacherProfile struct {
	Teacher
	SubjectIDs      []string `json:"subject_ids"`
	AvailableBlocks []string `json:"available_blocks"`
}
