package models

import "time"

// Configuration keys read by the timetable service.
const (
	ConfigKeySchedulerDays          = "scheduler.days"
	ConfigKeySchedulerPeriodsPerDay = "scheduler.periods_per_day"
)

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
