package models

import "time"

// Holiday is a calendar date on which no session takes place.
type Holiday struct {
	ID          string    `db:"id" json:"id"`
	Date        time.Time `db:"date" json:"date"`
	Description string    `db:"description" json:"description"`
}
