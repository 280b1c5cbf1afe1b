package models

import "time"

// Subject is a catalog entry taught to every course of the same level.
type Subject struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Level        string    `db:"level" json:"level"`
	WeeklyBlocks int       `db:"weekly_blocks" json:"weekly_blocks"`
	Type         string    `db:"type" json:"type"`
	Color        string    `db:"color" json:"color"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
