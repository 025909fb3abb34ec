package models

import "time"

// Topic is a lesson subject a student books a class for.
type Topic struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Level       *string   `db:"level" json:"level,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
