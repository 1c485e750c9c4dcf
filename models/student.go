package models

import "time"

// Student represents a registered exam candidate
type Student struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"` // public identifier, e.g. STU-ABC123
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
