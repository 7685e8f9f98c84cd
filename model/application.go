package model

import "time"

type Application struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     int       `json:"job_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
