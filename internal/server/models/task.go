package models

import "time"

type Task struct {
	ID             string
	Title          string
	Description    string
	Location       string
	SkillsRequired []string
	PostedByID     string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TaskFilter narrows task listings. Zero values mean "any".
type TaskFilter struct {
	Active   *bool
	PostedBy string
	Search   string
	Skip     int
	Limit    int
}
