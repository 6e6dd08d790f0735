package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	FullName     string
	Location     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFilter narrows admin user listings. Zero values mean "any".
type UserFilter struct {
	Role   Role
	Active *bool
	Search string
	Skip   int
	Limit  int
}
