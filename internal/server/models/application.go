package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}

type Application struct {
	ID          string
	TaskID      string
	VolunteerID string
	Status      ApplicationStatus
	AppliedAt   time.Time
}

// ApplicationFilter narrows application listings. Zero values mean "any".
type ApplicationFilter struct {
	TaskID      string
	VolunteerID string
	Status      ApplicationStatus
	Skip        int
	Limit       int
}
