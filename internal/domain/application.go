package domain

import "strings"

// ApplicationStatus represents whether an application may send notifications.
type ApplicationStatus string

const (
	ApplicationActive    ApplicationStatus = "ACTIVE"
	ApplicationSuspended ApplicationStatus = "SUSPENDED"
)

func (s ApplicationStatus) String() string { return string(s) }

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationActive, ApplicationSuspended:
		return true
	}
	return false
}

// ParseApplicationStatus treats a missing status as active; registration
// records written before suspension existed carry no status at all.
func ParseApplicationStatus(s string) ApplicationStatus {
	st := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st == "" || !st.IsValid() {
		return ApplicationActive
	}
	return st
}

// ApplicationConfig is the resolved delivery identity of one application.
type ApplicationConfig struct {
	ApplicationID       string
	EmailSenderIdentity string
	NotificationTopic   string
	Status              ApplicationStatus
}

func (c *ApplicationConfig) IsActive() bool {
	return c != nil && c.Status != ApplicationSuspended
}
