package models

import (
	"time"
)

// RescheduleStatus represents the status of a reschedule request
type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleAccepted RescheduleStatus = "accepted"
	RescheduleRejected RescheduleStatus = "rejected"
)

// RescheduleRequest is a proposal to move an appointment to a new time window.
// At most one request per appointment may be pending at a time; accepted and
// rejected requests are terminal and kept as history.
type RescheduleRequest struct {
	BaseModel
	AppointmentID string           `gorm:"size:36;index" json:"appointmentId"`
	RequestedBy   string           `gorm:"size:36" json:"requestedBy"`
	OldStartsAt   time.Time        `json:"oldStartsAt"`
	OldEndsAt     time.Time        `json:"oldEndsAt"`
	NewStartsAt   time.Time        `json:"newStartsAt"`
	NewEndsAt     time.Time        `json:"newEndsAt"`
	Status        RescheduleStatus `gorm:"size:20;default:'pending'" json:"status"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
