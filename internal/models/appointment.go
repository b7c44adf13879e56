package models

import (
	"time"
)

// AppointmentStatus represents the stored status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusNoShow      AppointmentStatus = "no_show"
)

// IsTerminal reports whether no further lifecycle transition may change the status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// ForWhom indicates who the appointment is for
type ForWhom string

const (
	ForWhomMe          ForWhom = "me"
	ForWhomSomeoneElse ForWhom = "someone_else"
)

// Appointment represents a scheduled medical appointment.
// StartsAt/EndsAt are absolute instants; rows are never deleted,
// cancellation is a status.
type Appointment struct {
	BaseModel
	PatientID         string            `gorm:"size:36;index" json:"patientId"`
	DoctorID          string            `gorm:"size:36;index" json:"doctorId"`
	StartsAt          time.Time         `gorm:"index" json:"startsAt"`
	EndsAt            time.Time         `json:"endsAt"`
	Status            AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason            string            `gorm:"size:255" json:"reason"`
	Notes             string            `gorm:"type:text" json:"notes"`
	ForWhom           ForWhom           `gorm:"size:20;default:'me'" json:"forWhom"`
	OtherPersonName   string            `gorm:"size:200" json:"otherPersonName,omitempty"`
	OtherPersonDOB    *time.Time        `json:"otherPersonDateOfBirth,omitempty"`
	OtherPersonGender string            `gorm:"size:20" json:"otherPersonGender,omitempty"`
	GrantDoctorAccess bool              `gorm:"default:false" json:"grantDoctorAccess"`

	// Relations
	Patient   User                 `gorm:"foreignKey:PatientID" json:"-"`
	Doctor    User                 `gorm:"foreignKey:DoctorID" json:"-"`
	Documents []SupportingDocument `gorm:"foreignKey:AppointmentID" json:"documents,omitempty"`
}
