package models

import (
	"time"
)

// DoctorProfile holds scheduling configuration for a doctor.
// Weekly availability is expressed in the doctor's local timezone;
// appointments are always stored as absolute instants.
type DoctorProfile struct {
	BaseModel
	UserID      string `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialty   string `gorm:"size:100" json:"specialty"`
	SlotMinutes int    `gorm:"not null;default:30" json:"slotMinutes"`
	Timezone    string `gorm:"size:64;not null;default:'UTC'" json:"timezone"` // IANA name, e.g. "Europe/Warsaw"

	// Relations
	User         User                `gorm:"foreignKey:UserID" json:"-"`
	Availability []AvailabilityBlock `gorm:"foreignKey:DoctorProfileID" json:"availability,omitempty"`
}

// AvailabilityBlock is one recurring weekly working window for a doctor.
// StartTime/EndTime are "HH:MM" wall-clock strings in the doctor's timezone.
type AvailabilityBlock struct {
	BaseModel
	DoctorProfileID string `gorm:"size:36;index" json:"doctorProfileId"`
	Weekday         int    `gorm:"not null" json:"weekday"` // 0 = Sunday .. 6 = Saturday
	StartTime       string `gorm:"size:5;not null" json:"startTime"`
	EndTime         string `gorm:"size:5;not null" json:"endTime"`
}

// BlockedSlot is an ad-hoc exception subtracted from computed availability
// (vacation, meetings, etc.). Boundaries are absolute instants and DoctorID
// refers to the doctor's user id, same as on Appointment.
type BlockedSlot struct {
	BaseModel
	DoctorID string    `gorm:"size:36;index" json:"doctorId"`
	StartsAt time.Time `gorm:"index" json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Reason   string    `gorm:"size:255" json:"reason,omitempty"`
}
