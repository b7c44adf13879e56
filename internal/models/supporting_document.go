package models

// SupportingDocument represents a file attached to an appointment by the
// patient (referral letters, previous results, etc.). The content itself is
// opaque to the scheduling core.
type SupportingDocument struct {
	BaseModel
	AppointmentID string `json:"appointmentId" gorm:"not null;type:varchar(36)"`
	FileName      string `json:"fileName" gorm:"not null"`
	FileType      string `json:"fileType" gorm:"not null"` // MIME type of the file
	FileData      []byte `json:"-" gorm:"type:longblob;not null"`
}
