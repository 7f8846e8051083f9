package submission

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one pathologist-originated image batch tied to a
// (patient, doctor) pair. Append-only: submissions are never edited.
type Submission struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patientId"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctorId"`

	Images  []string  `gorm:"column:images;serializer:json" json:"images"`
	Comment string    `gorm:"column:comment;type:text;not null" json:"comment"`
	Date    time.Time `gorm:"column:date;not null;index" json:"date"`
}

func (Submission) TableName() string {
	return "clinical.pathology_submissions"
}

// Party identifies one side of a submission for display.
type Party struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// View is a submission with its patient and doctor identities resolved.
type View struct {
	Submission
	Patient Party `json:"patient"`
	Doctor  Party `json:"doctor"`
}

type CreateSubmissionCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Comment   string

	// Uploaded image payloads; the service uploads them to the object
	// store and persists the resulting URLs.
	Images []ImagePayload
}

type ImagePayload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ListSubmissionsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}
