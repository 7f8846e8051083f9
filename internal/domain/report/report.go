package report

import (
	"time"

	"github.com/google/uuid"
)

// Status is the report lifecycle state. The formal set is Pending →
// InProgress → Completed → Reviewed. StatusAIAnalyzed sits outside that
// set: the AI-attach path historically stamped reports with a value the
// schema never declared, and downstream consumers match on it, so it is
// declared here explicitly rather than hidden in a free-form string.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusReviewed   Status = "Reviewed"

	// StatusAIAnalyzed is the out-of-band sentinel set when an AI verdict
	// is attached. Not a member of the formal enum; IsValid returns false.
	StatusAIAnalyzed Status = "AI Analyzed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusReviewed:
		return true
	}
	return false
}

// AIAnalysis is the verdict attached by the save-after-analysis path.
// When present, every field is required.
type AIAnalysis struct {
	Class         string  `json:"class"`
	Confidence    float64 `json:"confidence"`
	SaliencyImage string  `json:"saliencyImage"`
	GradcamImage  string  `json:"gradcamImage"`
	DoctorRemarks string  `json:"doctorRemarks"`
}

type Report struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index:idx_reports_pair" json:"patient"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index:idx_reports_pair" json:"doctor"`

	Type   string    `gorm:"column:type;type:varchar(100);not null" json:"type"`
	Date   time.Time `gorm:"column:date;not null;index" json:"date"`
	Status Status    `gorm:"column:status;type:varchar(30);not null;default:'Pending';index" json:"status"`

	Stage       string `gorm:"column:stage;type:varchar(50)" json:"stage,omitempty"`
	Diagnosis   string `gorm:"column:diagnosis;type:text" json:"diagnosis,omitempty"`
	DoctorNotes string `gorm:"column:doctor_notes;type:text" json:"doctorNotes,omitempty"`

	Images []string `gorm:"column:images;serializer:json" json:"images"`

	AIAnalysis *AIAnalysis `gorm:"column:ai_analysis;serializer:json" json:"aiAnalysis,omitempty"`
}

func (Report) TableName() string {
	return "clinical.reports"
}

// AppendImages adds spillover images from a later pathology submission.
func (r *Report) AppendImages(urls []string) {
	r.Images = append(r.Images, urls...)
}

// AttachVerdict applies an AI class label: the status moves to the
// sentinel value and the diagnosis carries the predicted class.
func (r *Report) AttachVerdict(predictedClass string) {
	r.Status = StatusAIAnalyzed
	r.Diagnosis = predictedClass
}

// CreateReportCommand is the direct-creation path: a doctor files a
// report against (patient, doctor) resolved by email, with images already
// uploaded to the object store.
type CreateReportCommand struct {
	PatientEmail string
	DoctorEmail  string
	Type         string
	Diagnosis    string
	Stage        string
	DoctorNotes  string
	Images       []string
}

// SaveReportCommand is the save-after-analysis path. Confidence inside
// AIAnalysis is distinguished from an absent value by the caller (wire
// DTOs use a pointer); by the time the command is built the analysis
// block is either complete or nil.
type SaveReportCommand struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Type       string
	Status     Status
	Stage      string
	Images     []string
	AIAnalysis *AIAnalysis
}

type UpdateReportCommand struct {
	Type        *string
	Diagnosis   *string
	Stage       *string
	DoctorNotes *string
	Status      *Status
}

// SaveResult reports the outcome of the save-after-analysis path. Linked
// is false when the report persisted but the patient could not be found
// afterward — a documented partial success, not an error.
type SaveResult struct {
	Report *Report
	Linked bool
}
