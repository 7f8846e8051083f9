package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is the clinical patient record. Alongside demographics it
// carries derived diagnostic state: DetectedDisease and ReportStatus
// mirror the outcome of report writes, Images accumulates every image
// ever submitted for the patient (append-only, duplicates kept), and
// ReportIDs is a non-authoritative back-pointer cache of linked reports.
type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Name    string `gorm:"column:name;type:varchar(100)" json:"name"`
	Email   string `gorm:"column:email;type:varchar(255);uniqueIndex" json:"email"`
	Age     int    `gorm:"column:age" json:"age"`
	Gender  string `gorm:"column:gender;type:varchar(20)" json:"gender"`
	Address string `gorm:"column:address;type:text" json:"address"`

	Images []string `gorm:"column:images;serializer:json" json:"images"`

	DetectedDisease string `gorm:"column:detected_disease;type:varchar(100);default:''" json:"detectedDisease"`
	ReportStatus    string `gorm:"column:report_status;type:varchar(30);default:'Pending'" json:"reportStatus"`

	ReportIDs []uuid.UUID `gorm:"column:report_ids;serializer:json" json:"reports"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.Name)
}

// AppendImages adds image URLs to the accumulated list. Duplicates are
// intentionally not removed: two submissions of the same file are two
// entries.
func (p *Patient) AppendImages(urls []string) {
	p.Images = append(p.Images, urls...)
}

// LinkReport records a report reference on the patient. Append-only; the
// list is a display cache, not the source of truth.
func (p *Patient) LinkReport(reportID uuid.UUID) {
	p.ReportIDs = append(p.ReportIDs, reportID)
}

type CreatePatientCommand struct {
	Name    string
	Email   string
	Age     int
	Gender  string
	Address string
}

type UpdatePatientCommand struct {
	Name   *string
	Age    *int
	Gender *string
}

// Summary is the roster-facing projection of a patient.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Age             int       `json:"age"`
	Gender          string    `json:"gender"`
	Address         string    `json:"address"`
	Images          []string  `json:"images"`
	DetectedDisease string    `json:"detectedDisease"`
	ReportStatus    string    `json:"reportStatus"`
}

func (p *Patient) Summarize() Summary {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return Summary{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Age:             p.Age,
		Gender:          p.Gender,
		Address:         p.Address,
		Images:          images,
		DetectedDisease: p.DetectedDisease,
		ReportStatus:    p.ReportStatus,
	}
}
