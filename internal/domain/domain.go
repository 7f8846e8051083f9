package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor      Role = "doctor"
	RolePathologist Role = "pathologist"
	RolePatient     Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDoctor, RolePathologist, RolePatient:
		return true
	}
	return false
}

// RequiresPassword reports whether accounts of this role authenticate with
// a password. Patient accounts are provisioned by staff and log in by
// email only.
func (r Role) RequiresPassword() bool {
	return r != RolePatient
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Name         string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index" json:"role"`

	Age     int    `gorm:"column:age" json:"age"`
	Gender  string `gorm:"column:gender;type:varchar(20)" json:"gender"`
	Address string `gorm:"column:address;type:text" json:"address"`

	// For patient-role users, links to their clinical patient record.
	PatientID *uuid.UUID `gorm:"column:patient_id;type:uuid;index" json:"patientId,omitempty"`
}

func (User) TableName() string {
	return "auth.users"
}

// DoctorPatient is one row of a doctor's patient roster. The composite
// unique index gives the roster set semantics: inserting an existing pair
// is a no-op. The roster is a cache; authoritative membership is "patient
// referenced by at least one of the doctor's reports".
type DoctorPatient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;uniqueIndex:idx_doctor_patient_pair"`
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;uniqueIndex:idx_doctor_patient_pair"`
}

func (DoctorPatient) TableName() string {
	return "clinical.doctor_patients"
}

type NotificationType string

const (
	NotificationNewReport          NotificationType = "NEW_REPORT"
	NotificationReportStatusChange NotificationType = "REPORT_STATUS_CHANGE"
)

// Notification is a best-effort side record of a status change. The core
// only writes these; consumption is left to other systems.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`

	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	PatientID uuid.UUID        `gorm:"column:patient_id;type:uuid;not null" json:"patientId"`
	DoctorID  uuid.UUID        `gorm:"column:doctor_id;type:uuid;not null" json:"doctorId"`
	Type      NotificationType `gorm:"column:type;type:varchar(40);not null" json:"type"`
	Message   string           `gorm:"column:message;type:text;not null" json:"message"`
}

func (Notification) TableName() string {
	return "clinical.notifications"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID    uuid.UUID  `json:"sub"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}
