package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
)

type reportServiceFixture struct {
	svc          *ReportService
	reports      *fakeReportRepo
	patients     *fakePatientRepo
	users        *fakeUserRepo
	notification *fakeNotificationRepo
	notifier     *NotificationService
}

func newReportServiceFixture(t *testing.T) *reportServiceFixture {
	t.Helper()

	reports := newFakeReportRepo()
	patients := newFakePatientRepo()
	users := newFakeUserRepo()
	notifRepo := newFakeNotificationRepo()
	notifier := NewNotificationService(notifRepo, nil, zap.NewNop())

	return &reportServiceFixture{
		svc:          NewReportService(reports, patients, users, notifier, zap.NewNop()),
		reports:      reports,
		patients:     patients,
		users:        users,
		notification: notifRepo,
		notifier:     notifier,
	}
}

// drain flushes the async notification worker so assertions can run
// against persisted entries.
func (f *reportServiceFixture) drain() {
	f.notifier.Shutdown()
}

func (f *reportServiceFixture) seedPair() (*patient.Patient, *domain.User) {
	p := f.patients.add(&patient.Patient{Name: "Rina Okafor", Email: "rina@example.com"})
	d := f.users.add(&domain.User{Name: "Dr. Mehta", Email: "mehta@example.com", Role: domain.RoleDoctor})
	return p, d
}

func TestCreateReport(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending report without linking the patient", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()

		r, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{
			PatientEmail: "rina@example.com",
			DoctorEmail:  "mehta@example.com",
			Type:         "Blood Smear",
			Images:       []string{"https://img.example/a.png"},
		})
		require.NoError(t, err)

		assert.Equal(t, report.StatusPending, r.Status)
		assert.Equal(t, p.ID, r.PatientID)
		assert.Equal(t, d.ID, r.DoctorID)

		// Direct creation never touches the patient's reference cache.
		stored, err := f.patients.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.ReportIDs)

		// The report is still discoverable through patient-scoped listing.
		list, err := f.svc.PatientReports(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, r.ID, list[0].ID)
	})

	t.Run("emits a new-report notification", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()

		_, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{
			PatientEmail: p.Email,
			DoctorEmail:  d.Email,
			Type:         "Blood Smear",
			Images:       []string{"https://img.example/a.png"},
		})
		require.NoError(t, err)
		f.drain()

		entries := f.notification.all()
		require.Len(t, entries, 1)
		assert.Equal(t, domain.NotificationNewReport, entries[0].Type)
		assert.Contains(t, entries[0].Message, "Rina Okafor")
	})

	t.Run("missing patient beats missing doctor", func(t *testing.T) {
		f := newReportServiceFixture(t)

		_, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{
			PatientEmail: "ghost@example.com",
			DoctorEmail:  "nobody@example.com",
			Type:         "Blood Smear",
			Images:       []string{"https://img.example/a.png"},
		})
		assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	})

	t.Run("missing doctor", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, _ := f.seedPair()

		_, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{
			PatientEmail: p.Email,
			DoctorEmail:  "nobody@example.com",
			Type:         "Blood Smear",
			Images:       []string{"https://img.example/a.png"},
		})
		assert.ErrorIs(t, err, report.ErrDoctorNotFound)
	})

	t.Run("a pathologist cannot stand in for the doctor", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, _ := f.seedPair()
		f.users.add(&domain.User{Name: "Lab Tech", Email: "lab@example.com", Role: domain.RolePathologist})

		_, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{
			PatientEmail: p.Email,
			DoctorEmail:  "lab@example.com",
			Type:         "Blood Smear",
			Images:       []string{"https://img.example/a.png"},
		})
		assert.ErrorIs(t, err, report.ErrDoctorNotFound)
	})

	t.Run("rejects missing fields before any write", func(t *testing.T) {
		f := newReportServiceFixture(t)

		_, err := f.svc.CreateReport(ctx, &report.CreateReportCommand{})

		var validErr *ValidationError
		require.ErrorAs(t, err, &validErr)
		assert.Len(t, validErr.Fields, 4)
		reports, _ := f.reports.List(ctx)
		assert.Empty(t, reports)
	})
}

func TestSaveReport(t *testing.T) {
	ctx := context.Background()

	analysisBlock := func() *report.AIAnalysis {
		return &report.AIAnalysis{
			Class:         "Early Pre-B ALL",
			Confidence:    0.97,
			SaliencyImage: "https://img.example/sal.png",
			GradcamImage:  "https://img.example/cam.png",
			DoctorRemarks: "review margins",
		}
	}

	t.Run("links the report and mirrors analysis onto the patient", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()

		result, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID:  p.ID,
			DoctorID:   d.ID,
			Type:       "Blood Smear",
			Status:     report.StatusCompleted,
			Images:     []string{"https://img.example/a.png"},
			AIAnalysis: analysisBlock(),
		})
		require.NoError(t, err)
		assert.True(t, result.Linked)

		stored, err := f.patients.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{result.Report.ID}, stored.ReportIDs)
		assert.Equal(t, "Early Pre-B ALL", stored.DetectedDisease)
		assert.Equal(t, string(report.StatusCompleted), stored.ReportStatus)
	})

	t.Run("falls back to stage when no analysis class", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()

		_, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID: p.ID,
			DoctorID:  d.ID,
			Type:      "Blood Smear",
			Status:    report.StatusInProgress,
			Stage:     "Stage II",
			Images:    []string{"https://img.example/a.png"},
		})
		require.NoError(t, err)

		stored, _ := f.patients.GetByID(ctx, p.ID)
		assert.Equal(t, "Stage II", stored.DetectedDisease)
	})

	t.Run("leaves detectedDisease untouched with neither class nor stage", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()
		p.DetectedDisease = "Benign"
		require.NoError(t, f.patients.Save(ctx, p))

		_, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID: p.ID,
			DoctorID:  d.ID,
			Type:      "Blood Smear",
			Status:    report.StatusInProgress,
			Images:    []string{"https://img.example/a.png"},
		})
		require.NoError(t, err)

		stored, _ := f.patients.GetByID(ctx, p.ID)
		assert.Equal(t, "Benign", stored.DetectedDisease)
	})

	t.Run("missing patient is a partial success", func(t *testing.T) {
		f := newReportServiceFixture(t)
		_, d := f.seedPair()

		result, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID: uuid.New(),
			DoctorID:  d.ID,
			Type:      "Blood Smear",
			Status:    report.StatusCompleted,
			Images:    []string{"https://img.example/a.png"},
		})
		require.NoError(t, err)
		assert.False(t, result.Linked)

		// The report itself persisted.
		_, err = f.reports.GetByID(ctx, result.Report.ID)
		assert.NoError(t, err)
	})

	t.Run("patient save failure surfaces after the report committed", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()
		f.patients.failSave = errors.New("connection reset")

		_, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID: p.ID,
			DoctorID:  d.ID,
			Type:      "Blood Smear",
			Status:    report.StatusCompleted,
			Images:    []string{"https://img.example/a.png"},
		})
		require.Error(t, err)

		reports, _ := f.reports.List(ctx)
		assert.Len(t, reports, 1)
	})

	t.Run("partial analysis block is rejected", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()

		block := analysisBlock()
		block.SaliencyImage = ""
		block.DoctorRemarks = ""

		_, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
			PatientID:  p.ID,
			DoctorID:   d.ID,
			Type:       "Blood Smear",
			Status:     report.StatusCompleted,
			Images:     []string{"https://img.example/a.png"},
			AIAnalysis: block,
		})

		var validErr *ValidationError
		require.ErrorAs(t, err, &validErr)
		assert.Len(t, validErr.Fields, 2)
		reports, _ := f.reports.List(ctx)
		assert.Empty(t, reports)
	})
}

func TestUpdateReport(t *testing.T) {
	ctx := context.Background()

	seedReport := func(f *reportServiceFixture) *report.Report {
		p, d := f.seedPair()
		return f.reports.add(&report.Report{
			PatientID: p.ID,
			DoctorID:  d.ID,
			Type:      "Blood Smear",
			Status:    report.StatusPending,
		})
	}

	t.Run("status change emits exactly one notification", func(t *testing.T) {
		f := newReportServiceFixture(t)
		r := seedReport(f)

		status := report.StatusCompleted
		updated, err := f.svc.UpdateReport(ctx, r.ID, &report.UpdateReportCommand{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, report.StatusCompleted, updated.Status)

		f.drain()
		entries := f.notification.all()
		require.Len(t, entries, 1)
		assert.Equal(t, domain.NotificationReportStatusChange, entries[0].Type)
		assert.Contains(t, entries[0].Message, "Completed")
	})

	t.Run("same status is silent", func(t *testing.T) {
		f := newReportServiceFixture(t)
		r := seedReport(f)

		status := report.StatusPending
		notes := "no change in morphology"
		_, err := f.svc.UpdateReport(ctx, r.ID, &report.UpdateReportCommand{
			Status:      &status,
			DoctorNotes: &notes,
		})
		require.NoError(t, err)

		f.drain()
		assert.Empty(t, f.notification.all())
	})

	t.Run("absent status is silent", func(t *testing.T) {
		f := newReportServiceFixture(t)
		r := seedReport(f)

		notes := "awaiting cytogenetics"
		_, err := f.svc.UpdateReport(ctx, r.ID, &report.UpdateReportCommand{DoctorNotes: &notes})
		require.NoError(t, err)

		f.drain()
		assert.Empty(t, f.notification.all())
	})

	t.Run("unknown report", func(t *testing.T) {
		f := newReportServiceFixture(t)

		_, err := f.svc.UpdateReport(ctx, uuid.New(), &report.UpdateReportCommand{})
		assert.ErrorIs(t, err, report.ErrReportNotFound)
	})
}

func TestAttachVerdict(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the analyzed status and mirrors the patient", func(t *testing.T) {
		f := newReportServiceFixture(t)
		p, d := f.seedPair()
		r := f.reports.add(&report.Report{PatientID: p.ID, DoctorID: d.ID, Status: report.StatusPending})

		updated, err := f.svc.AttachVerdict(ctx, r.ID, "Pro-B ALL")
		require.NoError(t, err)

		assert.Equal(t, report.StatusAIAnalyzed, updated.Status)
		assert.False(t, updated.Status.IsValid())
		assert.Equal(t, "Pro-B ALL", updated.Diagnosis)

		stored, _ := f.patients.GetByID(ctx, p.ID)
		assert.Equal(t, "Pro-B ALL", stored.DetectedDisease)
		assert.Equal(t, "AI Analyzed", stored.ReportStatus)
	})

	t.Run("missing patient is skipped, not fatal", func(t *testing.T) {
		f := newReportServiceFixture(t)
		_, d := f.seedPair()
		r := f.reports.add(&report.Report{PatientID: uuid.New(), DoctorID: d.ID, Status: report.StatusPending})

		updated, err := f.svc.AttachVerdict(ctx, r.ID, "Benign")
		require.NoError(t, err)
		assert.Equal(t, report.StatusAIAnalyzed, updated.Status)
	})

	t.Run("empty class is rejected", func(t *testing.T) {
		f := newReportServiceFixture(t)

		_, err := f.svc.AttachVerdict(ctx, uuid.New(), "  ")

		var validErr *ValidationError
		assert.ErrorAs(t, err, &validErr)
	})
}

func TestDeleteReportDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	f := newReportServiceFixture(t)
	p, d := f.seedPair()

	result, err := f.svc.SaveReport(ctx, &report.SaveReportCommand{
		PatientID: p.ID,
		DoctorID:  d.ID,
		Type:      "Blood Smear",
		Status:    report.StatusCompleted,
		Images:    []string{"https://img.example/a.png"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteReport(ctx, result.Report.ID))

	_, err = f.svc.GetReport(ctx, result.Report.ID)
	assert.ErrorIs(t, err, report.ErrReportNotFound)

	// The patient still references the deleted report; the cache is
	// allowed to dangle.
	stored, _ := f.patients.GetByID(ctx, p.ID)
	assert.Contains(t, stored.ReportIDs, result.Report.ID)
	assert.Equal(t, string(report.StatusCompleted), stored.ReportStatus)
}
