package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
)

func TestAssignedPatients(t *testing.T) {
	ctx := context.Background()

	patients := newFakePatientRepo()
	reports := newFakeReportRepo()
	svc := NewPatientService(patients, reports, zap.NewNop())

	doctorID := uuid.New()
	a := patients.add(&patient.Patient{Name: "A", Email: "a@example.com"})
	b := patients.add(&patient.Patient{Name: "B", Email: "b@example.com"})
	patients.add(&patient.Patient{Name: "C", Email: "c@example.com"})

	// Two reports for A, one for B, none for C.
	reports.add(&report.Report{PatientID: a.ID, DoctorID: doctorID})
	reports.add(&report.Report{PatientID: a.ID, DoctorID: doctorID})
	reports.add(&report.Report{PatientID: b.ID, DoctorID: doctorID})

	assigned, err := svc.AssignedPatients(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, assigned, 2)

	ids := []uuid.UUID{assigned[0].ID, assigned[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)

	t.Run("no reports means an empty roster", func(t *testing.T) {
		assigned, err := svc.AssignedPatients(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, assigned)
	})

	t.Run("deleted patients drop out of the roster", func(t *testing.T) {
		require.NoError(t, svc.DeletePatient(ctx, b.ID))

		assigned, err := svc.AssignedPatients(ctx, doctorID)
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, a.ID, assigned[0].ID)
	})
}

func TestCreatePatient(t *testing.T) {
	ctx := context.Background()
	svc := NewPatientService(newFakePatientRepo(), newFakeReportRepo(), zap.NewNop())

	t.Run("defaults report status to pending", func(t *testing.T) {
		p, err := svc.CreatePatient(ctx, &patient.CreatePatientCommand{
			Name:  "Rina Okafor",
			Email: "Rina@Example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Pending", p.ReportStatus)
		assert.Equal(t, "rina@example.com", p.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreatePatient(ctx, &patient.CreatePatientCommand{
			Name:  "Rina Again",
			Email: "rina@example.com",
		})
		assert.ErrorIs(t, err, patient.ErrPatientAlreadyExists)
	})

	t.Run("requires name and email", func(t *testing.T) {
		_, err := svc.CreatePatient(ctx, &patient.CreatePatientCommand{})

		var validErr *ValidationError
		require.ErrorAs(t, err, &validErr)
		assert.Len(t, validErr.Fields, 2)
	})
}

func TestSearchPatients(t *testing.T) {
	ctx := context.Background()
	patients := newFakePatientRepo()
	svc := NewPatientService(patients, newFakeReportRepo(), zap.NewNop())

	patients.add(&patient.Patient{Name: "Rina Okafor", Email: "rina@example.com"})
	patients.add(&patient.Patient{Name: "Ben Ito", Email: "ben@example.com"})

	t.Run("matches by name fragment", func(t *testing.T) {
		found, err := svc.SearchPatients(ctx, "rina")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Rina Okafor", found[0].Name)
	})

	t.Run("blank query returns nothing", func(t *testing.T) {
		found, err := svc.SearchPatients(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}
