package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
)

func TestFindUser(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := NewUserService(users, newFakePatientRepo(), newFakeRosterRepo(), zap.NewNop())

	users.add(&domain.User{Name: "Dr. Mehta", Email: "mehta@example.com", Role: domain.RoleDoctor})

	t.Run("by email", func(t *testing.T) {
		u, err := svc.FindUser(ctx, "Mehta@Example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "Dr. Mehta", u.Name)
	})

	t.Run("role filter excludes other roles", func(t *testing.T) {
		_, err := svc.FindUser(ctx, "mehta@example.com", domain.RolePathologist)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("empty email is a validation failure", func(t *testing.T) {
		_, err := svc.FindUser(ctx, "", "")

		var validErr *ValidationError
		assert.ErrorAs(t, err, &validErr)
	})

	t.Run("unknown role is a validation failure", func(t *testing.T) {
		_, err := svc.FindUser(ctx, "mehta@example.com", "admin")

		var validErr *ValidationError
		assert.ErrorAs(t, err, &validErr)
	})
}

func TestRosterPatients(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	patients := newFakePatientRepo()
	roster := newFakeRosterRepo()
	svc := NewUserService(users, patients, roster, zap.NewNop())

	doctor := users.add(&domain.User{Name: "Dr. Mehta", Email: "mehta@example.com", Role: domain.RoleDoctor})
	p := patients.add(&patient.Patient{Name: "Rina Okafor", Email: "rina@example.com"})
	require.NoError(t, roster.AddPatient(ctx, doctor.ID, p.ID))

	t.Run("returns linked patients as summaries", func(t *testing.T) {
		got, err := svc.RosterPatients(ctx, doctor.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Rina Okafor", got[0].Name)
		assert.NotNil(t, got[0].Images)
	})

	t.Run("summaries come back in link order", func(t *testing.T) {
		second := patients.add(&patient.Patient{Name: "Ben Ito", Email: "ben@example.com"})
		third := patients.add(&patient.Patient{Name: "Mara Volkov", Email: "mara@example.com"})
		require.NoError(t, roster.AddPatient(ctx, doctor.ID, second.ID))
		require.NoError(t, roster.AddPatient(ctx, doctor.ID, third.ID))

		got, err := svc.RosterPatients(ctx, doctor.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []uuid.UUID{p.ID, second.ID, third.ID}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("patients deleted after linking are skipped", func(t *testing.T) {
		ghost := uuid.New()
		require.NoError(t, roster.AddPatient(ctx, doctor.ID, ghost))

		got, err := svc.RosterPatients(ctx, doctor.ID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("a non-doctor has no roster", func(t *testing.T) {
		tech := users.add(&domain.User{Name: "Lab Tech", Email: "lab@example.com", Role: domain.RolePathologist})

		_, err := svc.RosterPatients(ctx, tech.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := svc.RosterPatients(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
