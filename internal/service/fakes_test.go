package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
	"github.com/oncolab/leukoflow/internal/domain/submission"
)

// In-memory fakes for the repository interfaces. Each fake supports
// error injection via its fail* fields so the non-atomic write sequences
// can be interrupted at a chosen step.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.add(u)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) && u.Role == role {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*patient.Patient
	failSave error
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (f *fakePatientRepo) add(p *patient.Patient) *patient.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.patients[p.ID] = p
	return p
}

func (f *fakePatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	f.mu.Lock()
	for _, existing := range f.patients {
		if strings.EqualFold(existing.Email, p.Email) {
			f.mu.Unlock()
			return patient.ErrPatientAlreadyExists
		}
	}
	f.mu.Unlock()
	f.add(p)
	return nil
}

func (f *fakePatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (f *fakePatientRepo) GetByEmail(ctx context.Context, email string) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (f *fakePatientRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*patient.Patient, 0, len(ids))
	// Reversed on purpose: an IN query makes no ordering promise, so
	// callers must not rely on the order rows come back in.
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := f.patients[ids[i]]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	if cmd.Name != nil {
		p.Name = *cmd.Name
	}
	if cmd.Age != nil {
		p.Age = *cmd.Age
	}
	if cmd.Gender != nil {
		p.Gender = *cmd.Gender
	}
	return p, nil
}

func (f *fakePatientRepo) Save(ctx context.Context, p *patient.Patient) error {
	if f.failSave != nil {
		return f.failSave
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patients[p.ID] = p
	return nil
}

func (f *fakePatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.patients[id]; !ok {
		return patient.ErrPatientNotFound
	}
	delete(f.patients, id)
	return nil
}

func (f *fakePatientRepo) List(ctx context.Context) ([]*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*patient.Patient, 0, len(f.patients))
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePatientRepo) Search(ctx context.Context, query string) ([]*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*patient.Patient
	for _, p := range f.patients {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(p.Email), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeReportRepo struct {
	mu         sync.Mutex
	reports    map[uuid.UUID]*report.Report
	order      []uuid.UUID
	failCreate error
	failSave   error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[uuid.UUID]*report.Report)}
}

func (f *fakeReportRepo) add(r *report.Report) *report.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.reports[r.ID] = r
	f.order = append(f.order, r.ID)
	return r
}

func (f *fakeReportRepo) Create(ctx context.Context, r *report.Report) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.add(r)
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReportRepo) Update(ctx context.Context, id uuid.UUID, cmd *report.UpdateReportCommand) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	if cmd.Type != nil {
		r.Type = *cmd.Type
	}
	if cmd.Diagnosis != nil {
		r.Diagnosis = *cmd.Diagnosis
	}
	if cmd.Stage != nil {
		r.Stage = *cmd.Stage
	}
	if cmd.DoctorNotes != nil {
		r.DoctorNotes = *cmd.DoctorNotes
	}
	if cmd.Status != nil {
		r.Status = *cmd.Status
	}
	return r, nil
}

func (f *fakeReportRepo) Save(ctx context.Context, r *report.Report) error {
	if f.failSave != nil {
		return f.failSave
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[r.ID] = r
	return nil
}

func (f *fakeReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return report.ErrReportNotFound
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeReportRepo) List(ctx context.Context) ([]*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*report.Report, 0, len(f.reports))
	for _, id := range f.order {
		if r, ok := f.reports[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*report.Report, error) {
	all, _ := f.List(ctx)
	var out []*report.Report
	for _, r := range all {
		if r.DoctorID == doctorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*report.Report, error) {
	all, _ := f.List(ctx)
	var out []*report.Report
	for _, r := range all {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) LatestForPair(ctx context.Context, patientID, doctorID uuid.UUID) (*report.Report, error) {
	all, _ := f.List(ctx)
	var latest *report.Report
	for _, r := range all {
		if r.PatientID == patientID && r.DoctorID == doctorID {
			if latest == nil || r.Date.After(latest.Date) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, report.ErrReportNotFound
	}
	return latest, nil
}

func (f *fakeReportRepo) DistinctPatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	all, _ := f.List(ctx)
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, r := range all {
		if r.DoctorID != doctorID {
			continue
		}
		if _, ok := seen[r.PatientID]; ok {
			continue
		}
		seen[r.PatientID] = struct{}{}
		out = append(out, r.PatientID)
	}
	return out, nil
}

type fakeSubmissionRepo struct {
	mu   sync.Mutex
	subs []*submission.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, s *submission.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.subs = append(f.subs, s)
	return nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, submission.ErrSubmissionNotFound
}

func (f *fakeSubmissionRepo) List(ctx context.Context, q *submission.ListSubmissionsQuery) ([]*submission.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*submission.Submission
	for _, s := range f.subs {
		if q != nil && q.PatientID != nil && s.PatientID != *q.PatientID {
			continue
		}
		if q != nil && q.DoctorID != nil && s.DoctorID != *q.DoctorID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeRosterRepo struct {
	mu    sync.Mutex
	pairs map[uuid.UUID][]uuid.UUID
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{pairs: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeRosterRepo) AddPatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.pairs[doctorID] {
		if existing == patientID {
			return nil
		}
	}
	f.pairs[doctorID] = append(f.pairs[doctorID], patientID)
	return nil
}

func (f *fakeRosterRepo) PatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.pairs[doctorID]...), nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	entries []*domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, n)
	return nil
}

func (f *fakeNotificationRepo) all() []*domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Notification(nil), f.entries...)
}
