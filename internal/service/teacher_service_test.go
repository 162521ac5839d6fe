package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

type fakeTeacherRepo struct {
	teachers map[string]*models.Teacher
	subjects map[string][]string
	nextID   int
}

func newFakeTeacherRepo() *fakeTeacherRepo {
	return &fakeTeacherRepo{
		teachers: make(map[string]*models.Teacher),
		subjects: make(map[string][]string),
	}
}

func (f *fakeTeacherRepo) List(_ context.Context, _ models.TeacherFilter) ([]models.Teacher, int, error) {
	out := make([]models.Teacher, 0, len(f.teachers))
	for _, t := range f.teachers {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTeacherRepo) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	t, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTeacherRepo) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	for id, t := range f.teachers {
		if t.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTeacherRepo) Create(_ context.Context, teacher *models.Teacher) error {
	f.nextID++
	teacher.ID = strings.Repeat("t", f.nextID)
	clone := *teacher
	f.teachers[teacher.ID] = &clone
	return nil
}

func (f *fakeTeacherRepo) Update(_ context.Context, teacher *models.Teacher) error {
	clone := *teacher
	f.teachers[teacher.ID] = &clone
	return nil
}

func (f *fakeTeacherRepo) Deactivate(_ context.Context, id string) error {
	if t, ok := f.teachers[id]; ok {
		t.Active = false
	}
	return nil
}

func (f *fakeTeacherRepo) ReplaceSubjects(_ context.Context, teacherID string, subjectIDs []string) error {
	f.subjects[teacherID] = subjectIDs
	return nil
}

func validTeacherRequest() CreateTeacherRequest {
	return CreateTeacherRequest{
		FirstName: "Sami",
		LastName:  "Ben Salah",
		Email:     "Sami@Example.edu",
		Password:  "changeme123",
	}
}

func newTeacherService(repo *fakeTeacherRepo, w *world) *TeacherService {
	return NewTeacherService(repo, &fakeGrades{w}, &fakeSubjects{w}, nil, nil)
}

func TestTeacherCreateHashesAndNormalizes(t *testing.T) {
	repo := newFakeTeacherRepo()
	svc := newTeacherService(repo, newWorld())

	teacher, err := svc.Create(context.Background(), validTeacherRequest())
	require.NoError(t, err)
	require.NotEmpty(t, teacher.ID)

	assert.Equal(t, "sami@example.edu", teacher.Email)
	assert.Equal(t, models.RoleTeacher, teacher.Role)
	assert.True(t, teacher.Active)
	assert.NotEqual(t, "changeme123", teacher.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte("changeme123")))
}

func TestTeacherCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeTeacherRepo()
	svc := newTeacherService(repo, newWorld())

	_, err := svc.Create(context.Background(), validTeacherRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validTeacherRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherCreateRejectsShortPassword(t *testing.T) {
	svc := newTeacherService(newFakeTeacherRepo(), newWorld())

	req := validTeacherRequest()
	req.Password = "short"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherCreateRejectsUnknownGrade(t *testing.T) {
	svc := newTeacherService(newFakeTeacherRepo(), newWorld())

	req := validTeacherRequest()
	ghost := "3e0f7a9c-1c35-4b2e-9a54-8a2f4f6f2a11"
	req.GradeID = &ghost
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	repo := newFakeTeacherRepo()
	svc := newTeacherService(repo, newWorld())

	created, err := svc.Create(context.Background(), validTeacherRequest())
	require.NoError(t, err)
	originalHash := repo.teachers[created.ID].PasswordHash

	updated, err := svc.Update(context.Background(), created.ID, UpdateTeacherRequest{
		FirstName: "Sami",
		LastName:  "Ben Salah",
		Email:     "sami@example.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, originalHash, updated.PasswordHash)
}

func TestTeacherDeactivate(t *testing.T) {
	repo := newFakeTeacherRepo()
	svc := newTeacherService(repo, newWorld())

	created, err := svc.Create(context.Background(), validTeacherRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID))
	assert.False(t, repo.teachers[created.ID].Active)

	err = svc.Deactivate(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
