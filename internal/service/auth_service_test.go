package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

type fakeAccounts struct {
	byEmail    map[string]*models.Teacher
	byLastName map[string]*models.Teacher
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.Teacher, error) {
	if t, ok := f.byEmail[email]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccounts) FindByLastName(_ context.Context, lastName string) (*models.Teacher, error) {
	if t, ok := f.byLastName[lastName]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "exam-supervisor"}
}

func testAccount(t *testing.T, password string) *models.Teacher {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Teacher{
		ID:           "t1",
		FirstName:    "Sami",
		LastName:     "Ben Salah",
		Email:        "sami@example.edu",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Active:       true,
	}
}

func TestLoginByEmail(t *testing.T) {
	account := testAccount(t, "changeme123")
	repo := &fakeAccounts{byEmail: map[string]*models.Teacher{account.Email: account}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Identifier: account.Email,
		Password:   "changeme123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, account.Email, resp.Teacher.Email)
	assert.Equal(t, models.RoleTeacher, resp.Teacher.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.TeacherID)
	assert.Equal(t, account.ID, claims.Subject)
	assert.Equal(t, "exam-supervisor", claims.Issuer)
}

func TestLoginFallsBackToLastName(t *testing.T) {
	account := testAccount(t, "changeme123")
	repo := &fakeAccounts{byLastName: map[string]*models.Teacher{account.LastName: account}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Identifier: account.LastName,
		Password:   "changeme123",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, resp.Teacher.ID)
}

func TestLoginUnknownIdentifier(t *testing.T) {
	svc := NewAuthService(&fakeAccounts{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Identifier: "nobody@example.edu",
		Password:   "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	account := testAccount(t, "changeme123")
	repo := &fakeAccounts{byEmail: map[string]*models.Teacher{account.Email: account}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Identifier: account.Email,
		Password:   "not-the-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	account := testAccount(t, "changeme123")
	account.Active = false
	repo := &fakeAccounts{byEmail: map[string]*models.Teacher{account.Email: account}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Identifier: account.Email,
		Password:   "changeme123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsEmptyPayload(t *testing.T) {
	svc := NewAuthService(&fakeAccounts{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	account := testAccount(t, "changeme123")
	repo := &fakeAccounts{byEmail: map[string]*models.Teacher{account.Email: account}}

	issuer := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour, Issuer: "exam-supervisor"})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{
		Identifier: account.Email,
		Password:   "changeme123",
	})
	require.NoError(t, err)

	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&fakeAccounts{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
