package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenAmorMed/ExamSupervisor/internal/models"
	appErrors "github.com/BenAmorMed/ExamSupervisor/pkg/errors"
)

type fakeSessionStore struct {
	sessions map[string]*models.Session
	rosters  map[string][]models.RosterEntry
	nextID   int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*models.Session),
		rosters:  make(map[string][]models.RosterEntry),
	}
}

func (f *fakeSessionStore) FindByID(_ context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessionStore) Create(_ context.Context, session *models.Session, _ []string) error {
	f.nextID++
	session.ID = string(rune('a' + f.nextID - 1))
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionStore) Update(_ context.Context, session *models.Session, _ []string) error {
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) Roster(_ context.Context, sessionID string) ([]models.RosterEntry, error) {
	return f.rosters[sessionID], nil
}

func validSessionRequest() CreateSessionRequest {
	return CreateSessionRequest{
		Date:      "2026-06-15",
		StartTime: "08:00",
		EndTime:   "10:00",
		Capacity:  2,
		Rooms:     []string{"A101"},
	}
}

func TestSessionCreateParsesTimes(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil, nil)

	session, err := svc.Create(context.Background(), validSessionRequest())
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), session.ExamDate)
	assert.Equal(t, time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC), session.StartsAt)
	assert.Equal(t, time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC), session.EndsAt)
	assert.Equal(t, 120, session.DurationMinutes())
}

func TestSessionCreateRejectsBadDate(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil, nil)

	req := validSessionRequest()
	req.Date = "15/06/2026"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionCreateRejectsEndBeforeStart(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil, nil)

	req := validSessionRequest()
	req.StartTime = "10:00"
	req.EndTime = "08:00"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.EndTime = "10:00"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err, "zero-length session")
}

func TestSessionCreateRejectsZeroCapacity(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil, nil)

	req := validSessionRequest()
	req.Capacity = 0
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionUpdateRejectsCapacityBelowAssigned(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil, nil)

	session, err := svc.Create(context.Background(), validSessionRequest())
	require.NoError(t, err)
	store.sessions[session.ID].AssignedCount = 2

	req := UpdateSessionRequest(validSessionRequest())
	req.Capacity = 1
	_, err = svc.Update(context.Background(), session.ID, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	req.Capacity = 2
	updated, err := svc.Update(context.Background(), session.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Capacity)
}

func TestSessionUpdateNotFound(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateSessionRequest(validSessionRequest()))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionDeleteNotFound(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionMutationsInvalidateListCache(t *testing.T) {
	store := newFakeSessionStore()
	cache := &fakeCache{store: map[string][]byte{sessionListCachePrefix + "p1": []byte("[]")}}
	svc := NewSessionService(store, cache, nil, nil)

	session, err := svc.Create(context.Background(), validSessionRequest())
	require.NoError(t, err)
	assert.Empty(t, cache.store)

	cache.store[sessionListCachePrefix+"p1"] = []byte("[]")
	require.NoError(t, svc.Delete(context.Background(), session.ID))
	assert.Empty(t, cache.store)
}

func TestSessionRoster(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil, nil)

	session, err := svc.Create(context.Background(), validSessionRequest())
	require.NoError(t, err)
	store.rosters[session.ID] = []models.RosterEntry{{TeacherID: "t1", LastName: "Ben Salah"}}

	roster, err := svc.Roster(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "t1", roster[0].TeacherID)

	_, err = svc.Roster(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
