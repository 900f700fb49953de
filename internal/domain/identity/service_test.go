package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/auth"
	"github.com/INFO333/mhoms-api/internal/platform/db"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type mockUserRepo struct {
	byName map[string]*User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byName: make(map[string]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.byName[u.Username] = &cp
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := m.byName[username]
	return ok, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range m.byName {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.byName)), nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range m.byName {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	tokens := auth.NewTokenManager(testSecret, time.Hour, 24*time.Hour)
	return NewService(repo, &auth.BcryptHasher{Cost: 4}, tokens, db.NoopTransactor{}), repo
}

func registerReq(username, email, role string) RegisterRequest {
	return RegisterRequest{Username: username, Email: email, Password: "password123", FullName: "Test User", Role: role}
}

func TestService_Register(t *testing.T) {
	svc, repo := newTestService()
	resp, err := svc.Register(context.Background(), registerReq("john_admin", "john@mhoms.com", auth.RoleAdmin))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "john_admin", resp.Username)
	assert.Equal(t, auth.RoleAdmin, resp.Role)

	stored := repo.byName["john_admin"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, (&auth.BcryptHasher{}).Compare(stored.PasswordHash, "password123"))
}

func TestService_Register_Duplicates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerReq("john", "john@mhoms.com", auth.RolePatient))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerReq("john", "other@mhoms.com", auth.RolePatient))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Username already exists", err.Error())

	_, err = svc.Register(ctx, registerReq("jane", "john@mhoms.com", auth.RolePatient))
	require.Error(t, err)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerReq("dr_sen", "sen@mhoms.com", auth.RoleDoctor))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Username: "dr_sen", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDoctor, resp.Role)

	_, err = svc.Login(ctx, LoginRequest{Username: "dr_sen", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, msgBadCredentials, err.Error())

	_, err = svc.Login(ctx, LoginRequest{Username: "nobody", Password: "password123"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, msgUserNotFound, err.Error())
}

func TestService_Refresh(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq("pat", "pat@mhoms.com", auth.RolePatient))
	require.NoError(t, err)

	resp, err := svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.RefreshToken, resp.RefreshToken, "refresh token is not rotated")
	assert.NotEqual(t, reg.AccessToken, resp.AccessToken)
	assert.Equal(t, "pat", resp.Username)
}

func TestService_Refresh_Invalid(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "not-a-token")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	expired, err := auth.NewTokenManager(testSecret, -time.Minute, -time.Minute).GenerateRefreshToken("pat")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, expired)
	require.Error(t, err)
	assert.Equal(t, msgBadRefreshToken, err.Error())

	// Well-formed token for an account that does not exist.
	orphan, err := auth.NewTokenManager(testSecret, time.Hour, time.Hour).GenerateRefreshToken("ghost")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, orphan)
	require.Error(t, err)
	assert.Equal(t, msgUserNotFound, err.Error())
}

func TestService_LoadPrincipal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq("admin", "admin@mhoms.com", auth.RoleAdmin))
	require.NoError(t, err)

	p, err := svc.LoadPrincipal(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, &auth.Principal{ID: reg.ID, Username: "admin", Role: auth.RoleAdmin}, p)

	_, err = svc.LoadPrincipal(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestService_CountUsers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, r := range []RegisterRequest{
		registerReq("a1", "a1@x.com", auth.RoleAdmin),
		registerReq("d1", "d1@x.com", auth.RoleDoctor),
		registerReq("d2", "d2@x.com", auth.RoleDoctor),
		registerReq("p1", "p1@x.com", auth.RolePatient),
	} {
		_, err := svc.Register(ctx, r)
		require.NoError(t, err)
	}

	uc, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, UserCounts{Total: 4, Admins: 1, Doctors: 2, Patients: 1}, *uc)
}
