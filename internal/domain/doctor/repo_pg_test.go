//go:build integration

package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/internal/testutil"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

func seedDoctors(t *testing.T, repo Repository) []*Doctor {
	t.Helper()
	doctors := []*Doctor{
		{Name: "Dr. Sen", Specialization: "Cardiology", Phone: "9123456780", Email: "sen@example.com", Active: true},
		{Name: "Dr. Das", Specialization: "Pediatric Cardiology", Phone: "9123456781", Email: "das@example.com", Active: false},
		{Name: "Dr. Roy", Specialization: "Neurology", Phone: "9123456782", Email: "roy@example.com", Active: true},
		{Name: "Dr. Sengupta", Specialization: "Cardiology", Phone: "9123456783", Email: "sengupta@example.com", Active: true},
	}
	for _, d := range doctors {
		require.NoError(t, repo.Create(context.Background(), d), d.Name)
	}
	return doctors
}

func names(items []*Doctor) []string {
	out := make([]string, 0, len(items))
	for _, d := range items {
		out = append(out, d.Name)
	}
	return out
}

func TestDoctorRepoPG_CRUD(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewRepo(tdb.Pool)
	ctx := context.Background()

	d := &Doctor{Name: "Dr. Sen", Specialization: "Cardiology", Phone: "9123456780", Email: "sen@example.com", Active: true}
	require.NoError(t, repo.Create(ctx, d))
	require.NotZero(t, d.ID)

	d.Active = false
	d.Specialization = "Neurology"
	require.NoError(t, repo.Update(ctx, d))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "Neurology", got.Specialization)

	require.NoError(t, repo.Delete(ctx, d.ID))
	_, err = repo.GetByID(ctx, d.ID)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, d.ID), db.ErrNotFound))
	assert.True(t, errors.Is(repo.Update(ctx, d), db.ErrNotFound))
}

func TestDoctorRepoPG_Specializations(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewRepo(tdb.Pool)
	ctx := context.Background()

	empty, err := repo.Specializations(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedDoctors(t, repo)
	specs, err := repo.Specializations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiology", "Neurology", "Pediatric Cardiology"}, specs)
}

func TestDoctorRepoPG_Search(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewRepo(tdb.Pool)
	ctx := context.Background()
	seedDoctors(t, repo)

	active, inactive := true, false
	byName := pagination.Params{Page: 0, Size: 10, SortBy: "name", SortDir: pagination.Asc}

	tests := []struct {
		name     string
		criteria SearchCriteria
		page     pagination.Params
		want     []string
		total    int64
	}{
		{"name substring", SearchCriteria{Name: "sen"}, byName, []string{"Dr. Sen", "Dr. Sengupta"}, 2},
		{"specialization substring", SearchCriteria{Specialization: "CARDIO"}, byName, []string{"Dr. Das", "Dr. Sen", "Dr. Sengupta"}, 3},
		{"inactive only", SearchCriteria{Active: &inactive}, byName, []string{"Dr. Das"}, 1},
		{"all filters combined", SearchCriteria{Name: "dr", Specialization: "cardio", Active: &active}, byName, []string{"Dr. Sen", "Dr. Sengupta"}, 2},
		{"paged", SearchCriteria{Active: &active}, pagination.Params{Page: 1, Size: 2, SortBy: "name", SortDir: pagination.Asc}, []string{"Dr. Sengupta"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.Search(ctx, tt.criteria, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Equal(t, tt.want, names(items))
		})
	}
}

func TestDoctorRepoPG_CountsAndActive(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewRepo(tdb.Pool)
	ctx := context.Background()
	seedDoctors(t, repo)

	listed, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dr. Sen", "Dr. Roy", "Dr. Sengupta"}, names(listed))

	n, err := repo.CountByActive(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountBySpecialization(ctx, "cardiology")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "exact match, case-insensitive")
}

func TestDoctorRepoPG_UniqueEmailAndPhone(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewRepo(tdb.Pool)
	ctx := context.Background()
	seedDoctors(t, repo)

	err := repo.Create(ctx, &Doctor{Name: "X", Specialization: "ENT", Phone: "9000000001", Email: "sen@example.com", Active: true})
	assert.True(t, db.IsUniqueViolation(err), "duplicate email: %v", err)
	err = repo.Create(ctx, &Doctor{Name: "X", Specialization: "ENT", Phone: "9123456780", Email: "x@example.com", Active: true})
	assert.True(t, db.IsUniqueViolation(err), "duplicate phone: %v", err)

	svc := NewService(repo, db.NewTxManager(tdb.Pool))
	_, err = svc.Create(ctx, Input{Name: "X", Specialization: "ENT", Phone: "9000000002", Email: "sen@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "service duplicate email: %v", err)
}
