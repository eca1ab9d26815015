package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unipath/unipath-api/internal/models"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
)

type mockUniversityRepo struct {
	universities map[string]models.University
	deactivated  []string
	lastFilter   models.UniversityFilter
	listTotal    int
	err          error
}

func (m *mockUniversityRepo) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	list := make([]models.University, 0, len(m.universities))
	for _, u := range m.universities {
		list = append(list, u)
	}
	return list, m.listTotal, nil
}

func (m *mockUniversityRepo) FindByID(ctx context.Context, id string) (*models.University, error) {
	if u, ok := m.universities[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUniversityRepo) Create(ctx context.Context, university *models.University) error {
	if m.universities == nil {
		m.universities = make(map[string]models.University)
	}
	if university.ID == "" {
		university.ID = "generated"
	}
	m.universities[university.ID] = *university
	return nil
}

func (m *mockUniversityRepo) Update(ctx context.Context, university *models.University) error {
	m.universities[university.ID] = *university
	return nil
}

func (m *mockUniversityRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if u, ok := m.universities[id]; ok {
		u.Active = false
		m.universities[id] = u
	}
	return nil
}

func TestUniversityServiceCreate(t *testing.T) {
	repo := &mockUniversityRepo{}
	svc := NewUniversityService(repo, validator.New(), zap.NewNop())

	rate := "34%"
	university, err := svc.Create(context.Background(), CreateUniversityRequest{
		Name:           "MIT",
		Country:        "USA",
		Specialization: "Computer Science",
		TuitionFees: &models.TuitionFees{
			International: &models.MoneyRange{Min: floatPointer(30000), Max: floatPointer(50000)},
		},
		AcceptanceRate: &rate,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, university.ID)
	assert.True(t, university.Active)
	require.NotNil(t, university.Tuition())
	assert.Equal(t, 50000.0, *university.Tuition().International.Max)
}

func TestUniversityServiceCreateValidation(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUniversityRequest{Name: "X"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUniversityServiceUpdate(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]models.University{
		"u1": {ID: "u1", Name: "Old Name", Country: "USA", Specialization: "History", Active: true},
	}}
	svc := NewUniversityService(repo, validator.New(), zap.NewNop())

	name := "New Name"
	active := false
	updated, err := svc.Update(context.Background(), "u1", UpdateUniversityRequest{Name: &name, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, "USA", updated.Country)
}

func TestUniversityServiceUpdateNotFound(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", UpdateUniversityRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUniversityServiceDeactivate(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]models.University{
		"u1": {ID: "u1", Name: "MIT", Country: "USA", Specialization: "CS", Active: true},
	}}
	svc := NewUniversityService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))
	assert.Contains(t, repo.deactivated, "u1")

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
}

func TestUniversityServiceListDefaultsPagination(t *testing.T) {
	repo := &mockUniversityRepo{listTotal: 42}
	svc := NewUniversityService(repo, validator.New(), zap.NewNop())

	universities, pagination, err := svc.List(context.Background(), models.UniversityFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.NotNil(t, universities)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
}
