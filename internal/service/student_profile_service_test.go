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

type mockStudentProfileRepo struct {
	byUser  map[string]models.StudentProfile
	created int
	updated int
}

func (m *mockStudentProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.byUser[userID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentProfileRepo) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	for _, p := range m.byUser {
		if p.ID == id {
			profile := p
			return &profile, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentProfileRepo) Create(ctx context.Context, profile *models.StudentProfile) error {
	if m.byUser == nil {
		m.byUser = make(map[string]models.StudentProfile)
	}
	if profile.ID == "" {
		profile.ID = "generated"
	}
	m.byUser[profile.UserID] = *profile
	m.created++
	return nil
}

func (m *mockStudentProfileRepo) Update(ctx context.Context, profile *models.StudentProfile) error {
	m.byUser[profile.UserID] = *profile
	m.updated++
	return nil
}

func TestStudentProfileUpsertCreatesThenUpdates(t *testing.T) {
	repo := &mockStudentProfileRepo{}
	svc := NewStudentProfileService(repo, validator.New(), zap.NewNop())

	profile, err := svc.Upsert(context.Background(), "user-1", UpsertStudentProfileRequest{
		AcademicLevel: "undergraduate",
		GPA:           floatPointer(3.6),
		DesiredMajor:  strPointer("Computer Science"),
		BudgetRange:   &models.BudgetRange{Min: floatPointer(10000), Max: floatPointer(40000)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.created)
	assert.Equal(t, 0, repo.updated)
	require.NotNil(t, profile.Budget())
	assert.Equal(t, 40000.0, *profile.Budget().Max)

	updated, err := svc.Upsert(context.Background(), "user-1", UpsertStudentProfileRequest{
		AcademicLevel: "graduate",
		GPA:           floatPointer(3.9),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.created)
	assert.Equal(t, 1, repo.updated)
	assert.Equal(t, "graduate", updated.AcademicLevel)
	assert.Nil(t, updated.Budget())
	assert.Len(t, repo.byUser, 1)
}

func TestStudentProfileUpsertValidation(t *testing.T) {
	svc := NewStudentProfileService(&mockStudentProfileRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Upsert(context.Background(), "user-1", UpsertStudentProfileRequest{GPA: floatPointer(9)})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentProfileGetByUserIDNotFound(t *testing.T) {
	svc := NewStudentProfileService(&mockStudentProfileRepo{}, validator.New(), zap.NewNop())

	_, err := svc.GetByUserID(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentProfileGetByUserID(t *testing.T) {
	repo := &mockStudentProfileRepo{byUser: map[string]models.StudentProfile{
		"user-1": {ID: "p1", UserID: "user-1", AcademicLevel: "undergraduate"},
	}}
	svc := NewStudentProfileService(repo, validator.New(), zap.NewNop())

	profile, err := svc.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", profile.ID)
}
