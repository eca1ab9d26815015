package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unipath/unipath-api/internal/models"
)

func TestStudentProfileRepositoryFindByUserID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "academic_level", "gpa", "desired_major", "destination_country", "budget_range", "test_scores", "created_at", "updated_at"}).
		AddRow("profile-1", "user-1", "undergraduate", 3.8, "Computer Science", "United States", []byte(`{"min":20000,"max":60000}`), []byte(`{"ielts":7.0}`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, user_id, academic_level, gpa").
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := repo.FindByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "profile-1", profile.ID)
	require.NotNil(t, profile.GPA)
	assert.Equal(t, 3.8, *profile.GPA)

	budget := profile.Budget()
	require.NotNil(t, budget)
	assert.Equal(t, 60000.0, *budget.Max)

	scores := profile.Scores()
	require.NotNil(t, scores)
	assert.Equal(t, 7.0, *scores.IELTS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileRepositoryFindByUserIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectQuery("SELECT id, user_id, academic_level, gpa").
		WithArgs("user-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserID(context.Background(), "user-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectExec("INSERT INTO student_profiles").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile := &models.StudentProfile{
		UserID:        "user-1",
		AcademicLevel: "undergraduate",
		BudgetRange:   types.JSONText(`{"min":20000,"max":60000}`),
	}
	err := repo.Create(context.Background(), profile)
	require.NoError(t, err)
	assert.NotEmpty(t, profile.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectExec("UPDATE student_profiles SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.StudentProfile{ID: "profile-1", AcademicLevel: "graduate"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
