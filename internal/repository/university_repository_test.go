package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unipath/unipath-api/internal/models"
)

func TestUniversityRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "country", "specialization", "tuition_fees", "acceptance_rate", "admission_requirements", "world_ranking", "active", "created_at", "updated_at"}).
		AddRow("uni-1", "State University", "United States", "Computer Science, Engineering", []byte(`{"international":{"min":30000,"max":50000}}`), "60%", []byte(`{"minimumGPA":3.0}`), 120, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, country, specialization, tuition_fees, acceptance_rate, admission_requirements, world_ranking, active, created_at, updated_at FROM universities WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM universities WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	universities, total, err := repo.List(context.Background(), models.UniversityFilter{})
	require.NoError(t, err)
	assert.Len(t, universities, 1)
	assert.Equal(t, 1, total)

	fees := universities[0].Tuition()
	require.NotNil(t, fees)
	require.NotNil(t, fees.International)
	assert.Equal(t, 30000.0, *fees.International.Min)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "country", "specialization", "tuition_fees", "acceptance_rate", "admission_requirements", "world_ranking", "active", "created_at", "updated_at"}).
		AddRow("uni-1", "State University", "United States", "Computer Science", nil, nil, nil, nil, true, time.Now(), time.Now()).
		AddRow("uni-2", "Tech Institute", "Germany", "Engineering", nil, nil, nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM universities WHERE active = true").
		WillReturnRows(rows)

	universities, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, universities, 2)
	assert.Nil(t, universities[0].Tuition())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectExec("INSERT INTO universities").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	university := &models.University{Name: "State University", Country: "United States", Specialization: "Computer Science", Active: true}
	err := repo.Create(context.Background(), university)
	require.NoError(t, err)
	assert.NotEmpty(t, university.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectExec("UPDATE universities SET active = false").
		WithArgs("uni-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Deactivate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
