package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unipath/unipath-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMatchRepositoryFindByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "university_id", "match_score", "reasoning", "model_version", "created_at", "updated_at", "university_name", "university_country"}).
		AddRow("m1", "user-1", "uni-1", "0.87", []byte(`{"factors":[],"weights":{},"details":""}`), "1.0.0", time.Now(), time.Now(), "State University", "United States").
		AddRow("m2", "user-1", "uni-2", "0.52", []byte(`{"factors":[],"weights":{},"details":""}`), "1.0.0", time.Now(), time.Now(), "Tech Institute", "Germany")
	mock.ExpectQuery("SELECT m.id, m.user_id, m.university_id, m.match_score").
		WithArgs("user-1").
		WillReturnRows(rows)

	matches, err := repo.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, "State University", matches[0].UniversityName)
	assert.GreaterOrEqual(t, matches[0].Score(), matches[1].Score())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryFindByUserAndUniversity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "university_id", "match_score", "reasoning", "model_version", "created_at", "updated_at"}).
		AddRow("m1", "user-1", "uni-1", "0.87", []byte(`{"factors":["Perfect location match"],"weights":{},"details":""}`), "1.0.0", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, user_id, university_id, match_score, reasoning, model_version").
		WithArgs("user-1", "uni-1").
		WillReturnRows(rows)

	match, err := repo.FindByUserAndUniversity(context.Background(), "user-1", "uni-1")
	require.NoError(t, err)
	assert.Equal(t, "0.87", match.MatchScore)
	reasoning := match.ParsedReasoning()
	require.NotNil(t, reasoning)
	assert.Contains(t, reasoning.Factors, "Perfect location match")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("INSERT INTO matches").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	match := &models.MatchResult{
		UserID:       "user-1",
		UniversityID: "uni-1",
		MatchScore:   "0.73",
		Reasoning:    types.JSONText(`{"factors":[],"weights":{},"details":""}`),
		ModelVersion: "1.0.0",
	}
	err := repo.Create(context.Background(), match)
	require.NoError(t, err)
	assert.NotEmpty(t, match.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("UPDATE matches SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.MatchResult{
		ID:           "m1",
		MatchScore:   "0.91",
		Reasoning:    types.JSONText(`{"factors":[],"weights":{},"details":""}`),
		ModelVersion: "1.0.0",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryDeleteByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("DELETE FROM matches WHERE user_id").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryDeleteNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("DELETE FROM matches WHERE user_id").
		WithArgs("user-1", "uni-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "user-1", "uni-9")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
