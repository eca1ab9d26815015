package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unipath/unipath-api/internal/models"
)

// MatchRepository manages persistence for generated match results. The
// matches table carries a unique constraint on (user_id, university_id) as a
// backstop for concurrent regeneration.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository constructs a MatchRepository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// FindByUser returns all matches for a user joined with catalog display
// fields, best match first. match_score is a fixed-width two-decimal string,
// so the text sort is also the numeric sort.
func (r *MatchRepository) FindByUser(ctx context.Context, userID string) ([]models.MatchDetail, error) {
	const query = `SELECT m.id, m.user_id, m.university_id, m.match_score, m.reasoning, m.model_version, m.created_at, m.updated_at,
        u.name AS university_name, u.country AS university_country
        FROM matches m
        JOIN universities u ON u.id = m.university_id
        WHERE m.user_id = $1
        ORDER BY m.match_score DESC, m.created_at ASC`
	var matches []models.MatchDetail
	if err := r.db.SelectContext(ctx, &matches, query, userID); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// FindByUserAndUniversity fetches the single match for a (user, university) pair.
func (r *MatchRepository) FindByUserAndUniversity(ctx context.Context, userID, universityID string) (*models.MatchResult, error) {
	const query = `SELECT id, user_id, university_id, match_score, reasoning, model_version, created_at, updated_at
        FROM matches WHERE user_id = $1 AND university_id = $2`
	var match models.MatchResult
	if err := r.db.GetContext(ctx, &match, query, userID, universityID); err != nil {
		return nil, err
	}
	return &match, nil
}

// Create inserts a new match row.
func (r *MatchRepository) Create(ctx context.Context, match *models.MatchResult) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if match.CreatedAt.IsZero() {
		match.CreatedAt = now
	}
	match.UpdatedAt = now
	const query = `INSERT INTO matches (id, user_id, university_id, match_score, reasoning, model_version, created_at, updated_at)
        VALUES (:id, :user_id, :university_id, :match_score, :reasoning, :model_version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, match); err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// Update rescores an existing match in place.
func (r *MatchRepository) Update(ctx context.Context, match *models.MatchResult) error {
	match.UpdatedAt = time.Now().UTC()
	const query = `UPDATE matches SET match_score = :match_score, reasoning = :reasoning, model_version = :model_version, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, match); err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

// Delete removes one match for a user.
func (r *MatchRepository) Delete(ctx context.Context, userID, universityID string) (bool, error) {
	const query = `DELETE FROM matches WHERE user_id = $1 AND university_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, universityID)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete match result: %w", err)
	}
	return affected > 0, nil
}

// DeleteByUser removes every match for a user, e.g. on account deletion.
func (r *MatchRepository) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	const query = `DELETE FROM matches WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("delete matches by user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete matches result: %w", err)
	}
	return affected > 0, nil
}
