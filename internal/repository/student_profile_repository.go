package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unipath/unipath-api/internal/models"
)

// StudentProfileRepository manages persistence for student profiles.
type StudentProfileRepository struct {
	db *sqlx.DB
}

// NewStudentProfileRepository constructs a StudentProfileRepository.
func NewStudentProfileRepository(db *sqlx.DB) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

// FindByUserID fetches the profile owned by the given user account.
func (r *StudentProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, academic_level, gpa, desired_major, destination_country, budget_range, test_scores, created_at, updated_at
        FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID fetches a profile by its own ID.
func (r *StudentProfileRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, academic_level, gpa, desired_major, destination_country, budget_range, test_scores, created_at, updated_at
        FROM student_profiles WHERE id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a profile for a user.
func (r *StudentProfileRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO student_profiles (id, user_id, academic_level, gpa, desired_major, destination_country, budget_range, test_scores, created_at, updated_at)
        VALUES (:id, :user_id, :academic_level, :gpa, :desired_major, :destination_country, :budget_range, :test_scores, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update modifies an existing profile.
func (r *StudentProfileRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET academic_level = :academic_level, gpa = :gpa, desired_major = :desired_major,
        destination_country = :destination_country, budget_range = :budget_range, test_scores = :test_scores, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// DeleteByUserID removes the profile on account deletion.
func (r *StudentProfileRepository) DeleteByUserID(ctx context.Context, userID string) error {
	const query = `DELETE FROM student_profiles WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete student profile: %w", err)
	}
	return nil
}
