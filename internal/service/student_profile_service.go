package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/unipath/unipath-api/internal/models"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
)

type studentProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
	Update(ctx context.Context, profile *models.StudentProfile) error
}

// UpsertStudentProfileRequest holds the payload students and counselors edit.
type UpsertStudentProfileRequest struct {
	AcademicLevel      string              `json:"academic_level" validate:"required"`
	GPA                *float64            `json:"gpa" validate:"omitempty,gte=0,lte=5"`
	DesiredMajor       *string             `json:"desired_major"`
	DestinationCountry *string             `json:"destination_country"`
	BudgetRange        *models.BudgetRange `json:"budget_range"`
	TestScores         *models.TestScores  `json:"test_scores"`
}

// StudentProfileService handles student profile use-cases.
type StudentProfileService struct {
	repo      studentProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentProfileService constructs the profile service.
func NewStudentProfileService(repo studentProfileRepository, validate *validator.Validate, logger *zap.Logger) *StudentProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentProfileService{repo: repo, validator: validate, logger: logger}
}

// GetByUserID returns the profile owned by a user.
func (s *StudentProfileService) GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// Upsert creates the user's profile on first save and updates it afterwards.
func (s *StudentProfileService) Upsert(ctx context.Context, userID string, req UpsertStudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	var budgetJSON, scoresJSON types.JSONText
	if req.BudgetRange != nil {
		raw, err := json.Marshal(req.BudgetRange)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid budget range")
		}
		budgetJSON = types.JSONText(raw)
	}
	if req.TestScores != nil {
		raw, err := json.Marshal(req.TestScores)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test scores")
		}
		scoresJSON = types.JSONText(raw)
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if existing == nil {
		profile := &models.StudentProfile{
			UserID:             userID,
			AcademicLevel:      req.AcademicLevel,
			GPA:                req.GPA,
			DesiredMajor:       req.DesiredMajor,
			DestinationCountry: req.DestinationCountry,
			BudgetRange:        budgetJSON,
			TestScores:         scoresJSON,
		}
		if err := s.repo.Create(ctx, profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
		}
		return profile, nil
	}

	existing.AcademicLevel = req.AcademicLevel
	existing.GPA = req.GPA
	existing.DesiredMajor = req.DesiredMajor
	existing.DestinationCountry = req.DestinationCountry
	existing.BudgetRange = budgetJSON
	existing.TestScores = scoresJSON
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	return existing, nil
}
