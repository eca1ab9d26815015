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

type universityRepository interface {
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindByID(ctx context.Context, id string) (*models.University, error)
	Create(ctx context.Context, university *models.University) error
	Update(ctx context.Context, university *models.University) error
	Deactivate(ctx context.Context, id string) error
}

// CreateUniversityRequest is the admin payload for a new catalog entry.
type CreateUniversityRequest struct {
	Name                  string                        `json:"name" validate:"required,min=2,max=200"`
	Country               string                        `json:"country" validate:"required,min=2,max=100"`
	Specialization        string                        `json:"specialization" validate:"required,min=2,max=200"`
	TuitionFees           *models.TuitionFees           `json:"tuition_fees"`
	AcceptanceRate        *string                       `json:"acceptance_rate"`
	AdmissionRequirements *models.AdmissionRequirements `json:"admission_requirements"`
	WorldRanking          *int                          `json:"world_ranking" validate:"omitempty,gte=1"`
}

// UpdateUniversityRequest carries optional field updates.
type UpdateUniversityRequest struct {
	Name                  *string                       `json:"name" validate:"omitempty,min=2,max=200"`
	Country               *string                       `json:"country" validate:"omitempty,min=2,max=100"`
	Specialization        *string                       `json:"specialization" validate:"omitempty,min=2,max=200"`
	TuitionFees           *models.TuitionFees           `json:"tuition_fees"`
	AcceptanceRate        *string                       `json:"acceptance_rate"`
	AdmissionRequirements *models.AdmissionRequirements `json:"admission_requirements"`
	WorldRanking          *int                          `json:"world_ranking" validate:"omitempty,gte=1"`
	Active                *bool                         `json:"active"`
}

// UniversityService manages the catalog admins curate and students browse.
type UniversityService struct {
	repo      universityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUniversityService constructs the catalog service.
func NewUniversityService(repo universityRepository, validate *validator.Validate, logger *zap.Logger) *UniversityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniversityService{repo: repo, validator: validate, logger: logger}
}

// List returns a filtered, paginated slice of the catalog.
func (s *UniversityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	universities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
	}
	if universities == nil {
		universities = []models.University{}
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return universities, pagination, nil
}

// GetByID returns one catalog entry.
func (s *UniversityService) GetByID(ctx context.Context, id string) (*models.University, error) {
	university, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	return university, nil
}

// Create registers a new catalog entry. New entries are active immediately.
func (s *UniversityService) Create(ctx context.Context, req CreateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	fees, err := marshalJSONColumn(req.TuitionFees)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tuition fees")
	}
	reqs, err := marshalJSONColumn(req.AdmissionRequirements)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission requirements")
	}

	university := &models.University{
		Name:                  req.Name,
		Country:               req.Country,
		Specialization:        req.Specialization,
		TuitionFees:           fees,
		AcceptanceRate:        req.AcceptanceRate,
		AdmissionRequirements: reqs,
		WorldRanking:          req.WorldRanking,
		Active:                true,
	}
	if err := s.repo.Create(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create university")
	}
	s.logger.Info("university created", zap.String("university_id", university.ID), zap.String("name", university.Name))
	return university, nil
}

// Update applies the provided fields to an existing entry.
func (s *UniversityService) Update(ctx context.Context, id string, req UpdateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	university, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		university.Name = *req.Name
	}
	if req.Country != nil {
		university.Country = *req.Country
	}
	if req.Specialization != nil {
		university.Specialization = *req.Specialization
	}
	if req.TuitionFees != nil {
		fees, err := marshalJSONColumn(req.TuitionFees)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tuition fees")
		}
		university.TuitionFees = fees
	}
	if req.AcceptanceRate != nil {
		university.AcceptanceRate = req.AcceptanceRate
	}
	if req.AdmissionRequirements != nil {
		reqs, err := marshalJSONColumn(req.AdmissionRequirements)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission requirements")
		}
		university.AdmissionRequirements = reqs
	}
	if req.WorldRanking != nil {
		university.WorldRanking = req.WorldRanking
	}
	if req.Active != nil {
		university.Active = *req.Active
	}

	if err := s.repo.Update(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update university")
	}
	return university, nil
}

// Deactivate hides an entry from match generation while keeping history intact.
func (s *UniversityService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate university")
	}
	s.logger.Info("university deactivated", zap.String("university_id", id))
	return nil
}

func marshalJSONColumn(v interface{}) (types.JSONText, error) {
	switch value := v.(type) {
	case *models.TuitionFees:
		if value == nil {
			return nil, nil
		}
	case *models.AdmissionRequirements:
		if value == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
