package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type criterionRepo interface {
	List(ctx context.Context) ([]models.AcademicCriterion, error)
	Create(ctx context.Context, criterion *models.AcademicCriterion) error
	Update(ctx context.Context, criterion *models.AcademicCriterion) error
	Delete(ctx context.Context, id string) error
}

// UpsertCriterionRequest carries the payload for creating or updating a
// criteria band.
type UpsertCriterionRequest struct {
	Level       string  `json:"level" validate:"required"`
	MinGPA      float64 `json:"min_gpa" validate:"gte=0,lte=10"`
	MaxGPA      float64 `json:"max_gpa" validate:"gte=0,lte=10,gtefield=MinGPA"`
	Description *string `json:"description"`
}

// CriterionService implements academic criteria management.
type CriterionService struct {
	criteria  criterionRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCriterionService constructs a CriterionService.
func NewCriterionService(criteria criterionRepo, validate *validator.Validate, logger *zap.Logger) *CriterionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CriterionService{criteria: criteria, validator: validate, logger: logger}
}

// List returns all criteria bands ordered from the highest band down.
func (s *CriterionService) List(ctx context.Context) ([]models.AcademicCriterion, error) {
	criteria, err := s.criteria.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list criteria")
	}
	return criteria, nil
}

// Create adds a criteria band.
func (s *CriterionService) Create(ctx context.Context, req UpsertCriterionRequest) (*models.AcademicCriterion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criterion payload")
	}
	criterion := &models.AcademicCriterion{
		Level:       req.Level,
		MinGPA:      req.MinGPA,
		MaxGPA:      req.MaxGPA,
		Description: req.Description,
	}
	if err := s.criteria.Create(ctx, criterion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create criterion")
	}
	return criterion, nil
}

// Update modifies a criteria band.
func (s *CriterionService) Update(ctx context.Context, id string, req UpsertCriterionRequest) (*models.AcademicCriterion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criterion payload")
	}
	criterion := &models.AcademicCriterion{
		ID:          id,
		Level:       req.Level,
		MinGPA:      req.MinGPA,
		MaxGPA:      req.MaxGPA,
		Description: req.Description,
	}
	if err := s.criteria.Update(ctx, criterion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update criterion")
	}
	return criterion, nil
}

// Delete removes a criteria band. Classification falls back to the fixed
// thresholds when no bands remain.
func (s *CriterionService) Delete(ctx context.Context, id string) error {
	if err := s.criteria.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete criterion")
	}
	return nil
}
