package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type academicYearRepo interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context) (*models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UpsertAcademicYearRequest carries the payload for creating or updating an
// academic year.
type UpsertAcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsCurrent bool      `json:"is_current"`
}

// AcademicYearService implements academic year reference data management.
type AcademicYearService struct {
	years     academicYearRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs an AcademicYearService.
func NewAcademicYearService(years academicYearRepo, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{years: years, validator: validate, logger: logger}
}

// List returns all academic years.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// Current returns the year flagged as current, or nil when none is set.
func (s *AcademicYearService) Current(ctx context.Context) (*models.AcademicYear, error) {
	year, err := s.years.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current year")
	}
	return year, nil
}

// Create adds an academic year. When the new year is flagged current the
// flag is transferred atomically from whichever year held it.
func (s *AcademicYearService) Create(ctx context.Context, req UpsertAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	year := &models.AcademicYear{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	if req.IsCurrent {
		if err := s.years.SetCurrent(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current year")
		}
		year.IsCurrent = true
	}
	return year, nil
}

// Update modifies an academic year's name and dates. The current flag is
// managed only through SetCurrent so the single-current invariant cannot be
// broken by a plain update.
func (s *AcademicYearService) Update(ctx context.Context, id string, req UpsertAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	year, err := s.loadYear(ctx, id)
	if err != nil {
		return nil, err
	}
	year.Name = req.Name
	year.StartDate = req.StartDate
	year.EndDate = req.EndDate
	if err := s.years.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}
	if req.IsCurrent && !year.IsCurrent {
		if err := s.years.SetCurrent(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current year")
		}
		year.IsCurrent = true
	}
	return year, nil
}

// SetCurrent marks the year as the single current one.
func (s *AcademicYearService) SetCurrent(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.loadYear(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.years.SetCurrent(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current year")
	}
	year.IsCurrent = true
	return year, nil
}

// Delete removes an academic year. The current year cannot be deleted.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	year, err := s.loadYear(ctx, id)
	if err != nil {
		return err
	}
	if year.IsCurrent {
		return appErrors.Clone(appErrors.ErrConflict, "the current academic year cannot be deleted")
	}
	if err := s.years.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic year")
	}
	return nil
}

func (s *AcademicYearService) loadYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}
