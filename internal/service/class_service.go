package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

// classNamePattern splits a class name into grade digits, a letter block and
// a sequence number, e.g. "10A1" into ("10", "A", "1").
var classNamePattern = regexp.MustCompile(`^(\d+)([A-Z]+)(\d+)$`)

var generationGrades = []string{"10", "11", "12"}

type classRepo interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	DeleteByYear(ctx context.Context, academicYear string) error
	ReplaceForYear(ctx context.Context, academicYear string, classes []models.Class) error
}

// UpsertClassRequest carries the payload for creating or updating one class.
type UpsertClassRequest struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	IsActive     *bool  `json:"is_active"`
}

// GenerateClassesRequest describes a batch generation run. Each grade maps
// to its letter blocks and the number of classes per letter.
type GenerateClassesRequest struct {
	AcademicYear string                       `json:"academic_year" validate:"required"`
	Grades       map[string][]GenerationBlock `json:"grades" validate:"required,min=1,dive,min=1,dive"`
}

// GenerationBlock is one letter with its class count within a grade.
type GenerationBlock struct {
	Letter string `json:"letter" validate:"required,alpha"`
	Count  int    `json:"count" validate:"required,gt=0"`
}

// ClassService implements class reference data management.
type ClassService struct {
	classes   classRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(classes classRepo, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, validator: validate, logger: logger}
}

// List returns all classes in display order: grade first, then letter block,
// then sequence number. Names that do not match the pattern sort first.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	SortClasses(classes)
	return classes, nil
}

// SortClasses orders classes by the grade/letter/sequence components of
// their names.
func SortClasses(classes []models.Class) {
	sort.SliceStable(classes, func(i, j int) bool {
		gi, li, ni := parseClassName(classes[i].Name)
		gj, lj, nj := parseClassName(classes[j].Name)
		if gi != gj {
			return gi < gj
		}
		if li != lj {
			return li < lj
		}
		return ni < nj
	})
}

// parseClassName decomposes a class name into its sortable components.
// Non-matching names yield zero values so they group together at the front.
func parseClassName(name string) (grade int, letters string, number int) {
	match := classNamePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, "", 0
	}
	grade, _ = strconv.Atoi(match[1])
	letters = match[2]
	number, _ = strconv.Atoi(match[3])
	return grade, letters, number
}

// Create adds one class.
func (s *ClassService) Create(ctx context.Context, req UpsertClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		Name:         req.Name,
		Grade:        gradeFromClassName(req.Name),
		AcademicYear: req.AcademicYear,
		IsActive:     true,
	}
	if req.IsActive != nil {
		class.IsActive = *req.IsActive
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies one class.
func (s *ClassService) Update(ctx context.Context, id string, req UpsertClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	class.Name = req.Name
	class.Grade = gradeFromClassName(req.Name)
	class.AcademicYear = req.AcademicYear
	if req.IsActive != nil {
		class.IsActive = *req.IsActive
	}
	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes one class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.classes.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// DeleteByYear removes every class of an academic year.
func (s *ClassService) DeleteByYear(ctx context.Context, academicYear string) error {
	if academicYear == "" {
		return appErrors.Clone(appErrors.ErrValidation, "academic year required")
	}
	if err := s.classes.DeleteByYear(ctx, academicYear); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classes")
	}
	return nil
}

// Generate builds the full class set for an academic year from the grade and
// letter layout. The whole request is validated first: a letter reused
// anywhere in the layout, even across grades, or an unknown grade, rejects
// the run before any write. The replacement happens in one transaction.
func (s *ClassService) Generate(ctx context.Context, req GenerateClassesRequest) ([]models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	seen := make(map[string]bool)
	for grade, blocks := range req.Grades {
		if !isGenerationGrade(grade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported grade %q", grade))
		}
		for _, block := range blocks {
			letter := strings.ToUpper(block.Letter)
			if seen[letter] {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("letter %q used more than once", letter))
			}
			seen[letter] = true
		}
	}

	var classes []models.Class
	for _, grade := range generationGrades {
		blocks := req.Grades[grade]
		for _, block := range blocks {
			letter := strings.ToUpper(block.Letter)
			for i := 1; i <= block.Count; i++ {
				classes = append(classes, models.Class{
					Name:         fmt.Sprintf("%s%s%d", grade, letter, i),
					Grade:        grade,
					AcademicYear: req.AcademicYear,
					IsActive:     true,
				})
			}
		}
	}

	if err := s.classes.ReplaceForYear(ctx, req.AcademicYear, classes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate classes")
	}

	SortClasses(classes)
	return classes, nil
}

func isGenerationGrade(grade string) bool {
	for _, g := range generationGrades {
		if g == grade {
			return true
		}
	}
	return false
}
