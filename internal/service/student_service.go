package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type studentRowRepo interface {
	ListRows(ctx context.Context, className string) ([]models.StudentRow, error)
}

// StudentService exposes student listings for the score entry screens.
type StudentService struct {
	students studentRowRepo
	logger   *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRowRepo, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, logger: logger}
}

// List returns student rows joined with account names, optionally filtered
// to a class.
func (s *StudentService) List(ctx context.Context, className string) ([]models.StudentRow, error) {
	rows, err := s.students.ListRows(ctx, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return rows, nil
}
