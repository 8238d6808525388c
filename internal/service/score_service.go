package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

// Component weights for the per-subject weighted average. A quiz score
// counts once, a periodic test twice and the final exam three times.
const (
	quizWeight     = 1.0
	periodicWeight = 2.0
	finalWeight    = 3.0
)

type scoreRepo interface {
	FindByKey(ctx context.Context, key models.ScoreKey) (*models.ScoreEntry, error)
	ListByScope(ctx context.Context, scope models.ScoreScope) ([]models.ScoreEntry, error)
	Insert(ctx context.Context, entry *models.ScoreEntry) error
	Update(ctx context.Context, entry *models.ScoreEntry) error
	BulkUpsert(ctx context.Context, entries []models.ScoreEntry) error
}

// UpsertScoreRequest represents a single score entry payload. Component
// scores are optional; absent components simply do not contribute.
type UpsertScoreRequest struct {
	StudentID     string   `json:"student_id" validate:"required"`
	SubjectName   string   `json:"subject_name" validate:"required"`
	SubjectWeight float64  `json:"subject_weight" validate:"required,gt=0"`
	QuizScore     *float64 `json:"quiz_score" validate:"omitempty,gte=0,lte=10"`
	PeriodicScore *float64 `json:"periodic_score" validate:"omitempty,gte=0,lte=10"`
	FinalScore    *float64 `json:"final_score" validate:"omitempty,gte=0,lte=10"`
	Semester      int      `json:"semester" validate:"required,oneof=1 2"`
	AcademicYear  string   `json:"academic_year" validate:"required"`
	EnteredBy     string   `json:"entered_by" validate:"required"`
}

// BulkUpsertScoresRequest applies many score entries as one unit.
type BulkUpsertScoresRequest struct {
	Items []UpsertScoreRequest `json:"items" validate:"required,min=1,dive"`
}

// ScoreService implements score entry and aggregation flows.
type ScoreService struct {
	scores    scoreRepo
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScoreService constructs a ScoreService.
func NewScoreService(scores scoreRepo, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{scores: scores, cache: cache, validator: validate, logger: logger}
}

// WeightedAverage combines up to three graded components using the fixed
// 1/2/3 weights, averaging over whichever components are present. It returns
// nil only when all three are absent. The result is rounded to 2 decimals.
func WeightedAverage(quiz, periodic, final *float64) *float64 {
	sum := 0.0
	weight := 0.0
	if quiz != nil {
		sum += *quiz * quizWeight
		weight += quizWeight
	}
	if periodic != nil {
		sum += *periodic * periodicWeight
		weight += periodicWeight
	}
	if final != nil {
		sum += *final * finalWeight
		weight += finalWeight
	}
	if weight == 0 {
		return nil
	}
	avg := round2(sum / weight)
	return &avg
}

// GPA combines per-subject weighted averages using each subject's weight.
// Subjects without a weighted average are excluded entirely, not treated as
// zero. Returns nil when no subject qualifies.
func GPA(entries []models.SubjectAverage) *float64 {
	sum := 0.0
	weight := 0.0
	for _, entry := range entries {
		if entry.WeightedAvg == nil {
			continue
		}
		sum += *entry.WeightedAvg * entry.SubjectWeight
		weight += entry.SubjectWeight
	}
	if weight == 0 {
		return nil
	}
	gpa := round2(sum / weight)
	return &gpa
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Upsert recomputes the weighted average and writes the entry. An existing
// entry for the (student, subject, semester, year) tuple is updated and
// stamped with updated_by/updated_at; otherwise a new row is inserted.
func (s *ScoreService) Upsert(ctx context.Context, req UpsertScoreRequest) (*models.ScoreEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	now := time.Now().UTC()
	key := models.ScoreKey{
		StudentID:    req.StudentID,
		SubjectName:  req.SubjectName,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}

	existing, err := s.scores.FindByKey(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}

	avg := WeightedAverage(req.QuizScore, req.PeriodicScore, req.FinalScore)

	if existing != nil {
		existing.QuizScore = req.QuizScore
		existing.PeriodicScore = req.PeriodicScore
		existing.FinalScore = req.FinalScore
		existing.WeightedAvg = avg
		existing.UpdatedBy = &req.EnteredBy
		existing.UpdatedAt = &now
		if err := s.scores.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update score")
		}
		s.invalidateRankings(ctx)
		return existing, nil
	}

	entry := &models.ScoreEntry{
		StudentID:     req.StudentID,
		SubjectName:   req.SubjectName,
		SubjectWeight: req.SubjectWeight,
		QuizScore:     req.QuizScore,
		PeriodicScore: req.PeriodicScore,
		FinalScore:    req.FinalScore,
		WeightedAvg:   avg,
		Semester:      req.Semester,
		AcademicYear:  req.AcademicYear,
		EnteredBy:     req.EnteredBy,
		EnteredAt:     now,
	}
	if err := s.scores.Insert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert score")
	}
	s.invalidateRankings(ctx)
	return entry, nil
}

// BulkUpsert validates every item, recomputes each weighted average and
// applies the whole batch inside one repository transaction.
func (s *ScoreService) BulkUpsert(ctx context.Context, req BulkUpsertScoresRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk score payload")
	}

	now := time.Now().UTC()
	entries := make([]models.ScoreEntry, 0, len(req.Items))
	for _, item := range req.Items {
		entries = append(entries, models.ScoreEntry{
			StudentID:     item.StudentID,
			SubjectName:   item.SubjectName,
			SubjectWeight: item.SubjectWeight,
			QuizScore:     item.QuizScore,
			PeriodicScore: item.PeriodicScore,
			FinalScore:    item.FinalScore,
			WeightedAvg:   WeightedAverage(item.QuizScore, item.PeriodicScore, item.FinalScore),
			Semester:      item.Semester,
			AcademicYear:  item.AcademicYear,
			EnteredBy:     item.EnteredBy,
			EnteredAt:     now,
		})
	}

	if err := s.scores.BulkUpsert(ctx, entries); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk upsert scores")
	}
	s.invalidateRankings(ctx)
	return len(entries), nil
}

// ListByScope returns score entries for a subject, semester and year,
// optionally narrowed to one class.
func (s *ScoreService) ListByScope(ctx context.Context, scope models.ScoreScope) ([]models.ScoreEntry, error) {
	if scope.SubjectName == "" || scope.AcademicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject and academic year required")
	}
	if scope.Semester != 1 && scope.Semester != 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	entries, err := s.scores.ListByScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return entries, nil
}

func (s *ScoreService) invalidateRankings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, rankingCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate ranking cache", zap.Error(err))
	}
}
