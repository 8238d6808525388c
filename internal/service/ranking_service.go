package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
	"github.com/minhtran-dev/gradebook-api/pkg/export"
)

const rankingCacheKeyPrefix = "ranking:"

// Fixed fallback thresholds used when no criteria bands are configured.
const (
	thresholdExcellent = 9.0
	thresholdGood      = 8.0
	thresholdFair      = 6.5
	thresholdAverage   = 5.0
)

type rankingStudentRepo interface {
	ListProfiles(ctx context.Context, className string) ([]models.StudentProfile, error)
}

type rankingAccountRepo interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

type rankingScoreRepo interface {
	ListByStudent(ctx context.Context, studentID string, semester int, academicYear string) ([]models.ScoreEntry, error)
}

type criterionReader interface {
	List(ctx context.Context) ([]models.AcademicCriterion, error)
}

// RankingService computes class and school rank listings.
type RankingService struct {
	students rankingStudentRepo
	accounts rankingAccountRepo
	scores   rankingScoreRepo
	criteria criterionReader
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewRankingService constructs a RankingService.
func NewRankingService(students rankingStudentRepo, accounts rankingAccountRepo, scores rankingScoreRepo, criteria criterionReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		students: students,
		accounts: accounts,
		scores:   scores,
		criteria: criteria,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Class ranks the students of one class for a semester and academic year.
func (s *RankingService) Class(ctx context.Context, className string, semester int, academicYear string) ([]models.RankEntry, error) {
	if className == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name required")
	}
	return s.rank(ctx, className, semester, academicYear, "class")
}

// School ranks every student in the school for a semester and academic year.
func (s *RankingService) School(ctx context.Context, semester int, academicYear string) ([]models.RankEntry, error) {
	return s.rank(ctx, "", semester, academicYear, "school")
}

func (s *RankingService) rank(ctx context.Context, className string, semester int, academicYear string, scope string) ([]models.RankEntry, error) {
	if semester != 1 && semester != 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year required")
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%d:%s", rankingCacheKeyPrefix, scope, className, semester, academicYear)
	var cached []models.RankEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	start := time.Now()

	profiles, err := s.students.ListProfiles(ctx, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	classifier, err := s.newClassifier(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.RankEntry, 0, len(profiles))
	for _, profile := range profiles {
		account, err := s.accounts.FindByID(ctx, profile.AccountID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Orphaned profile: the owning account was deleted.
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student account")
		}

		scoreEntries, err := s.scores.ListByStudent(ctx, profile.ID, semester, academicYear)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student scores")
		}

		averages := make([]models.SubjectAverage, 0, len(scoreEntries))
		for _, entry := range scoreEntries {
			averages = append(averages, models.SubjectAverage{WeightedAvg: entry.WeightedAvg, SubjectWeight: entry.SubjectWeight})
		}

		gpa := GPA(averages)
		if gpa == nil {
			// Students without any scores for the term are excluded, not
			// ranked with a null GPA.
			continue
		}

		entries = append(entries, models.RankEntry{
			StudentID:     profile.ID,
			StudentName:   account.FullName,
			ClassName:     profile.ClassName,
			GPA:           *gpa,
			AcademicLevel: classifier(*gpa),
		})
	}

	// Positional ranking: equal GPAs keep their relative input order and
	// receive consecutive distinct ranks.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].GPA > entries[j].GPA
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.metrics.ObserveRanking(scope, time.Since(start))

	if err := s.cache.Set(ctx, cacheKey, entries, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache ranking", zap.String("key", cacheKey), zap.Error(err))
	}

	return entries, nil
}

// newClassifier returns a GPA-to-level function backed by the configured
// criteria bands, falling back to the fixed thresholds when the band table
// is empty or no band matches.
func (s *RankingService) newClassifier(ctx context.Context) (func(float64) string, error) {
	criteria, err := s.criteria.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load criteria")
	}
	return func(gpa float64) string {
		for _, band := range criteria {
			if gpa >= band.MinGPA && gpa <= band.MaxGPA {
				return band.Level
			}
		}
		return defaultLevel(gpa)
	}, nil
}

func defaultLevel(gpa float64) string {
	switch {
	case gpa >= thresholdExcellent:
		return "Excellent"
	case gpa >= thresholdGood:
		return "Good"
	case gpa >= thresholdFair:
		return "Fair"
	case gpa >= thresholdAverage:
		return "Average"
	default:
		return "Weak"
	}
}

func rankingTable(entries []models.RankEntry) export.Table {
	table := export.Table{Headers: []string{"Rank", "Student", "Class", "GPA", "Level"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", entry.Rank),
			entry.StudentName,
			entry.ClassName,
			fmt.Sprintf("%.2f", entry.GPA),
			entry.AcademicLevel,
		})
	}
	return table
}

// ExportCSV renders a ranking as CSV bytes.
func (s *RankingService) ExportCSV(entries []models.RankEntry) ([]byte, error) {
	data, err := export.NewCSVExporter().Render(rankingTable(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// ExportPDF renders a ranking as a PDF document.
func (s *RankingService) ExportPDF(entries []models.RankEntry, title string) ([]byte, error) {
	data, err := export.NewPDFExporter().Render(rankingTable(entries), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}
