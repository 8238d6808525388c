package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

func f(v float64) *float64 { return &v }

type mockScoreRepo struct {
	entries map[models.ScoreKey]models.ScoreEntry
	bulk    [][]models.ScoreEntry
	err     error
}

func (m *mockScoreRepo) key(e models.ScoreEntry) models.ScoreKey {
	return models.ScoreKey{StudentID: e.StudentID, SubjectName: e.SubjectName, Semester: e.Semester, AcademicYear: e.AcademicYear}
}

func (m *mockScoreRepo) FindByKey(ctx context.Context, key models.ScoreKey) (*models.ScoreEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if e, ok := m.entries[key]; ok {
		copy := e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScoreRepo) ListByScope(ctx context.Context, scope models.ScoreScope) ([]models.ScoreEntry, error) {
	var out []models.ScoreEntry
	for _, e := range m.entries {
		if e.SubjectName == scope.SubjectName && e.Semester == scope.Semester && e.AcademicYear == scope.AcademicYear {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockScoreRepo) ListByStudent(ctx context.Context, studentID string, semester int, academicYear string) ([]models.ScoreEntry, error) {
	var out []models.ScoreEntry
	for _, e := range m.entries {
		if e.StudentID == studentID && e.Semester == semester && e.AcademicYear == academicYear {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockScoreRepo) Insert(ctx context.Context, entry *models.ScoreEntry) error {
	if m.entries == nil {
		m.entries = make(map[models.ScoreKey]models.ScoreEntry)
	}
	entry.ID = "generated"
	m.entries[m.key(*entry)] = *entry
	return nil
}

func (m *mockScoreRepo) Update(ctx context.Context, entry *models.ScoreEntry) error {
	m.entries[m.key(*entry)] = *entry
	return nil
}

func (m *mockScoreRepo) BulkUpsert(ctx context.Context, entries []models.ScoreEntry) error {
	if m.err != nil {
		return m.err
	}
	m.bulk = append(m.bulk, entries)
	return nil
}

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name                 string
		quiz, periodic, fin  *float64
		want                 *float64
	}{
		{"all present", f(8), f(7), f(9), f(8.17)},
		{"quiz only", f(6.5), nil, nil, f(6.5)},
		{"periodic only", nil, f(7.25), nil, f(7.25)},
		{"final only", nil, nil, f(4), f(4)},
		{"quiz and final", f(10), nil, f(7), f(7.75)},
		{"all absent", nil, nil, nil, nil},
		{"rounding", f(7.33), f(8.66), f(5.5), f(6.86)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := WeightedAverage(tc.quiz, tc.periodic, tc.fin)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 0.001)
		})
	}
}

func TestGPA(t *testing.T) {
	t.Run("weighted by subject weight", func(t *testing.T) {
		gpa := GPA([]models.SubjectAverage{
			{WeightedAvg: f(8), SubjectWeight: 2},
			{WeightedAvg: f(6), SubjectWeight: 1},
		})
		require.NotNil(t, gpa)
		assert.InDelta(t, 7.33, *gpa, 0.001)
	})

	t.Run("nil averages excluded not zeroed", func(t *testing.T) {
		gpa := GPA([]models.SubjectAverage{
			{WeightedAvg: f(9), SubjectWeight: 1},
			{WeightedAvg: nil, SubjectWeight: 3},
		})
		require.NotNil(t, gpa)
		assert.InDelta(t, 9.0, *gpa, 0.001)
	})

	t.Run("no qualifying subjects", func(t *testing.T) {
		assert.Nil(t, GPA([]models.SubjectAverage{{WeightedAvg: nil, SubjectWeight: 1}}))
		assert.Nil(t, GPA(nil))
	})
}

func TestScoreServiceUpsertInsertsNewEntry(t *testing.T) {
	repo := &mockScoreRepo{}
	svc := NewScoreService(repo, nil, nil, nil)

	entry, err := svc.Upsert(context.Background(), UpsertScoreRequest{
		StudentID:     "st-1",
		SubjectName:   "Math",
		SubjectWeight: 2,
		QuizScore:     f(8),
		FinalScore:    f(9),
		Semester:      1,
		AcademicYear:  "2025-2026",
		EnteredBy:     "teacher-1",
	})
	require.NoError(t, err)
	require.NotNil(t, entry.WeightedAvg)
	assert.InDelta(t, 8.75, *entry.WeightedAvg, 0.001)
	assert.Equal(t, "teacher-1", entry.EnteredBy)
	assert.False(t, entry.EnteredAt.IsZero())
	assert.Nil(t, entry.UpdatedBy)
}

func TestScoreServiceUpsertUpdatesExistingEntry(t *testing.T) {
	repo := &mockScoreRepo{entries: map[models.ScoreKey]models.ScoreEntry{
		{StudentID: "st-1", SubjectName: "Math", Semester: 1, AcademicYear: "2025-2026"}: {
			ID: "score-1", StudentID: "st-1", SubjectName: "Math", SubjectWeight: 2,
			QuizScore: f(5), WeightedAvg: f(5), Semester: 1, AcademicYear: "2025-2026", EnteredBy: "teacher-1",
		},
	}}
	svc := NewScoreService(repo, nil, nil, nil)

	entry, err := svc.Upsert(context.Background(), UpsertScoreRequest{
		StudentID:     "st-1",
		SubjectName:   "Math",
		SubjectWeight: 2,
		QuizScore:     f(7),
		PeriodicScore: f(8),
		Semester:      1,
		AcademicYear:  "2025-2026",
		EnteredBy:     "teacher-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "score-1", entry.ID)
	require.NotNil(t, entry.WeightedAvg)
	assert.InDelta(t, 7.67, *entry.WeightedAvg, 0.001)
	assert.Equal(t, "teacher-1", entry.EnteredBy)
	require.NotNil(t, entry.UpdatedBy)
	assert.Equal(t, "teacher-2", *entry.UpdatedBy)
	require.NotNil(t, entry.UpdatedAt)
}

func TestScoreServiceUpsertRejectsOutOfRange(t *testing.T) {
	svc := NewScoreService(&mockScoreRepo{}, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), UpsertScoreRequest{
		StudentID:     "st-1",
		SubjectName:   "Math",
		SubjectWeight: 2,
		QuizScore:     f(10.5),
		Semester:      1,
		AcademicYear:  "2025-2026",
		EnteredBy:     "teacher-1",
	})
	require.Error(t, err)

	_, err = svc.Upsert(context.Background(), UpsertScoreRequest{
		StudentID:     "st-1",
		SubjectName:   "Math",
		SubjectWeight: 2,
		Semester:      3,
		AcademicYear:  "2025-2026",
		EnteredBy:     "teacher-1",
	})
	require.Error(t, err)
}

func TestScoreServiceBulkUpsert(t *testing.T) {
	repo := &mockScoreRepo{}
	svc := NewScoreService(repo, nil, nil, nil)

	count, err := svc.BulkUpsert(context.Background(), BulkUpsertScoresRequest{Items: []UpsertScoreRequest{
		{StudentID: "st-1", SubjectName: "Math", SubjectWeight: 2, QuizScore: f(8), Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t"},
		{StudentID: "st-2", SubjectName: "Math", SubjectWeight: 2, FinalScore: f(6), Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.bulk, 1)
	require.NotNil(t, repo.bulk[0][0].WeightedAvg)
	assert.InDelta(t, 8.0, *repo.bulk[0][0].WeightedAvg, 0.001)
}

func TestScoreServiceListByScopeValidation(t *testing.T) {
	svc := NewScoreService(&mockScoreRepo{}, nil, nil, nil)

	_, err := svc.ListByScope(context.Background(), models.ScoreScope{SubjectName: "", Semester: 1, AcademicYear: "2025-2026"})
	require.Error(t, err)

	_, err = svc.ListByScope(context.Background(), models.ScoreScope{SubjectName: "Math", Semester: 0, AcademicYear: "2025-2026"})
	require.Error(t, err)
}
