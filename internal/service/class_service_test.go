package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type mockClassRepo struct {
	classes  []models.Class
	replaced map[string][]models.Class
	deleted  []string
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{replaced: make(map[string][]models.Class)}
}

func (m *mockClassRepo) List(ctx context.Context) ([]models.Class, error) {
	return append([]models.Class(nil), m.classes...), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	for _, c := range m.classes {
		if c.ID == id {
			copy := c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = "generated"
	}
	m.classes = append(m.classes, *class)
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	for i := range m.classes {
		if m.classes[i].ID == class.ID {
			m.classes[i] = *class
		}
	}
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockClassRepo) DeleteByYear(ctx context.Context, academicYear string) error {
	m.deleted = append(m.deleted, academicYear)
	return nil
}

func (m *mockClassRepo) ReplaceForYear(ctx context.Context, academicYear string, classes []models.Class) error {
	m.replaced[academicYear] = classes
	return nil
}

func TestParseClassName(t *testing.T) {
	grade, letters, number := parseClassName("10A1")
	assert.Equal(t, 10, grade)
	assert.Equal(t, "A", letters)
	assert.Equal(t, 1, number)

	grade, letters, number = parseClassName("12CD11")
	assert.Equal(t, 12, grade)
	assert.Equal(t, "CD", letters)
	assert.Equal(t, 11, number)

	grade, letters, number = parseClassName("special")
	assert.Equal(t, 0, grade)
	assert.Equal(t, "", letters)
	assert.Equal(t, 0, number)
}

func TestSortClasses(t *testing.T) {
	classes := []models.Class{
		{Name: "10A10"},
		{Name: "11A1"},
		{Name: "10A2"},
		{Name: "10B1"},
		{Name: "10A1"},
		{Name: "misc"},
	}
	SortClasses(classes)

	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.Name)
	}
	// Numeric sequence ordering, not lexicographic: A2 before A10.
	assert.Equal(t, []string{"misc", "10A1", "10A2", "10A10", "10B1", "11A1"}, names)
}

func TestClassServiceGenerate(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, nil, nil)

	classes, err := svc.Generate(context.Background(), GenerateClassesRequest{
		AcademicYear: "2025-2026",
		Grades: map[string][]GenerationBlock{
			"10": {{Letter: "A", Count: 2}, {Letter: "B", Count: 1}},
			"11": {{Letter: "A", Count: 1}},
		},
	})
	require.NoError(t, err)
	require.Len(t, classes, 4)

	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.Name)
		assert.Equal(t, "2025-2026", c.AcademicYear)
		assert.True(t, c.IsActive)
	}
	assert.Equal(t, []string{"10A1", "10A2", "10B1", "11A1"}, names)

	require.Len(t, repo.replaced["2025-2026"], 4)
}

func TestClassServiceGenerateDuplicateLetter(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateClassesRequest{
		AcademicYear: "2025-2026",
		Grades: map[string][]GenerationBlock{
			"10": {{Letter: "A", Count: 2}, {Letter: "a", Count: 1}},
		},
	})
	require.Error(t, err)
	// Nothing was written.
	assert.Empty(t, repo.replaced)
}

func TestClassServiceGenerateDuplicateLetterAcrossGrades(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateClassesRequest{
		AcademicYear: "2025-2026",
		Grades: map[string][]GenerationBlock{
			"10": {{Letter: "A", Count: 2}},
			"11": {{Letter: "A", Count: 2}},
			"12": {{Letter: "C", Count: 2}},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced)
}

func TestClassServiceGenerateUnknownGrade(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateClassesRequest{
		AcademicYear: "2025-2026",
		Grades: map[string][]GenerationBlock{
			"9": {{Letter: "A", Count: 1}},
		},
	})
	require.Error(t, err)
	assert.Empty(t, repo.replaced)
}

func TestClassServiceCreateDerivesGrade(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, nil, nil)

	class, err := svc.Create(context.Background(), UpsertClassRequest{Name: "11B2", AcademicYear: "2025-2026"})
	require.NoError(t, err)
	assert.Equal(t, "11", class.Grade)
	assert.True(t, class.IsActive)
}
