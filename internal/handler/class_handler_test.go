package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	"github.com/minhtran-dev/gradebook-api/internal/service"
)

type fakeClassRepo struct {
	classes  []models.Class
	replaced map[string][]models.Class
}

func (f *fakeClassRepo) List(ctx context.Context) ([]models.Class, error) {
	return f.classes, nil
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	for _, c := range f.classes {
		if c.ID == id {
			copy := c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	f.classes = append(f.classes, *class)
	return nil
}

func (f *fakeClassRepo) Update(ctx context.Context, class *models.Class) error { return nil }

func (f *fakeClassRepo) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeClassRepo) DeleteByYear(ctx context.Context, academicYear string) error { return nil }

func (f *fakeClassRepo) ReplaceForYear(ctx context.Context, academicYear string, classes []models.Class) error {
	if f.replaced == nil {
		f.replaced = make(map[string][]models.Class)
	}
	f.replaced[academicYear] = classes
	return nil
}

func newClassHandlerFixture() (*fakeClassRepo, *ClassHandler) {
	repo := &fakeClassRepo{}
	return repo, NewClassHandler(service.NewClassService(repo, nil, nil))
}

func TestClassHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, handler := newClassHandlerFixture()

	body := `{"academic_year":"2025-2026","grades":{"10":[{"letter":"A","count":2}],"11":[{"letter":"B","count":1}]}}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/classes/generate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.replaced["2025-2026"], 3)

	var envelope struct {
		Data []models.Class `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	names := make([]string, 0, len(envelope.Data))
	for _, class := range envelope.Data {
		names = append(names, class.Name)
	}
	assert.Equal(t, []string{"10A1", "10A2", "11B1"}, names)
}

func TestClassHandlerGenerateDuplicateLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, handler := newClassHandlerFixture()

	body := `{"academic_year":"2025-2026","grades":{"10":[{"letter":"A","count":1},{"letter":"A","count":2}]}}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/classes/generate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.replaced)
}

func TestClassHandlerGenerateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, handler := newClassHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/classes/generate", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
