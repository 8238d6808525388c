package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	"github.com/minhtran-dev/gradebook-api/internal/service"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
	"github.com/minhtran-dev/gradebook-api/pkg/response"
)

// ScoreHandler handles score entry endpoints.
type ScoreHandler struct {
	service *service.ScoreService
}

// NewScoreHandler constructs a score handler.
func NewScoreHandler(svc *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{service: svc}
}

// List godoc
// @Summary List score entries
// @Description List scores for a subject, semester and year, optionally narrowed to a class
// @Tags Scores
// @Produce json
// @Param subject query string true "Subject name"
// @Param semester query int true "Semester (1 or 2)"
// @Param year query string true "Academic year"
// @Param class query string false "Class name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	scope := models.ScoreScope{
		ClassName:    c.Query("class"),
		SubjectName:  c.Query("subject"),
		Semester:     semester,
		AcademicYear: c.Query("year"),
	}

	entries, err := h.service.ListByScope(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Upsert godoc
// @Summary Save one score entry
// @Description Insert or update the score row for a student, subject, semester and year
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body service.UpsertScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scores [put]
func (h *ScoreHandler) Upsert(c *gin.Context) {
	var req service.UpsertScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	entry, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// BulkUpsert godoc
// @Summary Save a batch of score entries
// @Description Apply many score rows in one transaction
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body service.BulkUpsertScoresRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scores/batch [put]
func (h *ScoreHandler) BulkUpsert(c *gin.Context) {
	var req service.BulkUpsertScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	count, err := h.service.BulkUpsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"saved": count}, nil)
}
