package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	"github.com/minhtran-dev/gradebook-api/internal/service"
	"github.com/minhtran-dev/gradebook-api/pkg/response"
)

// RankingHandler handles ranking endpoints.
type RankingHandler struct {
	service *service.RankingService
}

// NewRankingHandler constructs a ranking handler.
func NewRankingHandler(svc *service.RankingService) *RankingHandler {
	return &RankingHandler{service: svc}
}

// Class godoc
// @Summary Class ranking
// @Description Rank the students of one class by GPA
// @Tags Rankings
// @Produce json
// @Param class query string true "Class name"
// @Param semester query int true "Semester (1 or 2)"
// @Param year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rankings/class [get]
func (h *RankingHandler) Class(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	entries, err := h.service.Class(c.Request.Context(), c.Query("class"), semester, c.Query("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// School godoc
// @Summary School ranking
// @Description Rank every student in the school by GPA
// @Tags Rankings
// @Produce json
// @Param semester query int true "Semester (1 or 2)"
// @Param year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rankings/school [get]
func (h *RankingHandler) School(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	entries, err := h.service.School(c.Request.Context(), semester, c.Query("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export a ranking
// @Description Download a class or school ranking as CSV or PDF
// @Tags Rankings
// @Produce octet-stream
// @Param scope query string true "class or school"
// @Param class query string false "Class name (required for scope=class)"
// @Param semester query int true "Semester (1 or 2)"
// @Param year query string true "Academic year"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /rankings/export [get]
func (h *RankingHandler) Export(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	year := c.Query("year")

	var entries []models.RankEntry
	var err error
	var title string
	if c.Query("scope") == "school" {
		entries, err = h.service.School(c.Request.Context(), semester, year)
		title = fmt.Sprintf("School ranking %s semester %d", year, semester)
	} else {
		class := c.Query("class")
		entries, err = h.service.Class(c.Request.Context(), class, semester, year)
		title = fmt.Sprintf("Class %s ranking %s semester %d", class, year, semester)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.DefaultQuery("format", "csv") == "pdf" {
		data, err := h.service.ExportPDF(entries, title)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="ranking.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
		return
	}

	data, err := h.service.ExportCSV(entries)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ranking.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
