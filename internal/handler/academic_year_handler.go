package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/gradebook-api/internal/service"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
	"github.com/minhtran-dev/gradebook-api/pkg/response"
)

// AcademicYearHandler handles academic year endpoints.
type AcademicYearHandler struct {
	service *service.AcademicYearService
}

// NewAcademicYearHandler constructs an academic year handler.
func NewAcademicYearHandler(svc *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: svc}
}

// List godoc
// @Summary List academic years
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	years, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Current godoc
// @Summary Get the current academic year
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years/current [get]
func (h *AcademicYearHandler) Current(c *gin.Context) {
	year, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Create godoc
// @Summary Create academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body service.UpsertAcademicYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req service.UpsertAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid academic year payload"))
		return
	}
	year, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param id path string true "Year ID"
// @Param payload body service.UpsertAcademicYearRequest true "Year payload"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	var req service.UpsertAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid academic year payload"))
		return
	}
	year, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetCurrent godoc
// @Summary Mark an academic year as current
// @Description Transfer the current flag atomically, exactly one year stays current
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/current [patch]
func (h *AcademicYearHandler) SetCurrent(c *gin.Context) {
	year, err := h.service.SetCurrent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Delete godoc
// @Summary Delete academic year
// @Tags AcademicYears
// @Param id path string true "Year ID"
// @Success 204 {object} response.Envelope
// @Router /academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
