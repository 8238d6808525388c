package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/gradebook-api/internal/middleware"
	"github.com/minhtran-dev/gradebook-api/internal/models"
	"github.com/minhtran-dev/gradebook-api/internal/service"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
	"github.com/minhtran-dev/gradebook-api/pkg/response"
)

// AccountHandler handles account administration endpoints.
type AccountHandler struct {
	service *service.AccountService
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// List godoc
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Param role query string false "Filter by role"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search username or full name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var filter models.AccountFilter
	if role := c.Query("role"); role != "" {
		r := models.Role(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		if parsed, err := strconv.ParseBool(active); err == nil {
			filter.Active = &parsed
		}
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	accounts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, pagination)
}

// Create godoc
// @Summary Create account
// @Description Register a student, teacher or admin account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body service.CreateAccountRequest true "Account payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req service.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid account payload"))
		return
	}

	account, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// ToggleLock godoc
// @Summary Toggle account lock
// @Description Flip the active flag on an account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id}/lock [patch]
func (h *AccountHandler) ToggleLock(c *gin.Context) {
	requester, err := h.requester(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	account, err := h.service.ToggleLock(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Verify godoc
// @Summary Verify a pending account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id}/verify [patch]
func (h *AccountHandler) Verify(c *gin.Context) {
	requester, err := h.requester(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	account, err := h.service.Verify(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Delete godoc
// @Summary Delete account
// @Description Remove the account while retaining its profile and scores
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	requester, err := h.requester(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), requester, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// requester reconstructs an account view from the JWT claims. Authorization
// predicates only need the identity, role and super admin flag.
func (h *AccountHandler) requester(c *gin.Context) (*models.Account, error) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.Account{
		ID:           claims.AccountID,
		Username:     claims.Username,
		FullName:     claims.FullName,
		Role:         claims.Role,
		IsSuperAdmin: claims.IsSuperAdmin,
	}, nil
}
