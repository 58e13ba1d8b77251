package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/shiftlane/backend/internal/db"
	"github.com/shiftlane/backend/internal/models"
	"github.com/shiftlane/backend/internal/service"
)

type Handler struct {
	Store       *db.Store
	Coordinator *service.Coordinator
	Tracker     *service.Tracker
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type PostShiftRequest struct {
	BusinessID      string   `json:"business_id" validate:"required"`
	Industry        string   `json:"industry" validate:"required"`
	Address         string   `json:"address" validate:"required"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	GeofenceRadiusM *float64 `json:"geofence_radius_m"`
	Date            string   `json:"date" validate:"required"`
	StartTime       string   `json:"start_time" validate:"required"`
	EndTime         string   `json:"end_time" validate:"required"`
	BaseRate        float64  `json:"base_rate" validate:"required,gt=0"`
	Urgency         string   `json:"urgency_level" validate:"omitempty,oneof=normal urgent critical"`
	RequiredSkills  []string `json:"required_skills"`
	RequiredWorkers int      `json:"required_workers" validate:"required,min=1"`
}

// @Summary Post a shift
// @Tags shifts
// @Accept json
// @Produce json
// @Param payload body PostShiftRequest true "shift"
// @Success 201 {object} models.Shift
// @Failure 400 {object} map[string]any
// @Router /api/shifts [post]
func (h *Handler) PostShift(c *gin.Context) {
	var req PostShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "start_time must be RFC3339", err.Error())
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "end_time must be RFC3339", err.Error())
		return
	}

	urgency := models.UrgencyLevel(req.Urgency)
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	shift, err := h.Coordinator.PostShift(c.Request.Context(), service.PostShiftInput{
		BusinessID:      req.BusinessID,
		Industry:        req.Industry,
		Address:         req.Address,
		Lat:             req.Lat,
		Lon:             req.Lon,
		GeofenceRadiusM: req.GeofenceRadiusM,
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		BaseRate:        req.BaseRate,
		Urgency:         urgency,
		RequiredSkills:  req.RequiredSkills,
		RequiredWorkers: req.RequiredWorkers,
	})
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

type UpdateShiftRequest struct {
	Address         *string  `json:"address"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	GeofenceRadiusM *float64 `json:"geofence_radius_m"`
	Date            *string  `json:"date"`
	StartTime       *string  `json:"start_time"`
	EndTime         *string  `json:"end_time"`
	BaseRate        *float64 `json:"base_rate"`
	Urgency         *string  `json:"urgency_level" validate:"omitempty,oneof=normal urgent critical"`
	RequiredSkills  []string `json:"required_skills"`
}

func (h *Handler) UpdateShift(c *gin.Context) {
	var req UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	in := service.UpdateShiftInput{
		Address:         req.Address,
		Lat:             req.Lat,
		Lon:             req.Lon,
		GeofenceRadiusM: req.GeofenceRadiusM,
		RequiredSkills:  req.RequiredSkills,
	}
	if req.Date != nil {
		d, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
			return
		}
		in.Date = &d
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "start_time must be RFC3339", err.Error())
			return
		}
		in.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "end_time must be RFC3339", err.Error())
			return
		}
		in.EndTime = &t
	}
	if req.BaseRate != nil {
		in.BaseRate = req.BaseRate
	}
	if req.Urgency != nil {
		u := models.UrgencyLevel(*req.Urgency)
		in.Urgency = &u
	}

	shift, err := h.Coordinator.UpdateShift(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

func (h *Handler) CancelShift(c *gin.Context) {
	if err := h.Coordinator.CancelShift(c.Request.Context(), c.Param("id")); err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) ShiftsList(c *gin.Context) {
	industry := c.Query("industry")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListOpenShifts(c.Request.Context(), industry, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list shifts", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) GetShift(c *gin.Context) {
	shift, err := h.Store.GetShift(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, mapStoreErr(err, "Shift not found"))
		return
	}
	c.JSON(http.StatusOK, shift)
}

type ApplyRequest struct {
	WorkerID string `json:"worker_id" validate:"required"`
}

// @Summary Apply to a shift
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Shift ID"
// @Param payload body ApplyRequest true "application"
// @Success 201 {object} models.ShiftApplication
// @Failure 409 {object} map[string]any
// @Router /api/shifts/{id}/apply [post]
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	app, err := h.Coordinator.Apply(c.Request.Context(), c.Param("id"), req.WorkerID)
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// @Summary Ranked applicants for a shift
// @Tags applications
// @Produce json
// @Param id path string true "Shift ID"
// @Success 200 {object} map[string]any
// @Router /api/shifts/{id}/applicants [get]
func (h *Handler) Applicants(c *gin.Context) {
	ranked, err := h.Coordinator.RankApplicants(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": ranked})
}

// @Summary Accept an application
// @Tags applications
// @Produce json
// @Param id path string true "Shift ID"
// @Param worker_id path string true "Worker ID"
// @Success 200 {object} service.AcceptResult
// @Failure 409 {object} map[string]any
// @Router /api/shifts/{id}/applications/{worker_id}/accept [post]
func (h *Handler) AcceptApplication(c *gin.Context) {
	result, err := h.Coordinator.Accept(c.Request.Context(), c.Param("id"), c.Param("worker_id"))
	if err != nil {
		if oe, ok := service.AsOpError(err); ok && oe.Code == service.CodeEscrowHoldFailed {
			// The assignment is committed; the caller must surface the
			// reconciliation state, not treat this as a clean success.
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": gin.H{
					"code":    oe.Code,
					"message": oe.Message,
					"details": result,
				},
			})
			return
		}
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ActiveAssignment(c *gin.Context) {
	a, err := h.Coordinator.ActiveAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary Clock in
// @Tags tracking
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.ClockInRequest true "verification bundle"
// @Success 200 {object} models.ShiftAssignment
// @Failure 409 {object} map[string]any
// @Router /api/assignments/{id}/clock-in [post]
func (h *Handler) ClockIn(c *gin.Context) {
	var req service.ClockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	a, err := h.Tracker.ClockIn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) ClockOut(c *gin.Context) {
	a, err := h.Tracker.ClockOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) BreakStart(c *gin.Context) {
	a, err := h.Tracker.BreakStart(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) BreakEnd(c *gin.Context) {
	a, err := h.Tracker.BreakEnd(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) TrackingStatus(c *gin.Context) {
	status, err := h.Tracker.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func mapStoreErr(err error, message string) error {
	if errors.Is(err, service.ErrNotFound) {
		return &service.OpError{Code: service.CodeNotFound, Message: message}
	}
	return err
}

// statusForCode maps the operation failure taxonomy onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeNotBusiness:
		return http.StatusForbidden
	case service.CodeEscrowHoldFailed:
		return http.StatusPaymentRequired
	case service.CodeIdentityFailed, service.CodeLocationFailed:
		return http.StatusForbidden
	case service.CodeShiftFull, service.CodeDuplicateApply, service.CodeInvalidState,
		service.CodeAlreadyClockedIn, service.CodeNotClockedIn, service.CodeAlreadyClockedOut,
		service.CodeTimeRestriction, service.CodeAlreadyOnBreak, service.CodeNotOnBreak:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeOpError(c *gin.Context, err error) {
	if oe, ok := service.AsOpError(err); ok {
		writeError(c, statusForCode(oe.Code), oe.Code, oe.Message, nil)
		return
	}
	writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed", err.Error())
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
