package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// EnrollmentHandler exposes the enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	enrollments *usecase.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *usecase.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// RegisterUserRoutes binds the per-account enrollment routes under the user
// resource. RegisterEnrollmentRoutes binds the enrollment-id routes.
func (h *EnrollmentHandler) RegisterUserRoutes(r *gin.RouterGroup) {
	r.POST("/:userId/inscripciones", h.enroll)
	r.GET("/:userId/inscripciones", h.listByAccount)
}

// RegisterEnrollmentRoutes binds routes addressed by enrollment id.
func (h *EnrollmentHandler) RegisterEnrollmentRoutes(r *gin.RouterGroup) {
	r.PUT("/:enrollmentId/estado", h.updateStatus)
	r.PUT("/:enrollmentId/modulos", h.upsertModuleProgress)
}

var enrollmentErrorCases = []ErrorCase{
	{Err: domain.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"},
	{Err: domain.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrEnrollmentNotFound, Status: http.StatusNotFound, Message: "enrollment not found"},
	{Err: usecase.ErrDuplicateEnrollment, Status: http.StatusConflict, Message: "already enrolled in course"},
	{Err: usecase.ErrInvalidStatus, Status: http.StatusBadRequest, Message: "invalid enrollment status"},
}

func (h *EnrollmentHandler) enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"), req.CourseID)
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not create enrollment")
		return
	}

	c.JSON(http.StatusCreated, enrollmentView(*enrollment))
}

func (h *EnrollmentHandler) listByAccount(c *gin.Context) {
	enrollments, err := h.enrollments.ListByAccount(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not list enrollments")
		return
	}

	c.JSON(http.StatusOK, enrollmentViews(enrollments))
}

func (h *EnrollmentHandler) updateStatus(c *gin.Context) {
	var req EnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid status payload"))
		return
	}

	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), middleware.GetIdentity(c),
		c.Param("enrollmentId"), domain.EnrollmentStatus(req.Status))
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not update enrollment")
		return
	}

	c.JSON(http.StatusOK, enrollmentView(*enrollment))
}

func (h *EnrollmentHandler) upsertModuleProgress(c *gin.Context) {
	var req ModuleProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid module progress payload"))
		return
	}

	enrollment, err := h.enrollments.UpsertModuleProgress(c.Request.Context(), middleware.GetIdentity(c),
		c.Param("enrollmentId"), usecase.ModuleProgressInput{
			ModuleID:          req.ModuleID,
			Status:            domain.EnrollmentStatus(req.Status),
			CompletedChapters: req.CompletedChapters,
		})
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not record module progress")
		return
	}

	c.JSON(http.StatusOK, enrollmentView(*enrollment))
}
