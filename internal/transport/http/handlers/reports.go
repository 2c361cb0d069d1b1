package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// ReportHandler exposes progress report endpoints.
type ReportHandler struct {
	enrollments *usecase.EnrollmentService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(enrollments *usecase.EnrollmentService) *ReportHandler {
	return &ReportHandler{enrollments: enrollments}
}

// RegisterRoutes binds the report routes.
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/usuarios/:userId", h.userProgress)
	r.GET("/cursos/:courseId", h.courseProgress)
}

func (h *ReportHandler) userProgress(c *gin.Context) {
	entries, err := h.enrollments.UserProgress(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not build user report")
		return
	}

	c.JSON(http.StatusOK, progressViews(entries))
}

func (h *ReportHandler) courseProgress(c *gin.Context) {
	entries, err := h.enrollments.CourseProgress(c.Request.Context(), middleware.GetIdentity(c), c.Param("courseId"))
	if err != nil {
		RespondWithMappedError(c, err, enrollmentErrorCases, http.StatusInternalServerError, "could not build course report")
		return
	}

	c.JSON(http.StatusOK, progressViews(entries))
}
