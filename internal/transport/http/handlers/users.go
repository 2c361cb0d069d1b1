package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// UserHandler exposes account administration endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds account administration routes.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.GET("/:userId", h.get)
	r.PUT("/:userId", h.update)
	r.DELETE("/:userId", h.remove)
}

var userErrorCases = []ErrorCase{
	{Err: domain.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"},
	{Err: domain.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid role"},
}

func (h *UserHandler) list(c *gin.Context) {
	accounts, err := h.users.List(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "could not list accounts")
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, accountSummary(account))
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *UserHandler) get(c *gin.Context) {
	account, err := h.users.Get(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "could not load account")
		return
	}

	c.JSON(http.StatusOK, accountSummary(*account))
}

func (h *UserHandler) update(c *gin.Context) {
	var req AccountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid account payload"))
		return
	}

	account, err := h.users.Update(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"), usecase.AccountUpdate{
		FullName: req.FullName,
		Role:     req.Role,
		Enabled:  req.Enabled,
	})
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "could not update account")
		return
	}

	c.JSON(http.StatusOK, accountSummary(*account))
}

func (h *UserHandler) remove(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId")); err != nil {
		RespondWithMappedError(c, err, userErrorCases, http.StatusInternalServerError, "could not delete account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}
