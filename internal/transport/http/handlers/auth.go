package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// AuthHandler exposes local credential endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes. loginMiddlewares and
// registerMiddlewares run ahead of the respective handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares, registerMiddlewares []gin.HandlerFunc) {
	login := append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.login)
	register := append(append([]gin.HandlerFunc{}, registerMiddlewares...), h.register)

	r.POST("/login", login...)
	r.POST("/register", register...)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is disabled"},
			{Err: domain.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req.Email, req.FullName, req.Password, req.Role)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet policy"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid role"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, authResponse(result))
}
