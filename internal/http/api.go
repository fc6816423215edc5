package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-lifecycle/internal/auth"
	"user-lifecycle/internal/domain"
	"user-lifecycle/internal/service"
)

// Handler wires HTTP routes to the user service.
type Handler struct {
	users        service.UserService
	tokens       auth.TokenIssuer
	logger       *logrus.Logger
	protectAdmin bool
}

func NewHandler(users service.UserService, tokens auth.TokenIssuer, logger *logrus.Logger, protectAdmin bool) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:        users,
		tokens:       tokens,
		logger:       logger,
		protectAdmin: protectAdmin,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	users := api.Group("/users")
	{
		users.POST("/register", h.register)
		users.POST("/login", h.login)
	}

	admin := users.Group("")
	if h.protectAdmin {
		admin.Use(requireSession(h.tokens))
	}
	{
		admin.GET("", h.listUsers)
		admin.GET("/inactive", h.listInactive)
		admin.GET("/:id", h.getUser)
		admin.PUT("/:id/deactivate", h.deactivate)
		admin.DELETE("/:id", h.deleteUser)
	}
}

type registerRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	Sex      string  `json:"sex"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public projection of a user. It never carries the password hash.
type UserResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
	Sex       string  `json:"sex"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
}

type SessionResponse struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	IssuedAt  string `json:"issuedAt"`
	ExpiresAt string `json:"expiresAt"`
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Height:   req.Height,
		Weight:   req.Weight,
		Sex:      req.Sex,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data": gin.H{
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}

	succeed(c, http.StatusOK, SessionResponse{
		UserID:    session.UserID,
		Username:  session.Username,
		Email:     session.Email,
		Token:     session.Token,
		IssuedAt:  session.IssuedAt.Format(time.RFC3339),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	succeed(c, http.StatusOK, usersToResponse(users))
}

func (h *Handler) listInactive(c *gin.Context) {
	users, err := h.users.ListInactive(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	succeed(c, http.StatusOK, usersToResponse(users))
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	succeed(c, http.StatusOK, userToResponse(*user))
}

func (h *Handler) deactivate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	id, err := h.users.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	succeed(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteByID(c.Request.Context(), id); err != nil {
		h.renderError(c, err)
		return
	}
	succeed(c, http.StatusOK, gin.H{"deleted": id})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

// renderError maps the service error kinds to status codes. Internal failures
// are logged and answered with a generic message.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		fail(c, http.StatusBadRequest, domain.ErrDuplicateEmail.Error())
	case errors.Is(err, domain.ErrInvalidCredential):
		fail(c, http.StatusUnauthorized, domain.ErrInvalidCredential.Error())
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, domain.ErrNotFound.Error())
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func succeed(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Height:    user.Height,
		Weight:    user.Weight,
		Sex:       user.Sex,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func usersToResponse(users []domain.User) []UserResponse {
	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	return resp
}
