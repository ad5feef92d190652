package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"claims-portal/internal/domain"
	"claims-portal/internal/service"
	"claims-portal/internal/session"
)

const sessionKey = "portal.session"

const invalidCredentialsMessage = "Invalid credentials. Please try again."

type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func userToResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// withSession resolves the bearer token into the session's controller.
func (h *Handler) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
			return
		}

		ctrl, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
			h.logger.Errorf("resolve session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Set(sessionKey, ctrl)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Controller {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	ctrl, _ := v.(*session.Controller)
	return ctrl
}

// requireRole sends anonymous users to the login view and users with another
// role to home. Only the redirect is reported.
func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user *domain.User
		if ctrl := sessionFrom(c); ctrl != nil {
			user = ctrl.CurrentUser()
		}

		redirect, ok := domain.Guard(user, roles...)
		if ok {
			c.Next()
			return
		}

		status := http.StatusForbidden
		if redirect == domain.RouteLogin {
			status = http.StatusUnauthorized
		}
		c.AbortWithStatusJSON(status, gin.H{"redirect": redirect})
	}
}

func (h *Handler) createSession(c *gin.Context) {
	ctrl, token, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.logger.Errorf("create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    ctrl.ID(),
		"token": token,
		"route": domain.RouteHome,
	})
}

func (h *Handler) getSession(c *gin.Context) {
	ctrl := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"id":      ctrl.ID(),
		"user":    userToResponse(ctrl.CurrentUser()),
		"loading": ctrl.IsLoading(),
	})
}

func (h *Handler) deleteSession(c *gin.Context) {
	ctrl := sessionFrom(c)
	if err := h.sessions.Destroy(c.Request.Context(), ctrl.ID()); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type loginRequest struct {
	Email string `json:"email"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctrl := sessionFrom(c)
	route, err := ctrl.Login(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := h.sessions.Touch(c.Request.Context(), ctrl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  userToResponse(ctrl.CurrentUser()),
		"route": route,
		"token": token,
	})
}

func (h *Handler) logout(c *gin.Context) {
	ctrl := sessionFrom(c)
	route := ctrl.Logout()

	token, err := h.sessions.Touch(c.Request.Context(), ctrl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route, "token": token})
}
