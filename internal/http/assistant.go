package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"claims-portal/internal/assistant"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chatGreeting(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"greeting": assistant.Greeting})
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.assistant.Chat(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) analyzeClaim(c *gin.Context) {
	ctrl := sessionFrom(c)
	claim, err := ctrl.Claims().GetClaim(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.claimError(c, err)
		return
	}
	if !claim.Status.Pending() {
		c.JSON(http.StatusConflict, gin.H{"error": "only pending claims can be analyzed"})
		return
	}

	analysis, err := h.assistant.Analyze(c.Request.Context(), *claim)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"claimId": claim.ID, "analysis": analysis})
}
