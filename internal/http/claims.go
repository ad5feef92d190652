package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
	"claims-portal/internal/service"
	"claims-portal/internal/session"
	"claims-portal/internal/storage"
	"claims-portal/internal/view"
)

const submissionFailedMessage = "Failed to submit claim. Please try again."

func (h *Handler) listCustomerClaims(c *gin.Context) {
	ctrl := sessionFrom(c)
	user := ctrl.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"redirect": domain.RouteLogin})
		return
	}
	claims, err := ctrl.Claims().ListClaims(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	own := view.ForPolicyholder(claims, user.ID)
	c.JSON(http.StatusOK, gin.H{"claims": view.Summaries(own, false)})
}

func (h *Handler) createClaim(c *gin.Context) {
	ctrl := sessionFrom(c)
	// The user may log out in another tab after the role guard ran.
	user := ctrl.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"redirect": domain.RouteLogin})
		return
	}

	done, err := ctrl.Begin()
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a claim submission is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer done()

	draft, err := draftFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uploads, err := h.uploadsFromForm(c)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := h.intake.Submit(c.Request.Context(), ctrl.Claims(), user, draft, uploads)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDraft):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, storage.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrSubmissionFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": submissionFailedMessage})
		case errors.Is(err, service.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"redirect": domain.RouteLogin})
		default:
			h.logger.WithField("user_id", user.ID).Errorf("create claim: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"claim": view.Summarize(*claim, false),
		"route": domain.RouteCustomerDashboard,
	})
}

func draftFromForm(c *gin.Context) (domain.ClaimDraft, error) {
	draft := domain.ClaimDraft{
		PolicyNumber:   strings.TrimSpace(c.PostForm("policyNumber")),
		ClaimType:      strings.TrimSpace(c.PostForm("claimType")),
		DateOfIncident: strings.TrimSpace(c.PostForm("dateOfIncident")),
		Description:    strings.TrimSpace(c.PostForm("description")),
	}

	raw := strings.TrimSpace(c.PostForm("claimedAmount"))
	if raw == "" {
		return draft, errors.New("claimed amount is required")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return draft, fmt.Errorf("claimed amount %q is not a number", raw)
	}
	draft.ClaimedAmount = amount
	return draft, nil
}

func (h *Handler) uploadsFromForm(c *gin.Context) ([]storage.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("read form: %w", err)
	}

	headers := form.File["files"]
	uploads := make([]storage.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxUpload {
			return nil, fmt.Errorf("%w: %s", storage.ErrTooLarge, fh.Filename)
		}
		data, err := readFormFile(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, storage.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func (h *Handler) listApproverClaims(c *gin.Context) {
	ctrl := sessionFrom(c)
	claims, err := ctrl.Claims().ListClaims(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tab := view.ParseTab(c.Query("tab"))
	c.JSON(http.StatusOK, gin.H{
		"tab":    tab,
		"claims": view.Summaries(view.ForTab(claims, tab), true),
		"counts": gin.H{
			string(view.TabPending):  len(view.Pending(claims)),
			string(view.TabResolved): len(view.Resolved(claims)),
		},
	})
}

func (h *Handler) getClaim(c *gin.Context) {
	ctrl := sessionFrom(c)
	claim, err := ctrl.Claims().GetClaim(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.claimError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Describe(*claim, h.linker(c.Request.Context())))
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *Handler) decideClaim(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := domain.ParseClaimStatus(req.Decision)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown decision %q", req.Decision)})
		return
	}

	ctrl := sessionFrom(c)
	id := c.Param("id")
	claim, err := ctrl.Claims().UpdateClaimStatus(c.Request.Context(), id, status, strings.TrimSpace(req.Notes))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if claim == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": repository.ErrClaimNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, view.Describe(*claim, h.linker(c.Request.Context())))
}

func (h *Handler) claimError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// linker resolves stored document references into openable URLs.
func (h *Handler) linker(ctx context.Context) func(domain.ClaimFile) string {
	if h.storage == nil {
		return nil
	}
	return func(f domain.ClaimFile) string {
		url, err := h.storage.Link(ctx, f)
		if err != nil {
			h.logger.WithField("document", f.Name).Warnf("link document: %v", err)
			return ""
		}
		return url
	}
}
