package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"claims-portal/internal/assistant"
	"claims-portal/internal/domain"
	"claims-portal/internal/metrics"
	"claims-portal/internal/service"
	"claims-portal/internal/session"
	"claims-portal/internal/storage"
)

type Config struct {
	Sessions  *session.Manager
	Identity  service.IdentityService
	Intake    *service.Intake
	Storage   storage.Service
	Assistant *assistant.Assistant

	CORSOrigin string
	// MaxUploadBytes bounds a single uploaded document.
	MaxUploadBytes int64
	// AIRate and AIBurst limit chat and analysis calls per session.
	AIRate  rate.Limit
	AIBurst int
	Logger  *logrus.Logger
}

// Handler wires HTTP routes to the portal's session-scoped services.
type Handler struct {
	sessions  *session.Manager
	identity  service.IdentityService
	intake    *service.Intake
	storage   storage.Service
	assistant *assistant.Assistant

	corsOrigin string
	maxUpload  int64
	aiLimiter  *RateLimiter
	logger     *logrus.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if strings.TrimSpace(cfg.CORSOrigin) == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.AIRate <= 0 {
		cfg.AIRate = 1
	}
	if cfg.AIBurst <= 0 {
		cfg.AIBurst = 3
	}
	h := &Handler{
		sessions:   cfg.Sessions,
		identity:   cfg.Identity,
		intake:     cfg.Intake,
		storage:    cfg.Storage,
		assistant:  cfg.Assistant,
		corsOrigin: cfg.CORSOrigin,
		maxUpload:  cfg.MaxUploadBytes,
		aiLimiter:  NewRateLimiter(cfg.AIRate, cfg.AIBurst),
		logger:     cfg.Logger,
	}
	if h.sessions != nil {
		h.sessions.OnClose(h.aiLimiter.Forget)
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.corsOrigin), metrics.Middleware())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.GET("/routes", h.listRoutes)
		api.GET("/identities/hints", h.identityHints)
		api.POST("/session", h.createSession)
	}

	scoped := api.Group("", h.withSession())
	{
		scoped.GET("/session", h.getSession)
		scoped.DELETE("/session", h.deleteSession)
		scoped.POST("/login", h.login)
		scoped.POST("/logout", h.logout)
		scoped.GET("/chat", h.chatGreeting)
		scoped.POST("/chat", h.limitAI(), h.chat)
	}

	customer := scoped.Group("/customer", requireRole(domain.RoleCustomer))
	{
		customer.GET("/claims", h.listCustomerClaims)
		customer.POST("/claims", h.createClaim)
	}

	approver := scoped.Group("/approver", requireRole(domain.RoleApprover))
	{
		approver.GET("/claims", h.listApproverClaims)
		approver.GET("/claims/:id", h.getClaim)
		approver.POST("/claims/:id/decision", h.decideClaim)
		approver.POST("/claims/:id/analysis", h.limitAI(), h.analyzeClaim)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type RouteResponse struct {
	Route domain.Route  `json:"route"`
	Roles []domain.Role `json:"roles"`
}

func (h *Handler) listRoutes(c *gin.Context) {
	resp := make([]RouteResponse, len(domain.Routes))
	for i, r := range domain.Routes {
		roles := r.Roles
		if roles == nil {
			roles = []domain.Role{}
		}
		resp[i] = RouteResponse{Route: r.Route, Roles: roles}
	}
	c.JSON(http.StatusOK, resp)
}

// identityHints returns one email per role for the login form's quick fill.
func (h *Handler) identityHints(c *gin.Context) {
	users, err := h.identity.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hints := gin.H{}
	for _, u := range users {
		if _, ok := hints[string(u.Role)]; !ok {
			hints[string(u.Role)] = u.Email
		}
	}
	c.JSON(http.StatusOK, hints)
}
