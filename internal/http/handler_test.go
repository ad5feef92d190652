package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"claims-portal/internal/assistant"
	"claims-portal/internal/repository"
	"claims-portal/internal/repository/memory"
	"claims-portal/internal/seed"
	"claims-portal/internal/service"
	"claims-portal/internal/session"
	"claims-portal/internal/storage"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	h, _ := newTestHandler(t)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func newTestHandler(t *testing.T) (*Handler, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := seed.Default()
	logger := quietLogger()
	identity := service.NewIdentityService(memory.NewUserRepository(fx.Users))
	tokens, err := session.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	sessions := session.NewManager(session.ManagerConfig{
		Identity: identity,
		NewClaims: func(repo repository.ClaimRepository) service.ClaimService {
			return service.NewClaimService(service.ClaimConfig{Logger: logger}, repo, nil, nil)
		},
		SeedClaims: fx.Claims,
		Tokens:     tokens,
		TTL:        time.Hour,
		Logger:     logger,
	})
	t.Cleanup(sessions.Shutdown)

	store := storage.NewInlineService(1 << 20)
	h := NewHandler(Config{
		Sessions:       sessions,
		Identity:       identity,
		Intake:         service.NewIntake(nil, store, nil, logger),
		Storage:        store,
		Assistant:      assistant.New(nil, logger),
		MaxUploadBytes: 1 << 20,
		AIRate:         rate.Every(time.Hour),
		AIBurst:        2,
		Logger:         logger,
	})
	return h, sessions
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func newSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/", body["route"])
	return body["token"].(string)
}

func loginAs(t *testing.T, router *gin.Engine, token, email string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/login", token, gin.H{"email": email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func claimIDs(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Claims []struct {
			ID string `json:"id"`
		} `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	ids := make([]string, 0, len(body.Claims))
	for _, c := range body.Claims {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestCustomerLoginSeesOwnClaims(t *testing.T) {
	router := newTestRouter(t)
	token := newSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/login", token, gin.H{"email": "customer@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/customer/dashboard", body["route"])
	assert.Equal(t, "Krit Lunkad", body["user"].(map[string]any)["name"])
	token = body["token"].(string)

	w = doJSON(t, router, http.MethodGet, "/api/customer/claims", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"C-1025"}, claimIDs(t, w))
}

func TestUnknownEmailIsRejected(t *testing.T) {
	router := newTestRouter(t)
	token := newSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/login", token, gin.H{"email": "stranger@example.com"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, invalidCredentialsMessage, body["error"])
	assert.NotContains(t, body, "route")

	w = doJSON(t, router, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["user"])
}

func TestGuardRedirects(t *testing.T) {
	router := newTestRouter(t)
	token := newSession(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/approver/claims", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, gin.H{"redirect": "/login"}, gin.H(decode(t, w)))

	token = loginAs(t, router, token, "customer@example.com")
	w = doJSON(t, router, http.MethodGet, "/api/approver/claims", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, gin.H{"redirect": "/"}, gin.H(decode(t, w)))

	w = doJSON(t, router, http.MethodGet, "/api/customer/claims", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApproveMovesClaimToResolved(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "approver@example.com")

	w := doJSON(t, router, http.MethodGet, "/api/approver/claims", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, claimIDs(t, w), "C-1024")

	w = doJSON(t, router, http.MethodPost, "/api/approver/claims/C-1024/decision", token, gin.H{"decision": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decode(t, w)
	assert.Equal(t, "Approved", detail["status"])
	assert.Empty(t, detail["actions"])
	timeline := detail["timeline"].([]any)
	latest := timeline[0].(map[string]any)
	assert.Equal(t, "Approved", latest["status"])
	assert.Equal(t, "Claim approved by approver.", latest["notes"])

	w = doJSON(t, router, http.MethodGet, "/api/approver/claims?tab=pending", token, nil)
	assert.NotContains(t, claimIDs(t, w), "C-1024")
	w = doJSON(t, router, http.MethodGet, "/api/approver/claims?tab=resolved", token, nil)
	assert.Contains(t, claimIDs(t, w), "C-1024")
}

func TestDecisionValidation(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "approver@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/approver/claims/C-1024/decision", token, gin.H{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/approver/claims/C-9999/decision", token, gin.H{"decision": "rejected"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/approver/claims/C-9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproverDetailAndAnalysis(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "approver@example.com")

	w := doJSON(t, router, http.MethodGet, "/api/approver/claims/C-1025", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, true, detail["canAnalyze"])
	assert.Contains(t, detail, "fraudBadge")

	w = doJSON(t, router, http.MethodPost, "/api/approver/claims/C-1025/analysis", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, assistant.AnalysisDisabled, decode(t, w)["analysis"])

	w = doJSON(t, router, http.MethodPost, "/api/approver/claims/C-1023/analysis", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/approver/claims/C-1025/analysis", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCreateClaimLocally(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "customer@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"policyNumber":   "PN-MOTOR-1",
		"claimType":      "Motor Vehicle",
		"dateOfIncident": "2025-10-01",
		"claimedAmount":  "25000",
		"description":    "Rear bumper damage.",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("files", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/customer/claims", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "/customer/dashboard", body["route"])
	created := body["claim"].(map[string]any)
	assert.Equal(t, "Submitted", created["status"])
	assert.Equal(t, "₹25,000", created["amountDisplay"])

	w = doJSON(t, router, http.MethodGet, "/api/customer/claims", token, nil)
	ids := claimIDs(t, w)
	require.Len(t, ids, 2)
	assert.Equal(t, created["id"], ids[0])
}

func TestCreateClaimRejectsBadAmount(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "customer@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("policyNumber", "PN-1"))
	require.NoError(t, mw.WriteField("claimedAmount", "lots"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/customer/claims", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutAndDestroy(t *testing.T) {
	router := newTestRouter(t)
	token := loginAs(t, router, newSession(t, router), "customer@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/login", body["route"])

	// the logged-in token no longer resolves
	w = doJSON(t, router, http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session expired", decode(t, w)["error"])

	token = body["token"].(string)
	w = doJSON(t, router, http.MethodGet, "/api/customer/claims", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decode(t, w)["redirect"])

	w = doJSON(t, router, http.MethodDelete, "/api/session", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCustomerHandlersWithoutUser(t *testing.T) {
	h, sessions := newTestHandler(t)
	ctrl, _, err := sessions.Create(context.Background())
	require.NoError(t, err)

	// The role guard already passed when the user logged out elsewhere.
	for name, handle := range map[string]gin.HandlerFunc{
		"list":   h.listCustomerClaims,
		"create": h.createClaim,
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/customer/claims", nil)
		c.Set(sessionKey, ctrl)

		require.NotPanics(t, func() { handle(c) }, name)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Equal(t, gin.H{"redirect": "/login"}, gin.H(decode(t, w)), name)
		assert.False(t, ctrl.IsLoading(), name)
	}
}

func TestRateLimitBucketsFollowSessions(t *testing.T) {
	h, sessions := newTestHandler(t)
	ctx := context.Background()

	a, _, err := sessions.Create(ctx)
	require.NoError(t, err)
	b, _, err := sessions.Create(ctx)
	require.NoError(t, err)

	assert.True(t, h.aiLimiter.Allow(a.ID()))
	assert.True(t, h.aiLimiter.Allow(b.ID()))
	require.Equal(t, 2, h.aiLimiter.Len())

	require.NoError(t, sessions.Destroy(ctx, a.ID()))
	assert.Equal(t, 1, h.aiLimiter.Len())

	sessions.Shutdown()
	assert.Equal(t, 0, h.aiLimiter.Len())
}

func TestRateLimiterForgetResetsBucket(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	assert.True(t, rl.Allow("s1"))
	assert.False(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s2"))

	rl.Forget("s1")
	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("s1"))
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/identities/hints", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hints := decode(t, w)
	assert.Equal(t, "customer@example.com", hints["customer"])
	assert.Equal(t, "approver@example.com", hints["approver"])

	w = doJSON(t, router, http.MethodGet, "/api/routes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/approver/dashboard")

	w = doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChat(t *testing.T) {
	router := newTestRouter(t)
	token := newSession(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/chat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, assistant.Greeting, decode(t, w)["greeting"])

	w = doJSON(t, router, http.MethodPost, "/api/chat", token, gin.H{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, assistant.ChatDisabled, decode(t, w)["reply"])

	w = doJSON(t, router, http.MethodPost, "/api/chat", token, gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
