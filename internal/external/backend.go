// Package external holds clients for the services the portal talks to but
// does not own: the claims backend with its ledger endpoints, and Gemini.
package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxErrorBody = 512

// Upload is a file attached to a submission.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Submission is the multipart claim form sent to the backend.
type Submission struct {
	PolicyNumber   string
	ClaimType      string
	DateOfIncident string
	ClaimedAmount  float64
	Description    string
	Files          []Upload
}

// Ack is the backend's answer to a submission. Claim is left untyped; the
// claim service normalizes it.
type Ack struct {
	OK    bool
	Claim json.RawMessage
}

// Decision is an approve/reject notification.
type Decision struct {
	ClaimID        string   `json:"claim_id"`
	CustomerID     string   `json:"customer_id"`
	TopicID        string   `json:"topic_id,omitempty"`
	Decision       string   `json:"decision"`
	ApprovedAmount *float64 `json:"approved_amount,omitempty"`
	Reason         string   `json:"reason"`
}

type LedgerDocument struct {
	Filename      string `json:"filename"`
	ContentBase64 string `json:"content_base64"`
}

type LedgerMetadata struct {
	Type          string  `json:"type"`
	SubmittedBy   string  `json:"submitted_by"`
	IncidentDate  string  `json:"incident_date"`
	ClaimedAmount float64 `json:"claimed_amount"`
	PolicyNumber  string  `json:"policy_number"`
	Description   string  `json:"description"`
}

// LedgerSubmission registers a claim's documents with the ledger service.
type LedgerSubmission struct {
	CustomerID string           `json:"customer_id"`
	ClaimID    string           `json:"claim_id"`
	TopicID    string           `json:"topic_id,omitempty"`
	Documents  []LedgerDocument `json:"documents"`
	Metadata   LedgerMetadata   `json:"metadata"`
}

type ExtractedFields struct {
	ChassisNumber      string `json:"chassis_number"`
	EngineNumber       string `json:"engine_number"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Year               int    `json:"year"`
	RegistrationNumber string `json:"registration_number"`
	PolicyNumber       string `json:"policy_number"`
}

type Extraction struct {
	ClaimID    string          `json:"claim_id"`
	CustomerID string          `json:"customer_id"`
	TopicID    string          `json:"topic_id,omitempty"`
	Extracted  ExtractedFields `json:"extracted"`
}

// LedgerDocuments encodes uploads the way the ledger endpoint expects them.
func LedgerDocuments(files []Upload) []LedgerDocument {
	docs := make([]LedgerDocument, 0, len(files))
	for _, f := range files {
		docs = append(docs, LedgerDocument{
			Filename:      f.Name,
			ContentBase64: base64.StdEncoding.EncodeToString(f.Data),
		})
	}
	return docs
}

// LedgerType maps a free-text claim type onto the ledger's categories.
func LedgerType(claimType string) string {
	if strings.Contains(strings.ToLower(claimType), "vehicle") {
		return "motor"
	}
	return "health"
}

// Backend calls the claims backend. A zero base URL disables every call.
type Backend struct {
	baseURL    string
	httpClient *http.Client
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewBackend(cfg BackendConfig) *Backend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Backend{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a base URL is configured.
func (b *Backend) Enabled() bool {
	return b != nil && b.baseURL != ""
}

// SubmitClaim posts the claim form to /api/claims.
func (b *Backend) SubmitClaim(ctx context.Context, sub Submission) (*Ack, error) {
	if !b.Enabled() {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ key, value string }{
		{"policyNumber", sub.PolicyNumber},
		{"claimType", sub.ClaimType},
		{"dateOfIncident", sub.DateOfIncident},
		{"claimedAmount", strconv.FormatFloat(sub.ClaimedAmount, 'f', -1, 64)},
		{"description", sub.Description},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.key, err)
		}
	}
	for _, f := range sub.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	body, err := b.do(ctx, "/api/claims", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(body)
	ack := &Ack{OK: res.Get("ok").Bool()}
	if claim := res.Get("claim"); claim.Exists() && claim.Type != gjson.Null {
		ack.Claim = json.RawMessage(claim.Raw)
	}
	return ack, nil
}

// NotifyDecision posts an approve/reject outcome. The response body is ignored.
func (b *Backend) NotifyDecision(ctx context.Context, d Decision) error {
	_, err := b.postJSON(ctx, "/api/claims/decision", d)
	return err
}

// CreateTopic asks the ledger service for a new topic and returns its id,
// which may be empty if the service did not supply one.
func (b *Backend) CreateTopic(ctx context.Context) (string, error) {
	if !b.Enabled() {
		return "", ErrNotConfigured
	}
	body, err := b.do(ctx, "/api/create-topic", "", nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "topic_id").String(), nil
}

func (b *Backend) SubmitLedger(ctx context.Context, s LedgerSubmission) error {
	_, err := b.postJSON(ctx, "/api/claims/submit", s)
	return err
}

func (b *Backend) Extract(ctx context.Context, e Extraction) error {
	_, err := b.postJSON(ctx, "/api/claims/extract", e)
	return err
}

func (b *Backend) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	if !b.Enabled() {
		return nil, ErrNotConfigured
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b.do(ctx, path, "application/json", bytes.NewReader(data))
}

func (b *Backend) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
