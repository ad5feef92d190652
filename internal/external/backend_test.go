package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitClaimSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/claims", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "PN-1", r.FormValue("policyNumber"))
		assert.Equal(t, "Vehicle Insurance", r.FormValue("claimType"))
		assert.Equal(t, "2025-10-01", r.FormValue("dateOfIncident"))
		assert.Equal(t, "1500.5", r.FormValue("claimedAmount"))
		assert.Equal(t, "dent", r.FormValue("description"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.pdf", files[0].Filename)
		assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))
		f, err := files[1].Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "img", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"claim":{"id":"C-ABCDEF12","policyNumber":"PN-1"}}`))
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{BaseURL: srv.URL + "/"})
	ack, err := b.SubmitClaim(context.Background(), Submission{
		PolicyNumber:   "PN-1",
		ClaimType:      "Vehicle Insurance",
		DateOfIncident: "2025-10-01",
		ClaimedAmount:  1500.5,
		Description:    "dent",
		Files: []Upload{
			{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
			{Name: "b.png", Data: []byte("img")},
		},
	})
	require.NoError(t, err)
	assert.True(t, ack.OK)
	assert.JSONEq(t, `{"id":"C-ABCDEF12","policyNumber":"PN-1"}`, string(ack.Claim))
}

func TestBackendNonSuccessIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{BaseURL: srv.URL})
	_, err := b.SubmitClaim(context.Background(), Submission{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "nope", se.Body)
}

func TestBackendDisabledWithoutBaseURL(t *testing.T) {
	b := NewBackend(BackendConfig{})
	assert.False(t, b.Enabled())

	_, err := b.SubmitClaim(context.Background(), Submission{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, b.NotifyDecision(context.Background(), Decision{}), ErrNotConfigured)
	_, err = b.CreateTopic(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNotifyDecisionPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/claims/decision", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	amount := 75000.0
	b := NewBackend(BackendConfig{BaseURL: srv.URL})
	require.NoError(t, b.NotifyDecision(context.Background(), Decision{
		ClaimID:        "C-1024",
		CustomerID:     "user-2",
		Decision:       "approved",
		ApprovedAmount: &amount,
		Reason:         "Meets policy terms",
	}))

	assert.Equal(t, "C-1024", got["claim_id"])
	assert.Equal(t, "approved", got["decision"])
	assert.Equal(t, 75000.0, got["approved_amount"])
	_, hasTopic := got["topic_id"]
	assert.False(t, hasTopic)
}

func TestCreateTopicReadsTopicID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/create-topic", r.URL.Path)
		_, _ = w.Write([]byte(`{"topic_id":"0.0.4242"}`))
	}))
	defer srv.Close()

	topic, err := NewBackend(BackendConfig{BaseURL: srv.URL}).CreateTopic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.0.4242", topic)
}

func TestLedgerHelpers(t *testing.T) {
	assert.Equal(t, "motor", LedgerType("Vehicle Insurance"))
	assert.Equal(t, "health", LedgerType("Auto Insurance"))
	assert.Equal(t, "health", LedgerType("Health Insurance"))

	docs := LedgerDocuments([]Upload{{Name: "a.txt", Data: []byte("hi")}})
	require.Len(t, docs, 1)
	assert.Equal(t, "aGk=", docs[0].ContentBase64)
}
