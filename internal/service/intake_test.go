package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-portal/internal/external"
	"claims-portal/internal/storage"
)

func TestIntakeCreatesLocallyWithoutBackend(t *testing.T) {
	f := newFixture(t, nil, "C-3001")
	intake := NewIntake(external.NewBackend(external.BackendConfig{}), storage.NewInlineService(1024), nil, quietLogger())

	claim, err := intake.Submit(context.Background(), f.svc, f.users["customer@example.com"], validDraft(), []storage.Upload{
		{Name: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)

	assert.Equal(t, "C-3001", claim.ID)
	require.Len(t, claim.Documents, 1)
	assert.Equal(t, "receipt.pdf", claim.Documents[0].Name)
	assert.True(t, strings.HasPrefix(claim.Documents[0].DataURL, "data:application/pdf;base64,"))
}

func TestIntakeRejectsOversizedDocument(t *testing.T) {
	f := newFixture(t, nil)
	intake := NewIntake(nil, storage.NewInlineService(2), nil, quietLogger())

	_, err := intake.Submit(context.Background(), f.svc, f.users["customer@example.com"], validDraft(), []storage.Upload{
		{Name: "big.bin", Data: []byte("abc")},
	})
	assert.ErrorIs(t, err, storage.ErrTooLarge)
}

func TestIntakeForwardsToBackendAndSyncsLedger(t *testing.T) {
	var mu sync.Mutex
	paths := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/claims":
			_, _ = w.Write([]byte(`{"ok":true,"claim":{"id":"C-DEADBEEF","policyNumber":"PN-HEALTH-0001","claimType":"Health Insurance","claimedAmount":12000,"blockchain":{"topic_id":"0.0.9"}}}`))
		case "/api/create-topic":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	backend := external.NewBackend(external.BackendConfig{BaseURL: srv.URL})
	f := newFixture(t, backend)
	ledger := NewLedgerSync(backend, f.dispatcher, "", quietLogger())
	intake := NewIntake(backend, storage.NewInlineService(0), ledger, quietLogger())

	claim, err := intake.Submit(context.Background(), f.svc, f.users["customer@example.com"], validDraft(), []storage.Upload{
		{Name: "scan.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "C-DEADBEEF", claim.ID)
	assert.Equal(t, "user-1", claim.PolicyholderID)

	f.dispatcher.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/claims", "/api/create-topic", "/api/claims/submit", "/api/claims/extract"}, paths)
}

func TestIntakeSurfacesBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend := external.NewBackend(external.BackendConfig{BaseURL: srv.URL})
	f := newFixture(t, backend)
	intake := NewIntake(backend, storage.NewInlineService(0), nil, quietLogger())

	_, err := intake.Submit(context.Background(), f.svc, f.users["customer@example.com"], validDraft(), nil)
	assert.ErrorIs(t, err, ErrSubmissionFailed)

	claims, err := f.svc.ListClaims(context.Background())
	require.NoError(t, err)
	assert.Len(t, claims, 4)
}

func TestLedgerSyncPayloads(t *testing.T) {
	rb := newRecordingBackend(t)
	backend := external.NewBackend(external.BackendConfig{BaseURL: rb.srv.URL})
	f := newFixture(t, backend)

	claims, err := f.svc.ListClaims(context.Background())
	require.NoError(t, err)
	claim := claims[0]

	NewLedgerSync(backend, nil, "cust-7", quietLogger()).Run(context.Background(), claim, []external.Upload{{Name: "a.txt", Data: []byte("hi")}})

	submits := rb.calls("/api/claims/submit")
	require.Len(t, submits, 1)
	assert.Equal(t, "cust-7", submits[0]["customer_id"])
	assert.Equal(t, "0.0.777", submits[0]["topic_id"])
	meta := submits[0]["metadata"].(map[string]any)
	assert.Equal(t, "health", meta["type"])
	assert.Equal(t, "customer", meta["submitted_by"])

	extracts := rb.calls("/api/claims/extract")
	require.Len(t, extracts, 1)
	fields := extracts[0]["extracted"].(map[string]any)
	assert.Equal(t, "CHS1234567890", fields["chassis_number"])
	assert.Equal(t, claim.PolicyNumber, fields["policy_number"])
}
