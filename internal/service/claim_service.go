package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"claims-portal/internal/dispatch"
	"claims-portal/internal/domain"
	"claims-portal/internal/external"
	"claims-portal/internal/metrics"
	"claims-portal/internal/repository"
)

var (
	ErrInvalidStatus = errors.New("invalid claim status")
	ErrInvalidDraft  = errors.New("invalid claim")
)

const (
	defaultDocumentName = "document"
	defaultDocumentType = "application/octet-stream"

	maxIDAttempts = 64
)

// ClaimService is the lifecycle manager for one session's claims.
type ClaimService interface {
	ListClaims(ctx context.Context) ([]domain.Claim, error)
	GetClaim(ctx context.Context, id string) (*domain.Claim, error)
	CreateClaim(ctx context.Context, owner *domain.User, draft domain.ClaimDraft) (*domain.Claim, error)
	// IngestExternalClaim adds a claim acknowledged by the backend. It returns
	// (nil, nil) when owner is nil or raw is empty.
	IngestExternalClaim(ctx context.Context, owner *domain.User, raw json.RawMessage) (*domain.Claim, error)
	// UpdateClaimStatus appends a history entry. An unknown id is not an error
	// and yields (nil, nil).
	UpdateClaimStatus(ctx context.Context, id string, status domain.ClaimStatus, notes string) (*domain.Claim, error)
}

type ClaimConfig struct {
	// SubmitDelay simulates the round-trip of a local submission.
	SubmitDelay time.Duration
	// CustomerID overrides the policyholder id in decision notifications.
	CustomerID string
	Now        func() time.Time
	// NewID returns a candidate local claim id; collisions are retried.
	NewID  func() string
	Logger *logrus.Logger
}

type claimService struct {
	cfg        ClaimConfig
	claims     repository.ClaimRepository
	backend    Backend
	dispatcher dispatch.Dispatcher
}

// NewClaimService wires a claim store to the decision backend. backend and
// dispatcher may be nil, in which case no notifications are sent.
func NewClaimService(cfg ClaimConfig, claims repository.ClaimRepository, backend Backend, dispatcher dispatch.Dispatcher) ClaimService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = LocalClaimID
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &claimService{
		cfg:        cfg,
		claims:     claims,
		backend:    backend,
		dispatcher: dispatcher,
	}
}

// LocalClaimID returns C-NNNN with four random digits.
func LocalClaimID() string {
	return fmt.Sprintf("C-%d", 1000+rand.IntN(9000))
}

func (s *claimService) ListClaims(ctx context.Context) ([]domain.Claim, error) {
	return s.claims.List(ctx)
}

func (s *claimService) GetClaim(ctx context.Context, id string) (*domain.Claim, error) {
	return s.claims.Get(ctx, id)
}

func (s *claimService) CreateClaim(ctx context.Context, owner *domain.User, draft domain.ClaimDraft) (*domain.Claim, error) {
	if owner == nil {
		return nil, ErrNotAuthenticated
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	if s.cfg.SubmitDelay > 0 {
		timer := time.NewTimer(s.cfg.SubmitDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	id, err := s.uniqueID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now().UTC()
	claim := domain.Claim{
		ID:               id,
		PolicyNumber:     strings.TrimSpace(draft.PolicyNumber),
		PolicyholderID:   owner.ID,
		PolicyholderName: owner.Name,
		ClaimType:        strings.TrimSpace(draft.ClaimType),
		DateOfIncident:   strings.TrimSpace(draft.DateOfIncident),
		ClaimedAmount:    draft.ClaimedAmount,
		Description:      strings.TrimSpace(draft.Description),
		Documents:        append([]domain.ClaimFile{}, draft.Documents...),
		Status:           domain.ClaimStatusSubmitted,
		StatusHistory: []domain.ClaimStatusUpdate{
			{Status: domain.ClaimStatusSubmitted, Timestamp: now},
		},
	}

	if err := s.claims.Insert(ctx, claim); err != nil {
		return nil, err
	}
	metrics.ClaimCreated("local")
	s.cfg.Logger.WithFields(logrus.Fields{"claim_id": id, "user_id": owner.ID}).Info("claim created")
	return &claim, nil
}

// ValidateDraft checks the fields a customer must supply.
func ValidateDraft(draft domain.ClaimDraft) error {
	var missing []string
	if strings.TrimSpace(draft.PolicyNumber) == "" {
		missing = append(missing, "policy number")
	}
	if strings.TrimSpace(draft.ClaimType) == "" {
		missing = append(missing, "claim type")
	}
	if strings.TrimSpace(draft.DateOfIncident) == "" {
		missing = append(missing, "date of incident")
	}
	if strings.TrimSpace(draft.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidDraft, strings.Join(missing, ", "))
	}
	if draft.ClaimedAmount < 0 || math.IsNaN(draft.ClaimedAmount) || math.IsInf(draft.ClaimedAmount, 0) {
		return fmt.Errorf("%w: claimed amount must be a non-negative number", ErrInvalidDraft)
	}
	return nil
}

func (s *claimService) uniqueID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.cfg.NewID()
		exists, err := s.claims.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique claim id after %d attempts", maxIDAttempts)
}

func (s *claimService) IngestExternalClaim(ctx context.Context, owner *domain.User, raw json.RawMessage) (*domain.Claim, error) {
	if owner == nil || len(raw) == 0 {
		return nil, nil
	}
	rec := gjson.ParseBytes(raw)
	if !rec.IsObject() {
		return nil, nil
	}

	claim := NormalizeExternalClaim(rec, owner, s.cfg.Now().UTC())
	if claim.ID == "" {
		id, err := s.uniqueID(ctx)
		if err != nil {
			return nil, err
		}
		claim.ID = id
	}

	logger := s.cfg.Logger.WithFields(logrus.Fields{"claim_id": claim.ID, "user_id": owner.ID})

	existing, err := s.claims.Get(ctx, claim.ID)
	switch {
	case err == nil && existing.PolicyholderID == owner.ID:
		logger.Info("claim already ingested")
		return existing, nil
	case err == nil:
		// The id belongs to someone else's claim; keep both.
		id, err := s.uniqueID(ctx)
		if err != nil {
			return nil, err
		}
		logger.WithField("local_id", id).Warn("external claim id already taken, assigned a local id")
		claim.ID = id
		logger = logger.WithField("claim_id", id)
	case !errors.Is(err, repository.ErrClaimNotFound):
		return nil, err
	}

	if err := s.claims.Insert(ctx, claim); err != nil {
		return nil, err
	}
	metrics.ClaimCreated("external")
	logger.Info("external claim ingested")
	return &claim, nil
}

// NormalizeExternalClaim maps an untyped backend record onto a Claim owned by
// owner. Missing fields get defaults; the status always starts over at Submitted.
func NormalizeExternalClaim(rec gjson.Result, owner *domain.User, now time.Time) domain.Claim {
	claim := domain.Claim{
		ID:               scalarString(rec.Get("id")),
		PolicyNumber:     scalarString(rec.Get("policyNumber")),
		PolicyholderID:   owner.ID,
		PolicyholderName: owner.Name,
		ClaimType:        scalarString(rec.Get("claimType")),
		DateOfIncident:   scalarString(rec.Get("dateOfIncident")),
		ClaimedAmount:    number(rec.Get("claimedAmount")),
		Description:      scalarString(rec.Get("description")),
		Documents:        []domain.ClaimFile{},
		Status:           domain.ClaimStatusSubmitted,
		StatusHistory: []domain.ClaimStatusUpdate{
			{Status: domain.ClaimStatusSubmitted, Timestamp: now},
		},
	}

	if docs := rec.Get("documents"); docs.IsArray() {
		for _, d := range docs.Array() {
			doc := domain.ClaimFile{
				Name: scalarString(d.Get("name")),
				Type: scalarString(d.Get("type")),
				URL:  scalarString(d.Get("url")),
			}
			if doc.Name == "" {
				doc.Name = defaultDocumentName
			}
			if doc.Type == "" {
				doc.Type = defaultDocumentType
			}
			if size := d.Get("size"); size.Type == gjson.Number && size.Int() > 0 {
				doc.Size = size.Int()
			}
			claim.Documents = append(claim.Documents, doc)
		}
	}

	// Any non-zero number counts as flagged.
	if f := rec.Get("fraud"); f.Type == gjson.Number {
		v := 0
		if f.Float() != 0 {
			v = 1
		}
		claim.Fraud = &v
	}

	if bc := rec.Get("blockchain"); bc.IsObject() {
		claim.Ledger = &domain.LedgerRef{
			TopicID:       scalarString(bc.Get("topic_id")),
			TransactionID: scalarString(bc.Get("transaction_id")),
			Raw:           json.RawMessage(bc.Raw),
		}
		if claim.Ledger.TransactionID == "" {
			claim.Ledger.TransactionID = scalarString(bc.Get("tx_id"))
		}
	}

	return claim
}

func scalarString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return ""
	}
}

func number(r gjson.Result) float64 {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (s *claimService) UpdateClaimStatus(ctx context.Context, id string, status domain.ClaimStatus, notes string) (*domain.Claim, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	notes = strings.TrimSpace(notes)
	logger := s.cfg.Logger.WithFields(logrus.Fields{"claim_id": id, "status": status})

	current, err := s.claims.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrClaimNotFound) {
		return nil, err
	}

	// the notification goes out before the local change and never gates it
	if status.Resolved() {
		s.notifyDecision(id, current, status, notes)
	}

	if current == nil {
		logger.Info("status update for unknown claim ignored")
		return nil, nil
	}

	update := domain.ClaimStatusUpdate{
		Status:    status,
		Timestamp: s.cfg.Now().UTC(),
		Notes:     notes,
	}
	if update.Notes == "" {
		update.Notes = defaultStatusNote(status)
	}

	updated, err := s.claims.AppendStatus(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return nil, nil
		}
		return nil, err
	}
	metrics.StatusTransition(string(status))
	logger.Info("claim status updated")
	return updated, nil
}

func defaultStatusNote(status domain.ClaimStatus) string {
	switch status {
	case domain.ClaimStatusApproved:
		return "Claim approved by approver."
	case domain.ClaimStatusRejected:
		return "Claim rejected by approver."
	default:
		return ""
	}
}

func (s *claimService) notifyDecision(id string, claim *domain.Claim, status domain.ClaimStatus, notes string) {
	if s.backend == nil || !s.backend.Enabled() || s.dispatcher == nil {
		return
	}

	d := external.Decision{
		ClaimID:    id,
		CustomerID: s.cfg.CustomerID,
		Reason:     notes,
	}
	if status == domain.ClaimStatusApproved {
		d.Decision = "approved"
		amount := 0.0
		if claim != nil {
			amount = claim.ClaimedAmount
		}
		d.ApprovedAmount = &amount
		if d.Reason == "" {
			d.Reason = "Meets policy terms"
		}
	} else {
		d.Decision = "rejected"
		if d.Reason == "" {
			d.Reason = "Rejected by approver"
		}
	}
	if claim != nil {
		if d.CustomerID == "" {
			d.CustomerID = claim.PolicyholderID
		}
		if claim.Ledger != nil {
			d.TopicID = claim.Ledger.TopicID
		}
	}

	backend := s.backend
	s.dispatcher.Go("decision", logrus.Fields{"claim_id": id, "decision": d.Decision}, func(ctx context.Context) error {
		return backend.NotifyDecision(ctx, d)
	})
}
