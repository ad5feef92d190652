package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ClaimStatus string

const (
	ClaimStatusSubmitted         ClaimStatus = "Submitted"
	ClaimStatusUnderReview       ClaimStatus = "Under Review"
	ClaimStatusAIAnalysisFlagged ClaimStatus = "AI Analysis Flagged"
	ClaimStatusApproved          ClaimStatus = "Approved"
	ClaimStatusRejected          ClaimStatus = "Rejected"
)

// ClaimStatuses lists every status in lifecycle order.
var ClaimStatuses = []ClaimStatus{
	ClaimStatusSubmitted,
	ClaimStatusUnderReview,
	ClaimStatusAIAnalysisFlagged,
	ClaimStatusApproved,
	ClaimStatusRejected,
}

func (s ClaimStatus) Valid() bool {
	for _, known := range ClaimStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Pending reports whether the claim still awaits a decision.
func (s ClaimStatus) Pending() bool {
	return s == ClaimStatusSubmitted || s == ClaimStatusUnderReview || s == ClaimStatusAIAnalysisFlagged
}

// Resolved reports whether the status is terminal.
func (s ClaimStatus) Resolved() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// ParseClaimStatus accepts the display value in any case, with spaces, underscores or dashes.
func ParseClaimStatus(raw string) (ClaimStatus, bool) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(raw))
	for _, known := range ClaimStatuses {
		if strings.EqualFold(norm, string(known)) {
			return known, true
		}
	}
	return "", false
}

// ClaimFile references a supporting document. Size of zero means unknown.
type ClaimFile struct {
	Name    string
	Type    string
	Size    int64
	URL     string
	DataURL string
}

// ClaimStatusUpdate is one append-only entry of a claim's status history.
type ClaimStatusUpdate struct {
	Status    ClaimStatus
	Timestamp time.Time
	Notes     string
}

// LedgerRef is the external ledger reference echoed by the submission backend.
type LedgerRef struct {
	TopicID       string
	TransactionID string
	Raw           json.RawMessage
}

// Claim is an insurance request with its lifecycle journal.
type Claim struct {
	ID               string
	PolicyNumber     string
	PolicyholderID   string
	PolicyholderName string
	ClaimType        string
	DateOfIncident   string
	ClaimedAmount    float64
	Description      string
	Documents        []ClaimFile
	Fraud            *int
	Status           ClaimStatus
	StatusHistory    []ClaimStatusUpdate
	Ledger           *LedgerRef
}

// ClaimDraft carries the customer-supplied fields of a new claim.
type ClaimDraft struct {
	PolicyNumber   string
	ClaimType      string
	DateOfIncident string
	ClaimedAmount  float64
	Description    string
	Documents      []ClaimFile
}

var ErrEmptyHistory = errors.New("claim status history is empty")

// CheckHistory verifies that the history is non-empty and ends in the current status.
func (c Claim) CheckHistory() error {
	if len(c.StatusHistory) == 0 {
		return fmt.Errorf("claim %s: %w", c.ID, ErrEmptyHistory)
	}
	last := c.StatusHistory[len(c.StatusHistory)-1]
	if last.Status != c.Status {
		return fmt.Errorf("claim %s: status %q does not match last history entry %q", c.ID, c.Status, last.Status)
	}
	return nil
}

// LastUpdate returns the most recent history entry.
func (c Claim) LastUpdate() (ClaimStatusUpdate, bool) {
	if len(c.StatusHistory) == 0 {
		return ClaimStatusUpdate{}, false
	}
	return c.StatusHistory[len(c.StatusHistory)-1], true
}

// Clone returns a deep copy so callers never share slices with a store.
func (c Claim) Clone() Claim {
	out := c
	if c.Documents != nil {
		out.Documents = make([]ClaimFile, len(c.Documents))
		copy(out.Documents, c.Documents)
	}
	if c.StatusHistory != nil {
		out.StatusHistory = make([]ClaimStatusUpdate, len(c.StatusHistory))
		copy(out.StatusHistory, c.StatusHistory)
	}
	if c.Fraud != nil {
		v := *c.Fraud
		out.Fraud = &v
	}
	if c.Ledger != nil {
		ref := *c.Ledger
		if c.Ledger.Raw != nil {
			ref.Raw = append(json.RawMessage(nil), c.Ledger.Raw...)
		}
		out.Ledger = &ref
	}
	return out
}
