package view

import (
	"time"

	"claims-portal/internal/domain"
	"claims-portal/internal/fraud"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type FraudBadge struct {
	Fraud      bool   `json:"fraud"`
	Flag       int    `json:"flag"`
	Label      string `json:"label"`
	Confidence int    `json:"confidence"`
}

func Badge(claimID string) FraudBadge {
	ind := fraud.Evaluate(claimID)
	return FraudBadge{
		Fraud:      ind.Fraud,
		Flag:       ind.Flag,
		Label:      ind.Label(),
		Confidence: ind.Confidence,
	}
}

// Summary is one row of a claims list.
type Summary struct {
	ID               string      `json:"id"`
	PolicyholderName string      `json:"policyholderName"`
	ClaimType        string      `json:"claimType"`
	DateOfIncident   string      `json:"dateOfIncident"`
	ClaimedAmount    float64     `json:"claimedAmount"`
	AmountDisplay    string      `json:"amountDisplay"`
	Status           string      `json:"status"`
	LastUpdated      time.Time   `json:"lastUpdated"`
	Fraud            *FraudBadge `json:"fraudBadge,omitempty"`
}

type Document struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size,omitempty"`
	SizeDisplay string `json:"sizeDisplay,omitempty"`
	URL         string `json:"url,omitempty"`
}

type TimelineEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type Ledger struct {
	TopicID       string `json:"topicId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Detail is the approver's full view of a claim.
type Detail struct {
	Summary
	PolicyNumber   string          `json:"policyNumber"`
	PolicyholderID string          `json:"policyholderId"`
	Description    string          `json:"description"`
	Documents      []Document      `json:"documents"`
	Timeline       []TimelineEntry `json:"timeline"`
	ReportedFraud  *int            `json:"fraud,omitempty"`
	Ledger         *Ledger         `json:"ledger,omitempty"`
	Actions        []string        `json:"actions"`
	CanAnalyze     bool            `json:"canAnalyze"`
}

// Summarize builds a list row. withBadge adds the fraud badge shown to approvers.
func Summarize(c domain.Claim, withBadge bool) Summary {
	s := Summary{
		ID:               c.ID,
		PolicyholderName: c.PolicyholderName,
		ClaimType:        c.ClaimType,
		DateOfIncident:   c.DateOfIncident,
		ClaimedAmount:    c.ClaimedAmount,
		AmountDisplay:    FormatINR(c.ClaimedAmount),
		Status:           string(c.Status),
	}
	if last, ok := c.LastUpdate(); ok {
		s.LastUpdated = last.Timestamp
	}
	if withBadge {
		b := Badge(c.ID)
		s.Fraud = &b
	}
	return s
}

func Summaries(claims []domain.Claim, withBadge bool) []Summary {
	out := make([]Summary, 0, len(claims))
	for _, c := range claims {
		out = append(out, Summarize(c, withBadge))
	}
	return out
}

// Describe builds the detail view. link resolves a document to an openable
// URL; when nil the stored URL or data URL is used.
func Describe(c domain.Claim, link func(domain.ClaimFile) string) Detail {
	d := Detail{
		Summary:        Summarize(c, true),
		PolicyNumber:   c.PolicyNumber,
		PolicyholderID: c.PolicyholderID,
		Description:    c.Description,
		Documents:      make([]Document, 0, len(c.Documents)),
		Timeline:       Timeline(c),
		ReportedFraud:  c.Fraud,
		Actions:        []string{},
		CanAnalyze:     c.Status.Pending(),
	}

	for _, f := range c.Documents {
		doc := Document{
			Name:        f.Name,
			Type:        f.Type,
			Size:        f.Size,
			SizeDisplay: FormatSize(f.Size),
		}
		switch {
		case link != nil:
			doc.URL = link(f)
		case f.URL != "":
			doc.URL = f.URL
		default:
			doc.URL = f.DataURL
		}
		d.Documents = append(d.Documents, doc)
	}

	if c.Ledger != nil {
		d.Ledger = &Ledger{TopicID: c.Ledger.TopicID, TransactionID: c.Ledger.TransactionID}
	}
	if c.Status.Pending() {
		d.Actions = []string{ActionApprove, ActionReject}
	}
	return d
}

// Timeline returns the status history newest first.
func Timeline(c domain.Claim) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(c.StatusHistory))
	for i := len(c.StatusHistory) - 1; i >= 0; i-- {
		u := c.StatusHistory[i]
		out = append(out, TimelineEntry{Status: string(u.Status), Timestamp: u.Timestamp, Notes: u.Notes})
	}
	return out
}
