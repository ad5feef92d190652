package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"claims-portal/internal/dispatch"
	"claims-portal/internal/domain"
	"claims-portal/internal/external"
)

// Placeholder vehicle details sent to the extraction endpoint until a real
// document extractor is wired in.
var placeholderExtraction = external.ExtractedFields{
	ChassisNumber:      "CHS1234567890",
	EngineNumber:       "ENG9876543210",
	Make:               "Honda",
	Model:              "City",
	Year:               2019,
	RegistrationNumber: "MH12AB1234",
}

// LedgerSync registers an ingested claim with the ledger service: create a
// topic, submit the documents, then post the extracted fields. Every step is
// best effort.
type LedgerSync struct {
	backend    Backend
	dispatcher dispatch.Dispatcher
	customerID string
	logger     *logrus.Logger
}

func NewLedgerSync(backend Backend, dispatcher dispatch.Dispatcher, customerID string, logger *logrus.Logger) *LedgerSync {
	if logger == nil {
		logger = logrus.New()
	}
	return &LedgerSync{
		backend:    backend,
		dispatcher: dispatcher,
		customerID: customerID,
		logger:     logger,
	}
}

// Schedule queues the ledger sequence for claim and returns immediately.
func (l *LedgerSync) Schedule(claim domain.Claim, files []external.Upload) {
	if l == nil || l.backend == nil || !l.backend.Enabled() || l.dispatcher == nil {
		return
	}
	l.dispatcher.Go("ledger_sync", logrus.Fields{"claim_id": claim.ID}, func(ctx context.Context) error {
		l.Run(ctx, claim, files)
		return nil
	})
}

// Run performs the ledger sequence synchronously. Failures are logged, never returned.
func (l *LedgerSync) Run(ctx context.Context, claim domain.Claim, files []external.Upload) {
	logger := l.logger.WithField("claim_id", claim.ID)

	customerID := l.customerID
	if customerID == "" {
		customerID = claim.PolicyholderID
	}

	topicID, err := l.backend.CreateTopic(ctx)
	if err != nil {
		logger.Warnf("create ledger topic: %v", err)
	}
	if topicID == "" && claim.Ledger != nil {
		topicID = claim.Ledger.TopicID
	}

	if err := l.backend.SubmitLedger(ctx, external.LedgerSubmission{
		CustomerID: customerID,
		ClaimID:    claim.ID,
		TopicID:    topicID,
		Documents:  external.LedgerDocuments(files),
		Metadata: external.LedgerMetadata{
			Type:          external.LedgerType(claim.ClaimType),
			SubmittedBy:   "customer",
			IncidentDate:  claim.DateOfIncident,
			ClaimedAmount: claim.ClaimedAmount,
			PolicyNumber:  claim.PolicyNumber,
			Description:   claim.Description,
		},
	}); err != nil {
		logger.Warnf("submit claim to ledger: %v", err)
	}

	extracted := placeholderExtraction
	extracted.PolicyNumber = claim.PolicyNumber
	if err := l.backend.Extract(ctx, external.Extraction{
		ClaimID:    claim.ID,
		CustomerID: customerID,
		TopicID:    topicID,
		Extracted:  extracted,
	}); err != nil {
		logger.Warnf("post extracted fields: %v", err)
	}
}
