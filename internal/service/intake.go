package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"claims-portal/internal/domain"
	"claims-portal/internal/external"
	"claims-portal/internal/storage"
)

// ErrSubmissionFailed means the claims backend did not accept a submission.
// Nothing is added to the claim store in that case.
var ErrSubmissionFailed = errors.New("claim submission failed")

// Intake turns a customer's claim form into a stored claim. With a backend
// configured the form is forwarded and the acknowledged claim ingested;
// otherwise documents go to storage and the claim is created locally.
type Intake struct {
	backend Backend
	storage storage.Service
	ledger  *LedgerSync
	logger  *logrus.Logger
}

func NewIntake(backend Backend, store storage.Service, ledger *LedgerSync, logger *logrus.Logger) *Intake {
	if logger == nil {
		logger = logrus.New()
	}
	return &Intake{
		backend: backend,
		storage: store,
		ledger:  ledger,
		logger:  logger,
	}
}

func (i *Intake) Submit(ctx context.Context, claims ClaimService, owner *domain.User, draft domain.ClaimDraft, files []storage.Upload) (*domain.Claim, error) {
	if owner == nil {
		return nil, ErrNotAuthenticated
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	if i.backend != nil && i.backend.Enabled() {
		return i.submitRemote(ctx, claims, owner, draft, files)
	}

	docs := make([]domain.ClaimFile, 0, len(files))
	for _, f := range files {
		doc, err := i.storage.Put(ctx, owner.ID, f)
		if err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}
		docs = append(docs, doc)
	}
	draft.Documents = append(draft.Documents, docs...)
	return claims.CreateClaim(ctx, owner, draft)
}

func (i *Intake) submitRemote(ctx context.Context, claims ClaimService, owner *domain.User, draft domain.ClaimDraft, files []storage.Upload) (*domain.Claim, error) {
	uploads := make([]external.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, external.Upload{Name: f.Name, ContentType: f.ContentType, Data: f.Data})
	}

	ack, err := i.backend.SubmitClaim(ctx, external.Submission{
		PolicyNumber:   draft.PolicyNumber,
		ClaimType:      draft.ClaimType,
		DateOfIncident: draft.DateOfIncident,
		ClaimedAmount:  draft.ClaimedAmount,
		Description:    draft.Description,
		Files:          uploads,
	})
	if err != nil {
		i.logger.WithField("user_id", owner.ID).Errorf("submit claim: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	if !ack.OK || len(ack.Claim) == 0 {
		return nil, fmt.Errorf("%w: backend did not acknowledge the claim", ErrSubmissionFailed)
	}

	claim, err := claims.IngestExternalClaim(ctx, owner, ack.Claim)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: acknowledged claim is not an object", ErrSubmissionFailed)
	}

	i.ledger.Schedule(*claim, uploads)
	return claim, nil
}
