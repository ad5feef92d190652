package service

import (
	"context"

	"claims-portal/internal/external"
)

// Backend is the subset of the claims backend the services call.
// *external.Backend implements it.
type Backend interface {
	Enabled() bool
	SubmitClaim(ctx context.Context, sub external.Submission) (*external.Ack, error)
	NotifyDecision(ctx context.Context, d external.Decision) error
	CreateTopic(ctx context.Context) (string, error)
	SubmitLedger(ctx context.Context, s external.LedgerSubmission) error
	Extract(ctx context.Context, e external.Extraction) error
}

var _ Backend = (*external.Backend)(nil)
