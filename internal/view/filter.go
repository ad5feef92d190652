// Package view shapes claims for the customer and approver dashboards.
// Everything here is pure: callers pass in claims and get display data back.
package view

import (
	"strings"

	"claims-portal/internal/domain"
)

// Tab is an approver queue bucket.
type Tab string

const (
	TabPending  Tab = "pending"
	TabResolved Tab = "resolved"
)

// ParseTab accepts "pending" or "resolved" in any case; anything else is pending.
func ParseTab(raw string) Tab {
	if strings.EqualFold(strings.TrimSpace(raw), string(TabResolved)) {
		return TabResolved
	}
	return TabPending
}

// ForPolicyholder keeps the claims owned by userID, preserving order.
func ForPolicyholder(claims []domain.Claim, userID string) []domain.Claim {
	return filter(claims, func(c domain.Claim) bool { return c.PolicyholderID == userID })
}

func Pending(claims []domain.Claim) []domain.Claim {
	return filter(claims, func(c domain.Claim) bool { return c.Status.Pending() })
}

func Resolved(claims []domain.Claim) []domain.Claim {
	return filter(claims, func(c domain.Claim) bool { return c.Status.Resolved() })
}

// ForTab returns the bucket a tab shows.
func ForTab(claims []domain.Claim, tab Tab) []domain.Claim {
	if tab == TabResolved {
		return Resolved(claims)
	}
	return Pending(claims)
}

func filter(claims []domain.Claim, keep func(domain.Claim) bool) []domain.Claim {
	out := make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
