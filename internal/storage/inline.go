package storage

import (
	"context"
	"encoding/base64"
	"fmt"

	"claims-portal/internal/domain"
)

// InlineService embeds documents in the claim as data URLs.
type InlineService struct {
	maxBytes int64
}

// NewInlineService limits each document to maxBytes; zero means no limit.
func NewInlineService(maxBytes int64) *InlineService {
	return &InlineService{maxBytes: maxBytes}
}

func (s *InlineService) Put(_ context.Context, _ string, u Upload) (domain.ClaimFile, error) {
	size := int64(len(u.Data))
	if s.maxBytes > 0 && size > s.maxBytes {
		return domain.ClaimFile{}, fmt.Errorf("%s: %w", displayName(u), ErrTooLarge)
	}
	ct := contentType(u)
	return domain.ClaimFile{
		Name:    displayName(u),
		Type:    ct,
		Size:    size,
		DataURL: fmt.Sprintf("data:%s;base64,%s", ct, base64.StdEncoding.EncodeToString(u.Data)),
	}, nil
}

func (s *InlineService) Link(_ context.Context, file domain.ClaimFile) (string, error) {
	if file.URL != "" {
		return file.URL, nil
	}
	return file.DataURL, nil
}

var _ Service = (*InlineService)(nil)
