// Package storage keeps the files attached to locally created claims.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"claims-portal/internal/domain"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Upload is one file from the claim form.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service stores claim documents and hands out links to them.
type Service interface {
	// Put stores u under owner and returns the document reference to keep on the claim.
	Put(ctx context.Context, owner string, u Upload) (domain.ClaimFile, error)
	// Link returns a URL a browser can open for the document.
	Link(ctx context.Context, file domain.ClaimFile) (string, error)
}

func contentType(u Upload) string {
	if ct := strings.TrimSpace(u.ContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func displayName(u Upload) string {
	if name := path.Base(strings.ReplaceAll(strings.TrimSpace(u.Name), `\`, "/")); name != "" && name != "." && name != "/" {
		return name
	}
	return "document"
}
