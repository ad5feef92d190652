// Package seed loads the identities and claims a portal session starts with.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"claims-portal/internal/domain"
)

//go:embed fixture.yaml
var embedded []byte

// Fixture is the parsed seed data. Claims are in display order, newest first.
type Fixture struct {
	Users  []domain.User
	Claims []domain.Claim
}

type fileUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type fileDocument struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Size int64  `yaml:"size"`
	URL  string `yaml:"url"`
}

type fileUpdate struct {
	Status    string    `yaml:"status"`
	Timestamp time.Time `yaml:"timestamp"`
	Notes     string    `yaml:"notes"`
}

type fileClaim struct {
	ID             string         `yaml:"id"`
	PolicyNumber   string         `yaml:"policyNumber"`
	PolicyholderID string         `yaml:"policyholderId"`
	ClaimType      string         `yaml:"claimType"`
	DateOfIncident string         `yaml:"dateOfIncident"`
	ClaimedAmount  float64        `yaml:"claimedAmount"`
	Description    string         `yaml:"description"`
	Documents      []fileDocument `yaml:"documents"`
	Fraud          *int           `yaml:"fraud"`
	Status         string         `yaml:"status"`
	StatusHistory  []fileUpdate   `yaml:"statusHistory"`
}

type fixtureFile struct {
	Users  []fileUser  `yaml:"users"`
	Claims []fileClaim `yaml:"claims"`
}

// Load reads the fixture at path, or the embedded fixture when path is empty.
func Load(path string) (Fixture, error) {
	data := embedded
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Fixture{}, fmt.Errorf("read seed file: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

// Default returns the embedded fixture. It panics if the embedded file is invalid.
func Default() Fixture {
	fx, err := Parse(embedded)
	if err != nil {
		panic(fmt.Errorf("embedded seed fixture: %w", err))
	}
	return fx
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (Fixture, error) {
	var raw fixtureFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Fixture{}, fmt.Errorf("decode seed fixture: %w", err)
	}

	var fx Fixture
	byID := make(map[string]domain.User, len(raw.Users))
	emails := make(map[string]struct{}, len(raw.Users))
	for _, u := range raw.Users {
		user := domain.User{
			ID:    strings.TrimSpace(u.ID),
			Name:  strings.TrimSpace(u.Name),
			Email: strings.TrimSpace(u.Email),
			Role:  domain.Role(strings.ToLower(strings.TrimSpace(u.Role))),
		}
		if user.ID == "" || user.Email == "" {
			return Fixture{}, fmt.Errorf("seed user %q: id and email are required", u.ID)
		}
		if !user.Role.Valid() {
			return Fixture{}, fmt.Errorf("seed user %s: unknown role %q", user.ID, u.Role)
		}
		if _, dup := byID[user.ID]; dup {
			return Fixture{}, fmt.Errorf("seed user %s: duplicate id", user.ID)
		}
		key := strings.ToLower(user.Email)
		if _, dup := emails[key]; dup {
			return Fixture{}, fmt.Errorf("seed user %s: duplicate email %s", user.ID, user.Email)
		}
		byID[user.ID] = user
		emails[key] = struct{}{}
		fx.Users = append(fx.Users, user)
	}

	seen := make(map[string]struct{}, len(raw.Claims))
	for _, c := range raw.Claims {
		claim, err := toClaim(c, byID)
		if err != nil {
			return Fixture{}, err
		}
		if _, dup := seen[claim.ID]; dup {
			return Fixture{}, fmt.Errorf("seed claim %s: duplicate id", claim.ID)
		}
		seen[claim.ID] = struct{}{}
		fx.Claims = append(fx.Claims, claim)
	}

	return fx, nil
}

func toClaim(c fileClaim, users map[string]domain.User) (domain.Claim, error) {
	owner, ok := users[c.PolicyholderID]
	if !ok {
		return domain.Claim{}, fmt.Errorf("seed claim %s: unknown policyholder %q", c.ID, c.PolicyholderID)
	}
	status, ok := domain.ParseClaimStatus(c.Status)
	if !ok {
		return domain.Claim{}, fmt.Errorf("seed claim %s: unknown status %q", c.ID, c.Status)
	}

	claim := domain.Claim{
		ID:               strings.TrimSpace(c.ID),
		PolicyNumber:     c.PolicyNumber,
		PolicyholderID:   owner.ID,
		PolicyholderName: owner.Name,
		ClaimType:        c.ClaimType,
		DateOfIncident:   c.DateOfIncident,
		ClaimedAmount:    c.ClaimedAmount,
		Description:      c.Description,
		Documents:        make([]domain.ClaimFile, 0, len(c.Documents)),
		Fraud:            c.Fraud,
		Status:           status,
	}
	if claim.ID == "" {
		return domain.Claim{}, fmt.Errorf("seed claim: id is required")
	}
	for _, d := range c.Documents {
		claim.Documents = append(claim.Documents, domain.ClaimFile{
			Name: d.Name,
			Type: d.Type,
			Size: d.Size,
			URL:  d.URL,
		})
	}
	for _, u := range c.StatusHistory {
		st, ok := domain.ParseClaimStatus(u.Status)
		if !ok {
			return domain.Claim{}, fmt.Errorf("seed claim %s: unknown history status %q", c.ID, u.Status)
		}
		claim.StatusHistory = append(claim.StatusHistory, domain.ClaimStatusUpdate{
			Status:    st,
			Timestamp: u.Timestamp.UTC(),
			Notes:     u.Notes,
		})
	}
	if err := claim.CheckHistory(); err != nil {
		return domain.Claim{}, fmt.Errorf("seed: %w", err)
	}
	return claim, nil
}
