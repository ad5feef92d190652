// Package assistant builds approver analyses and chatbot replies on top of a
// text generator, degrading to locally built text when generation fails.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"claims-portal/internal/domain"
	"claims-portal/internal/metrics"
	"claims-portal/internal/view"
)

const (
	Greeting = "Hello! I'm the Potential AI assistant. How can I help you today?"

	AnalysisDisabled = "AI analysis is disabled. API key not configured."
	ChatDisabled     = "Chatbot is disabled. API key not configured."
	ChatUnavailable  = "Sorry, I'm having trouble connecting. Please try again later."
)

var ErrEmptyMessage = errors.New("message is empty")

// errorShaped matches generated text that is really an error report.
var errorShaped = regexp.MustCompile(`(?i)(error|http\s*\d{3}|not available|unable to connect|invalid api key|permission)`)

// Generator produces text for a prompt. *external.Gemini implements it.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type Assistant struct {
	gen    Generator
	logger *logrus.Logger
}

func New(gen Generator, logger *logrus.Logger) *Assistant {
	if logger == nil {
		logger = logrus.New()
	}
	return &Assistant{gen: gen, logger: logger}
}

func (a *Assistant) enabled() bool {
	return a.gen != nil && a.gen.Enabled()
}

// Analyze returns a markdown summary of claim for an approver.
func (a *Assistant) Analyze(ctx context.Context, claim domain.Claim) (string, error) {
	if !a.enabled() {
		metrics.AssistantRequest("analysis", "disabled")
		return AnalysisDisabled, nil
	}

	logger := a.logger.WithField("claim_id", claim.ID)
	text, err := a.gen.Generate(ctx, AnalysisPrompt(claim))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warnf("generate analysis: %v", err)
		text = ""
	}

	if LooksLikeError(text) {
		metrics.AssistantRequest("analysis", "fallback")
		return FallbackSummary(claim), nil
	}
	metrics.AssistantRequest("analysis", "generated")
	return text, nil
}

// Chat answers a portal user's question.
func (a *Assistant) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if !a.enabled() {
		metrics.AssistantRequest("chat", "disabled")
		return ChatDisabled, nil
	}

	text, err := a.gen.Generate(ctx, ChatPrompt(message))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.logger.Warnf("generate chat reply: %v", err)
		metrics.AssistantRequest("chat", "error")
		return ChatUnavailable, nil
	}
	metrics.AssistantRequest("chat", "generated")
	return text, nil
}

// LooksLikeError reports whether generated text is empty or reads like an error.
func LooksLikeError(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	return errorShaped.MatchString(s)
}

func documentNames(claim domain.Claim) []string {
	names := make([]string, 0, len(claim.Documents))
	for _, d := range claim.Documents {
		names = append(names, d.Name)
	}
	return names
}

func AnalysisPrompt(claim domain.Claim) string {
	return fmt.Sprintf(`Analyze the following insurance claim and provide a concise summary for an approver.

**Claim Details:**
- **Policy Number:** %s
- **Claim Type:** %s
- **Date of Incident:** %s
- **Claimed Amount:** %s
- **Description:** %s
- **Submitted Documents:** %s

**Your Task:**
1. **Summary:** Briefly summarize the incident and the claim.
2. **Potential Flags:** Identify any red flags or areas needing further investigation.
   If none, state "No immediate flags identified."
3. **Suggested Next Steps:** Recommend next actions for the approver.

Format your response clearly with markdown headings.`,
		claim.PolicyNumber,
		claim.ClaimType,
		claim.DateOfIncident,
		view.FormatINR(claim.ClaimedAmount),
		claim.Description,
		strings.Join(documentNames(claim), ", "),
	)
}

func ChatPrompt(message string) string {
	return fmt.Sprintf(`You are a helpful assistant for an insurance claims portal called "Potential".
Answer the user's question concisely and professionally.
Do not provide information you don't have.
User's question: %q`, message)
}

// FallbackSummary is the analysis shown when generation is unavailable.
func FallbackSummary(claim domain.Claim) string {
	docs := "- No documents uploaded"
	if names := documentNames(claim); len(names) > 0 {
		docs = "- " + strings.Join(names, "\n- ")
	}

	return fmt.Sprintf(`## Summary
Claim %s for %s on %s with a claimed amount of %s.

## Potential Flags
- No immediate flags identified based on available data.

## Suggested Next Steps
- Verify uploaded documents and cross-check policy details.
- Confirm incident date and claimed amount justification.

## Submitted Documents
%s`,
		claim.ID,
		claim.ClaimType,
		claim.DateOfIncident,
		view.FormatINR(claim.ClaimedAmount),
		docs,
	)
}
