package assistant

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-portal/internal/domain"
)

type stubGenerator struct {
	enabled bool
	text    string
	err     error
	prompts []string
}

func (s *stubGenerator) Enabled() bool { return s.enabled }

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleClaim() domain.Claim {
	return domain.Claim{
		ID:             "C-1025",
		PolicyNumber:   "PN-HEALTH-5567",
		ClaimType:      "Health Insurance",
		DateOfIncident: "2025-10-20",
		ClaimedAmount:  180000,
		Description:    "Hospitalization.",
		Documents:      []domain.ClaimFile{{Name: "admission.pdf"}, {Name: "bill.pdf"}},
	}
}

func TestAnalyzeUsesGeneratedText(t *testing.T) {
	gen := &stubGenerator{enabled: true, text: "## Summary\nLooks fine."}
	a := New(gen, quietLogger())

	out, err := a.Analyze(context.Background(), sampleClaim())
	require.NoError(t, err)
	assert.Equal(t, "## Summary\nLooks fine.", out)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "**Policy Number:** PN-HEALTH-5567")
	assert.Contains(t, gen.prompts[0], "₹1,80,000")
	assert.Contains(t, gen.prompts[0], "admission.pdf, bill.pdf")
}

func TestAnalyzeFallsBack(t *testing.T) {
	cases := map[string]*stubGenerator{
		"generation error": {enabled: true, err: errors.New("boom")},
		"empty text":       {enabled: true, text: "   "},
		"error shaped":     {enabled: true, text: "HTTP 403: permission denied"},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := New(gen, quietLogger()).Analyze(context.Background(), sampleClaim())
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, "## Summary\nClaim C-1025 for Health Insurance on 2025-10-20 with a claimed amount of ₹1,80,000."))
			assert.Contains(t, out, "## Potential Flags")
			assert.Contains(t, out, "## Suggested Next Steps")
			assert.Contains(t, out, "## Submitted Documents\n- admission.pdf\n- bill.pdf")
		})
	}
}

func TestFallbackWithoutDocuments(t *testing.T) {
	c := sampleClaim()
	c.Documents = nil
	assert.True(t, strings.HasSuffix(FallbackSummary(c), "## Submitted Documents\n- No documents uploaded"))
}

func TestDisabledMessages(t *testing.T) {
	a := New(&stubGenerator{}, quietLogger())

	out, err := a.Analyze(context.Background(), sampleClaim())
	require.NoError(t, err)
	assert.Equal(t, AnalysisDisabled, out)

	out, err = a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, ChatDisabled, out)
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{enabled: true, text: "You can file a claim from the dashboard."}
	a := New(gen, quietLogger())

	out, err := a.Chat(context.Background(), "  how do I file?  ")
	require.NoError(t, err)
	assert.Equal(t, "You can file a claim from the dashboard.", out)
	assert.Contains(t, gen.prompts[0], `"Potential"`)
	assert.Contains(t, gen.prompts[0], `User's question: "how do I file?"`)

	_, err = a.Chat(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	gen.err = errors.New("down")
	out, err = a.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, ChatUnavailable, out)
}

func TestLooksLikeError(t *testing.T) {
	assert.True(t, LooksLikeError(""))
	assert.True(t, LooksLikeError("Model not available"))
	assert.True(t, LooksLikeError("Invalid API key supplied"))
	assert.True(t, LooksLikeError("http 500"))
	assert.False(t, LooksLikeError("## Summary\nAll documents present."))
}
