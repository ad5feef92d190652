package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"

// ErrEmptyGeneration is returned when a model answers without any text.
var ErrEmptyGeneration = errors.New("model returned no text")

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	// Models are tried in order; a 404 moves on to the next one.
	Models  []string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// Gemini calls the generateContent endpoint.
type Gemini struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"gemini-2.0-flash"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Gemini{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *Gemini) Enabled() bool {
	return g != nil && g.cfg.APIKey != ""
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

// Generate returns the text of the first model that answers.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Enabled() {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for _, model := range g.cfg.Models {
		logger := g.cfg.Logger.WithField("model", model)

		text, status, err := g.generate(ctx, model, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if status == 0 {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Warnf("gemini request failed: %v", err)
			continue
		}
		if status == http.StatusNotFound {
			logger.Info("model not available, trying next")
			continue
		}
		return "", err
	}

	return "", fmt.Errorf("unable to connect to Gemini API, last error: %w", lastErr)
}

// generate returns the HTTP status alongside any error; status is zero when
// no response was received.
func (g *Gemini) generate(ctx context.Context, model string, payload []byte) (string, int, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.cfg.BaseURL, url.PathEscape(model), url.QueryEscape(g.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// the key is part of the URL; keep it out of error text
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}
	res := gjson.ParseBytes(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || res.Get("error").Exists() {
		status := resp.StatusCode
		if code := res.Get("error.code").Int(); code == http.StatusNotFound {
			status = http.StatusNotFound
		}
		msg := res.Get("error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", status, &StatusError{Code: status, Body: msg}
	}

	var parts []string
	for _, p := range res.Get("candidates.0.content.parts.#.text").Array() {
		parts = append(parts, p.String())
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		return "", resp.StatusCode, ErrEmptyGeneration
	}
	return text, resp.StatusCode, nil
}

// DisabledMessage is shown wherever generation is requested without an API key.
const DisabledMessage = "AI features are disabled. API key not configured."
