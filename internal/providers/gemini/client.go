// Package gemini is a typed HTTP client for the generative-text provider:
// single-turn prompt completion and multi-turn chat continuation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		log:        cfg.Logger.With().Str("component", "gemini_client").Logger(),
	}, nil
}

// Turn is one prior message in a chat continuation.
type Turn struct {
	Role    string // models.RoleUser or models.RoleAssistant
	Content string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateText runs a single-turn completion and returns plain text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	return c.generate(ctx, req)
}

// GenerateChat continues a conversation: history turns followed by the new
// user message.
func (c *Client) GenerateChat(ctx context.Context, message string, history []Turn) (string, error) {
	req := generateRequest{Contents: make([]content, 0, len(history)+1)}
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: turn.Content}}})
	}
	req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: message}}})
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, body generateRequest) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Status code stays in the error text so rate limits remain
		// detectable downstream.
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty candidates")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response text")
	}
	return text, nil
}

// IsRateLimited reports whether an error carries the provider's rate-limit
// signature (HTTP 429 or a quota message).
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
