// Package twelvelabs is a typed HTTP client for the semantic video
// index/search provider: index lifecycle, indexing tasks, search queries,
// content analysis and video metadata lookup.
package twelvelabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.twelvelabs.io/v1.3"

// APIError is returned for any non-2xx provider response. The status code
// and body are preserved so callers can classify failures.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvelabs: status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("twelvelabs api key is empty")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        cfg.Logger.With().Str("component", "twelvelabs_client").Logger(),
	}, nil
}

type IndexModel struct {
	Options []string `json:"model_options"`
}

type Index struct {
	ID     string       `json:"_id"`
	Name   string       `json:"index_name"`
	Models []IndexModel `json:"models"`
}

type Engine struct {
	Name    string   `json:"engine_name"`
	Options []string `json:"engine_options"`
}

type Task struct {
	ID      string `json:"_id"`
	VideoID string `json:"video_id"`
}

type TaskStatus struct {
	ID           string `json:"_id"`
	Status       string `json:"status"`
	VideoID      string `json:"video_id"`
	ErrorMessage string `json:"error_message"`
}

type SearchHit struct {
	VideoID      string  `json:"video_id"`
	Rank         int     `json:"rank"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Confidence   string  `json:"confidence"`
	ThumbnailURL string  `json:"thumbnail_url"`
}

type SearchRequest struct {
	IndexID   string
	Query     string
	Options   []string
	PageLimit int
	// Threshold is the provider-side confidence filter: high, medium, low
	// or none. Defaults to medium when empty.
	Threshold string
}

type AnalyzeRequest struct {
	VideoID     string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type VideoMetadata struct {
	Duration *float64 `json:"duration"`
	Width    *int     `json:"width"`
	Height   *int     `json:"height"`
	FPS      *float64 `json:"fps"`
}

type VideoInfo struct {
	Metadata       *VideoMetadata `json:"metadata"`
	SystemMetadata *VideoMetadata `json:"system_metadata"`
	Duration       *float64       `json:"duration"`
}

// ReportedDuration checks every location the provider is known to put the
// duration in, returning nil when none is present.
func (v *VideoInfo) ReportedDuration() *float64 {
	if v == nil {
		return nil
	}
	if v.Metadata != nil && v.Metadata.Duration != nil {
		return v.Metadata.Duration
	}
	if v.Duration != nil {
		return v.Duration
	}
	if v.SystemMetadata != nil && v.SystemMetadata.Duration != nil {
		return v.SystemMetadata.Duration
	}
	return nil
}

func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	var resp struct {
		Data []Index `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/indexes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetIndex(ctx context.Context, indexID string) (*Index, error) {
	var idx Index
	if err := c.doJSON(ctx, http.MethodGet, "/indexes/"+indexID, nil, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (c *Client) CreateIndex(ctx context.Context, name string, engines []Engine) (*Index, error) {
	body := map[string]any{
		"index_name": name,
		"engines":    engines,
	}
	var idx Index
	if err := c.doJSON(ctx, http.MethodPost, "/indexes", body, &idx); err != nil {
		return nil, err
	}
	c.log.Info().Str("index_id", idx.ID).Str("index_name", name).Msg("index created")
	return &idx, nil
}

// CreateTask submits an indexing task for a video reachable at videoURL.
func (c *Client) CreateTask(ctx context.Context, indexID, videoURL string) (*Task, error) {
	form := map[string][]string{
		"index_id":  {indexID},
		"video_url": {videoURL},
	}
	var task Task
	if err := c.doForm(ctx, "/tasks", form, &task); err != nil {
		return nil, err
	}
	c.log.Info().Str("task_id", task.ID).Str("video_id", task.VideoID).Msg("indexing task created")
	return &task, nil
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskStatus, error) {
	var ts TaskStatus
	if err := c.doJSON(ctx, http.MethodGet, "/tasks/"+taskID, nil, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchHit, error) {
	threshold := req.Threshold
	if threshold == "" {
		threshold = "medium"
	}
	form := map[string][]string{
		"index_id":   {req.IndexID},
		"query_text": {req.Query},
		"threshold":  {threshold},
	}
	if len(req.Options) > 0 {
		form["search_options"] = req.Options
	}
	if req.PageLimit > 0 {
		form["page_limit"] = []string{strconv.Itoa(req.PageLimit)}
	}

	var resp struct {
		Data []SearchHit `json:"data"`
	}
	if err := c.doForm(ctx, "/search", form, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Analyze runs a content-analysis prompt against an indexed video. The raw
// body is returned untouched because the provider answers in several wire
// shapes; parsing is centralized in the analyzer.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (json.RawMessage, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	body := map[string]any{
		"video_id":    req.VideoID,
		"prompt":      req.Prompt,
		"temperature": temperature,
		"stream":      false,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/analyze", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) GetVideo(ctx context.Context, indexID, videoID string) (*VideoInfo, error) {
	var info VideoInfo
	path := fmt.Sprintf("/indexes/%s/videos/%s", indexID, videoID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doForm(ctx context.Context, path string, form map[string][]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, values := range form {
		for _, v := range values {
			if err := w.WriteField(field, v); err != nil {
				return fmt.Errorf("write form field: %w", err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twelvelabs request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
