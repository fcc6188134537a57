// Package analyzer derives the human-facing summary and emotion tags for an
// indexed video. The semantic provider's analyze endpoint is the primary
// path; the generative-text provider fills in from the filename when that
// fails; a fixed generic summary is the floor. Analyze never fails — it
// always returns something usable.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

// FallbackSummary is written when both analysis paths fail.
const FallbackSummary = "A video memory has been saved to your collection."

const analyzePrompt = `Analyze this video and provide a JSON response with:
1. "summary": A 2-3 sentence description of what happens in the video, including people, actions, setting, and mood. Make it warm and personal.
2. "emotionTags": An array of 2-4 single-word emotion tags that capture the feeling of this video.

Choose emotion tags from: joyful, nostalgic, peaceful, energetic, heartwarming, adventurous, tender, playful, bittersweet, triumphant, cozy, serene, intimate, festive, melancholic, excited, relaxed, loving

Respond with ONLY a valid JSON object.`

const filenamePromptFormat = `You are analyzing a personal video memory. Based on the video filename %q, generate:

1. SUMMARY: A 2-3 sentence description suggesting what might be happening in this video (people, actions, setting, mood). Make educated guesses based on the filename but keep it warm and personal.

2. EMOTION_TAGS: 2-4 single-word emotion tags that likely capture the feeling of this video. Choose from: joyful, nostalgic, peaceful, energetic, heartwarming, adventurous, tender, playful, bittersweet, triumphant, cozy, serene, intimate, festive, melancholic, excited, relaxed, loving

Respond with ONLY a valid JSON object (no markdown, no code blocks):
{
  "summary": "Your 2-3 sentence summary here",
  "emotionTags": ["tag1", "tag2", "tag3"]
}`

const minSummaryLen = 10

// VideoAnalyzeClient is the slice of the index provider the analyzer needs.
type VideoAnalyzeClient interface {
	Analyze(ctx context.Context, req twelvelabs.AnalyzeRequest) (json.RawMessage, error)
	GetVideo(ctx context.Context, indexID, videoID string) (*twelvelabs.VideoInfo, error)
}

// TextGenerator is the single-turn generative-text call used as fallback.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Result carries everything the analyzer could derive. Nil pointer fields
// were not reported and must not be written to the store.
type Result struct {
	Summary     string
	EmotionTags []string
	Duration    *float64
	Metadata    *models.VideoMetadata
}

type Analyzer struct {
	provider VideoAnalyzeClient
	text     TextGenerator
	log      zerolog.Logger
}

type Config struct {
	Provider VideoAnalyzeClient
	Text     TextGenerator
	Logger   zerolog.Logger
}

func New(cfg Config) (*Analyzer, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("analyze provider is required")
	}
	if cfg.Text == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	return &Analyzer{
		provider: cfg.Provider,
		text:     cfg.Text,
		log:      cfg.Logger.With().Str("component", "analyzer").Logger(),
	}, nil
}

// Analyze produces a summary and emotion tags for an indexed video. Every
// failure inside is absorbed into the next fallback; the returned Result
// always has a non-empty summary.
func (a *Analyzer) Analyze(ctx context.Context, video *models.VideoRecord) Result {
	res := Result{Summary: FallbackSummary, EmotionTags: []string{}}

	if payload, err := a.analyzeContent(ctx, video.TwelveLabsVideoID); err == nil {
		res.Summary = payload.Summary
		res.EmotionTags = payload.EmotionTags
	} else {
		a.log.Warn().Err(err).Str("video_id", video.ID).Msg("content analysis failed, trying filename fallback")
		if payload, err := a.analyzeFromFilename(ctx, video.Title()); err == nil {
			res.Summary = payload.Summary
			res.EmotionTags = payload.EmotionTags
		} else {
			a.log.Warn().Err(err).Str("video_id", video.ID).Msg("filename analysis failed, using fixed summary")
		}
	}

	// Technical metadata is best-effort and independent of the summary.
	if video.TwelveLabsIndexID != "" && video.TwelveLabsVideoID != "" {
		info, err := a.provider.GetVideo(ctx, video.TwelveLabsIndexID, video.TwelveLabsVideoID)
		if err != nil {
			a.log.Warn().Err(err).Str("video_id", video.ID).Msg("video metadata lookup failed")
		} else {
			res.Duration = info.ReportedDuration()
			res.Metadata = collectMetadata(info, res.Duration)
		}
	}

	return res
}

func (a *Analyzer) analyzeContent(ctx context.Context, providerVideoID string) (analysisPayload, error) {
	if providerVideoID == "" {
		return analysisPayload{}, fmt.Errorf("missing provider video id")
	}
	raw, err := a.provider.Analyze(ctx, twelvelabs.AnalyzeRequest{
		VideoID:     providerVideoID,
		Prompt:      analyzePrompt,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return analysisPayload{}, fmt.Errorf("analyze call: %w", err)
	}
	payload, err := parseAnalysis(raw)
	if err != nil {
		return analysisPayload{}, err
	}
	return validate(payload)
}

func (a *Analyzer) analyzeFromFilename(ctx context.Context, name string) (analysisPayload, error) {
	text, err := a.text.GenerateText(ctx, fmt.Sprintf(filenamePromptFormat, name))
	if err != nil {
		return analysisPayload{}, fmt.Errorf("generate call: %w", err)
	}
	payload, err := parseAnalysisText(text)
	if err != nil {
		return analysisPayload{}, err
	}
	return validate(payload)
}

func validate(p analysisPayload) (analysisPayload, error) {
	if len(p.Summary) < minSummaryLen {
		return analysisPayload{}, fmt.Errorf("summary too short (%d chars)", len(p.Summary))
	}
	return p, nil
}

func collectMetadata(info *twelvelabs.VideoInfo, duration *float64) *models.VideoMetadata {
	src := info.Metadata
	if src == nil {
		src = info.SystemMetadata
	}
	if src == nil && duration == nil {
		return nil
	}
	md := &models.VideoMetadata{Duration: duration}
	if src != nil {
		md.Width = src.Width
		md.Height = src.Height
		md.FPS = src.FPS
	}
	if md.Duration == nil && md.Width == nil && md.Height == nil && md.FPS == nil {
		return nil
	}
	return md
}
