// Package chat answers conversational questions over the video library. It
// picks the videos worth showing the language model, builds a grounded
// prompt, and appends the exchange to the conversation. The reply itself can
// degrade to a canned message; the selected videos still go out.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/search"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/providers/gemini"
)

const (
	// maxContextVideos caps how many videos enter the prompt.
	maxContextVideos = 5
	// attachLimit caps how many videos ride along with the reply.
	attachLimit = 3
	// historyLimit caps how many prior turns enter the prompt.
	historyLimit = 8
	// transcriptExcerptLen is the per-video transcript slice in the prompt.
	transcriptExcerptLen = 800
)

const (
	defaultReply = "I'm having trouble processing your request right now. Please try again in a moment."

	highDemandReply = "I'm currently experiencing high demand. Based on your videos, I found some matches - you can view them below. Please try your question again in a minute."
)

type Intent string

const (
	IntentShowVideo Intent = "show_video"
	IntentGenerate  Intent = "generate"
	IntentSearch    Intent = "search"
)

var (
	followUpRe = regexp.MustCompile(`(?i)\b(this|that|it|those|these|that one|this one|the last one)\b`)
	showRe     = regexp.MustCompile(`(?i)\b(show|open|play|watch)\b`)
	generateRe = regexp.MustCompile(`(?i)\b(create|generate|make)\b`)
	recentRe   = regexp.MustCompile(`(?i)\b(last|latest|most recent|newest)\b`)
)

// DetectIntent classifies what the user wants done with the matched videos.
func DetectIntent(message string) Intent {
	if showRe.MatchString(message) {
		return IntentShowVideo
	}
	if generateRe.MatchString(message) {
		return IntentGenerate
	}
	return IntentSearch
}

func isFollowUp(message string) bool  { return followUpRe.MatchString(message) }
func wantsRecent(message string) bool { return recentRe.MatchString(message) }

// Ranker is the semantic search dependency.
type Ranker interface {
	Search(ctx context.Context, query string, opts search.Options) ([]models.RankedResult, error)
}

// Generator is the single-turn text completion dependency.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Videos        *store.Videos
	Conversations *store.Conversations
	Ranker        Ranker
	Generator     Generator
	Logger        zerolog.Logger
	Clock         func() time.Time
}

type Selector struct {
	videos        *store.Videos
	conversations *store.Conversations
	ranker        Ranker
	generator     Generator
	log           zerolog.Logger
	clock         func() time.Time
}

func New(cfg Config) (*Selector, error) {
	if cfg.Videos == nil {
		return nil, fmt.Errorf("video store is required")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if cfg.Ranker == nil {
		return nil, fmt.Errorf("ranker is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Selector{
		videos:        cfg.Videos,
		conversations: cfg.Conversations,
		ranker:        cfg.Ranker,
		generator:     cfg.Generator,
		log:           cfg.Logger.With().Str("component", "chat").Logger(),
		clock:         cfg.Clock,
	}, nil
}

type Response struct {
	ConversationID string                 `json:"conversationId"`
	Message        models.Message         `json:"message"`
	AttachedVideos []models.AttachedVideo `json:"attachedVideos"`
}

// Respond handles one user message end to end: select context videos,
// generate a grounded reply, persist the exchange. Generation and
// persistence failures degrade instead of erroring; the user always gets a
// reply and the selected videos.
func (s *Selector) Respond(ctx context.Context, conversationID, message string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrInvalidArgument)
	}

	var history []models.Message
	var lastAttached []models.AttachedVideo
	if conversationID != "" {
		conv, err := s.conversations.Get(ctx, conversationID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			conversationID = ""
		case err != nil:
			return nil, err
		default:
			history = conv.Messages
			lastAttached = conv.LastAttachedVideos()
		}
	}

	intent := DetectIntent(message)
	candidates := s.selectVideos(ctx, message, intent, lastAttached)

	prompt := buildPrompt(message, history, candidates)
	reply := s.generate(ctx, prompt)

	now := s.clock().UTC()
	attached := toAttachments(candidates, intent)
	userMsg := models.Message{Role: models.RoleUser, Content: message, Timestamp: now}
	assistantMsg := models.Message{
		Role:           models.RoleAssistant,
		Content:        reply,
		Timestamp:      now,
		AttachedVideos: attached,
	}

	conversationID = s.persist(ctx, conversationID, userMsg, assistantMsg)

	return &Response{
		ConversationID: conversationID,
		Message:        assistantMsg,
		AttachedVideos: attached,
	}, nil
}

// selectVideos picks the context: follow-ups reuse the previous answer's
// attachments, "show me the latest" takes the newest upload, everything else
// goes through high-confidence semantic search with recent uploads as the
// final fallback.
func (s *Selector) selectVideos(ctx context.Context, message string, intent Intent, lastAttached []models.AttachedVideo) []models.VideoRecord {
	var candidates []models.VideoRecord

	switch {
	case isFollowUp(message) && len(lastAttached) > 0:
		candidates = s.fetchByIDs(ctx, lastAttached)

	case intent == IntentShowVideo && wantsRecent(message):
		recent, err := s.videos.Recent(ctx, 1)
		if err != nil {
			s.log.Warn().Err(err).Msg("recent lookup failed")
		}
		candidates = recent

	default:
		results, err := s.ranker.Search(ctx, message, search.Options{
			MinScore:          search.ChatMinScore,
			ProviderThreshold: "high",
			Limit:             maxContextVideos,
		})
		if err != nil {
			// Search failure falls through to the recency fallback.
			s.log.Warn().Err(err).Msg("context search failed")
		}
		for _, res := range results {
			if res.Video != nil {
				candidates = append(candidates, *res.Video)
			}
		}
	}

	if len(candidates) == 0 {
		recent, err := s.videos.Recent(ctx, maxContextVideos)
		if err != nil {
			s.log.Warn().Err(err).Msg("recent fallback failed")
			return nil
		}
		candidates = recent
	}
	if len(candidates) > maxContextVideos {
		candidates = candidates[:maxContextVideos]
	}
	return candidates
}

func (s *Selector) fetchByIDs(ctx context.Context, attached []models.AttachedVideo) []models.VideoRecord {
	seen := make(map[string]bool, len(attached))
	out := make([]models.VideoRecord, 0, len(attached))
	for _, a := range attached {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		v, err := s.videos.Get(ctx, a.ID)
		if err != nil {
			// Deleted since it was attached; skip.
			continue
		}
		out = append(out, *v)
	}
	return out
}

// generate calls the model and maps failure modes onto canned replies so
// the chat endpoint itself never fails on generation.
func (s *Selector) generate(ctx context.Context, prompt string) string {
	reply, err := s.generator.GenerateText(ctx, prompt)
	if err == nil {
		return reply
	}
	s.log.Warn().Err(err).Msg("reply generation failed")
	if gemini.IsRateLimited(err) {
		return highDemandReply
	}
	return defaultReply
}

// persist appends the exchange, creating the conversation on first use.
// Failures are logged and swallowed; the reply still goes out.
func (s *Selector) persist(ctx context.Context, conversationID string, user, assistant models.Message) string {
	if conversationID == "" {
		id, err := s.conversations.Create(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("conversation create failed")
			return ""
		}
		conversationID = id
	}
	if err := s.conversations.AppendExchange(ctx, conversationID, user, assistant); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("conversation append failed")
	}
	return conversationID
}

func toAttachments(videos []models.VideoRecord, intent Intent) []models.AttachedVideo {
	limit := len(videos)
	if limit > attachLimit {
		limit = attachLimit
	}
	out := make([]models.AttachedVideo, 0, limit)
	for _, v := range videos[:limit] {
		summary := v.Summary
		if summary == "" {
			summary = v.Title()
		}
		tags := v.EmotionTags
		if tags == nil {
			tags = []string{}
		}
		uploadedAt := v.UploadedAt
		var uploadedPtr *time.Time
		if !uploadedAt.IsZero() {
			uploadedPtr = &uploadedAt
		}
		out = append(out, models.AttachedVideo{
			ID:          v.ID,
			Title:       v.Title(),
			Summary:     summary,
			UploadedAt:  uploadedPtr,
			StorageURL:  v.StorageURL,
			Duration:    v.Duration,
			EmotionTags: tags,
			Intent:      string(intent),
		})
	}
	return out
}
