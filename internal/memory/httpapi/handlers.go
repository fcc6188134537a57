// Package httpapi exposes the video memory core over HTTP: upload and
// lifecycle of videos, semantic and emotion search, the timeline, chat and
// the provider webhook.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/blobstore"
	"github.com/avelichko/memorylane/internal/memory/chat"
	"github.com/avelichko/memorylane/internal/memory/indexer"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/search"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/memory/timeline"
)

const (
	listLimit      = 50
	searchLimit    = 10
	byEmotionLimit = 20
	historyLimit   = 50
)

var allowedMimeTypes = map[string]bool{
	"video/mp4":                true,
	"video/quicktime":          true,
	"video/x-msvideo":          true,
	"video/webm":               true,
	"video/mpeg":               true,
	"application/octet-stream": true,
}

var allowedExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".webm": true, ".mpeg": true, ".mkv": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// IndexStarter is the indexing lifecycle dependency.
type IndexStarter interface {
	StartIndexing(ctx context.Context, videoID string, force bool) (*indexer.StartResult, error)
	HandleWebhook(ctx context.Context, ev indexer.WebhookEvent) error
}

// Searcher runs scored semantic queries.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]models.RankedResult, error)
}

// Chatter answers conversational questions over the library.
type Chatter interface {
	Respond(ctx context.Context, conversationID, message string) (*chat.Response, error)
}

// TimelineBuilder produces the aggregate library views.
type TimelineBuilder interface {
	Build(ctx context.Context) (*timeline.Timeline, error)
	Emotions(ctx context.Context) (*timeline.EmotionStats, error)
}

type Config struct {
	Videos        *store.Videos
	Searches      *store.Searches
	Conversations *store.Conversations
	Blobs         blobstore.Store
	Indexer       IndexStarter
	Ranker        Searcher
	Chat          Chatter
	Timeline      TimelineBuilder
	Logger        zerolog.Logger

	MaxUploadBytes int64
	Clock          func() time.Time
}

type Handler struct {
	videos        *store.Videos
	searches      *store.Searches
	conversations *store.Conversations
	blobs         blobstore.Store
	indexer       IndexStarter
	ranker        Searcher
	chat          Chatter
	timeline      TimelineBuilder
	log           zerolog.Logger

	maxUploadBytes int64
	clock          func() time.Time
}

func New(cfg Config) *Handler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 500 << 20
	}
	return &Handler{
		videos:         cfg.Videos,
		searches:       cfg.Searches,
		conversations:  cfg.Conversations,
		blobs:          cfg.Blobs,
		indexer:        cfg.Indexer,
		ranker:         cfg.Ranker,
		chat:           cfg.Chat,
		timeline:       cfg.Timeline,
		log:            cfg.Logger.With().Str("component", "httpapi").Logger(),
		maxUploadBytes: cfg.MaxUploadBytes,
		clock:          cfg.Clock,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListVideos handles GET /api/videos.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	videos, err := h.videos.Recent(r.Context(), listLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("list videos failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, VideoListResponse{Success: true, Videos: videos, Count: len(videos)})
}

// Upload handles POST /api/videos/upload: multipart form with a "video"
// field. The record starts in pending; indexing is a separate request.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("video")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "no video file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedUpload(header.Filename, contentType) {
		writeErrorJSON(w, http.StatusBadRequest,
			fmt.Sprintf("invalid file type: %s, only video files are allowed", contentType))
		return
	}

	now := h.clock().UTC()
	fileName := fmt.Sprintf("%d_%s", now.UnixMilli(), unsafeFilenameChars.ReplaceAllString(header.Filename, "_"))
	storagePath := "videos/" + fileName

	publicURL, err := h.blobs.Upload(r.Context(), storagePath, file, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("path", storagePath).Msg("blob upload failed")
		writeErrorJSON(w, http.StatusInternalServerError, "upload failed")
		return
	}

	id, err := h.videos.Create(r.Context(), &models.VideoRecord{
		FileName:       fileName,
		OriginalName:   header.Filename,
		StorageURL:     publicURL,
		StoragePath:    storagePath,
		FileSize:       header.Size,
		MimeType:       contentType,
		UploadedAt:     now,
		IndexingStatus: models.IndexingPending,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("video record create failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.log.Info().Str("video_id", id).Str("file", header.Filename).Int64("size", header.Size).Msg("video uploaded")
	writeJSON(w, http.StatusCreated, UploadResponse{
		Success: true,
		VideoID: id,
		URL:     publicURL,
		Message: "Video uploaded successfully",
	})
}

// VideoByID dispatches /api/videos/{id} and /api/videos/{id}/index.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if path == "" || path == r.URL.Path {
		writeErrorJSON(w, http.StatusBadRequest, "missing id")
		return
	}

	if id, ok := strings.CutSuffix(path, "/index"); ok {
		h.startIndexing(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getVideo(w, r, path)
	case http.MethodDelete:
		h.deleteVideo(w, r, path)
	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, id string) {
	v, err := h.videos.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "video not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, VideoResponse{Success: true, VideoRecord: *v})
}

// deleteVideo removes the stored file first, then the record. A storage
// failure is logged and does not block the record deletion.
func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, id string) {
	v, err := h.videos.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "video not found: "+id)
		return
	}

	if v.StoragePath != "" {
		if err := h.blobs.Delete(r.Context(), v.StoragePath); err != nil {
			h.log.Warn().Err(err).Str("path", v.StoragePath).Msg("storage delete failed")
		}
	}

	if err := h.videos.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "video not found: "+id)
		return
	}

	h.log.Info().Str("video_id", id).Msg("video deleted")
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Video deleted successfully"})
}

// startIndexing handles POST /api/videos/{id}/index?force=true.
func (h *Handler) startIndexing(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	res, err := h.indexer.StartIndexing(r.Context(), id, force)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeJSON(w, http.StatusNotFound, StatusResponse{Message: "video not found: " + id})
		case errors.Is(err, models.ErrConflict):
			writeJSON(w, http.StatusBadRequest, StatusResponse{Message: conflictMessage(err)})
		default:
			h.log.Error().Err(err).Str("video_id", id).Msg("start indexing failed")
			writeJSON(w, http.StatusInternalServerError, StatusResponse{Message: "indexing failed to start"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, IndexResponse{
		Success: true,
		Message: "Indexing started",
		TaskID:  res.TaskID,
		Status:  string(models.IndexingRunning),
	})
}

// Search handles POST /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "search query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = searchLimit
	}

	results, err := h.ranker.Search(r.Context(), req.Query, search.Options{Limit: req.Limit})
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			writeErrorJSON(w, http.StatusBadRequest, "invalid argument")
			return
		}
		h.log.Error().Err(err).Str("query", req.Query).Msg("search failed")
		writeErrorJSON(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Results: results, Total: len(results)})
}

// Emotions handles GET /api/search/emotions.
func (h *Handler) Emotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.timeline.Emotions(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("emotion stats failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ByEmotion handles GET /api/search/by-emotion?emotion=joyful&limit=20.
func (h *Handler) ByEmotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	emotion := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("emotion")))
	if emotion == "" {
		writeErrorJSON(w, http.StatusBadRequest, "emotion parameter is required")
		return
	}
	limit := queryInt(r, "limit", byEmotionLimit)

	videos, err := h.videos.ByEmotion(r.Context(), emotion, limit)
	if err != nil {
		h.log.Error().Err(err).Str("emotion", emotion).Msg("by-emotion search failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Audit is best-effort.
	if err := h.searches.RecordEmotion(r.Context(), emotion, len(videos)); err != nil {
		h.log.Warn().Err(err).Msg("emotion audit failed")
	}

	writeJSON(w, http.StatusOK, ByEmotionResponse{Emotion: emotion, Results: videos, Total: len(videos)})
}

// Timeline handles GET /api/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tl, err := h.timeline.Build(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("timeline build failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	resp, err := h.chat.Respond(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			writeErrorJSON(w, http.StatusBadRequest, "message is required")
			return
		}
		h.log.Error().Err(err).Msg("chat failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChatHistory handles GET /api/chat/history?conversationId=xxx&limit=50.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "conversationId is required")
		return
	}
	limit := queryInt(r, "limit", historyLimit)

	conv, err := h.conversations.Get(r.Context(), conversationID)
	if errors.Is(err, models.ErrNotFound) {
		// Unknown conversations read as empty, matching a fresh chat.
		writeJSON(w, http.StatusOK, ChatHistoryResponse{ConversationID: conversationID, Messages: []models.Message{}})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("chat history failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	messages := conv.Messages
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	writeJSON(w, http.StatusOK, ChatHistoryResponse{
		ConversationID: conversationID,
		Messages:       messages,
		CreatedAt:      conv.CreatedAt,
	})
}

// TwelveLabsWebhook handles POST /api/webhooks/twelvelabs. Unknown events
// and unknown videos are acknowledged so the provider stops retrying.
func (h *Handler) TwelveLabsWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	var ev indexer.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := h.indexer.HandleWebhook(r.Context(), ev); err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidArgument) {
			h.log.Warn().Err(err).Str("event", ev.Event).Msg("webhook ignored")
			writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Webhook processed"})
			return
		}
		h.log.Error().Err(err).Str("event", ev.Event).Msg("webhook failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Webhook processed"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, models.ErrInvalidArgument):
		writeErrorJSON(w, http.StatusBadRequest, "invalid argument")
	default:
		h.log.Error().Err(err).Msg("request failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func allowedUpload(filename, contentType string) bool {
	if allowedMimeTypes[contentType] {
		return true
	}
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return allowedExtensions[strings.ToLower(filename[i:])]
	}
	return false
}

// conflictMessage strips the sentinel prefix so the client sees the reason.
func conflictMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
