package httpapi

import "net/http"

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)

	// GET /api/videos
	mux.HandleFunc("/api/videos", h.ListVideos)
	// POST /api/videos/upload
	mux.HandleFunc("/api/videos/upload", h.Upload)
	// GET|DELETE /api/videos/{id}, POST /api/videos/{id}/index
	// Trailing slash matters: the handler parses the tail via TrimPrefix.
	mux.HandleFunc("/api/videos/", h.VideoByID)

	// POST /api/search
	mux.HandleFunc("/api/search", h.Search)
	// GET /api/search/emotions
	mux.HandleFunc("/api/search/emotions", h.Emotions)
	// GET /api/search/by-emotion?emotion=joyful
	mux.HandleFunc("/api/search/by-emotion", h.ByEmotion)

	// GET /api/timeline
	mux.HandleFunc("/api/timeline", h.Timeline)

	// POST /api/chat
	mux.HandleFunc("/api/chat", h.Chat)
	// GET /api/chat/history?conversationId=xxx
	mux.HandleFunc("/api/chat/history", h.ChatHistory)

	// POST /api/webhooks/twelvelabs
	mux.HandleFunc("/api/webhooks/twelvelabs", h.TwelveLabsWebhook)

	return mux
}
