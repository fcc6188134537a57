package httpapi

import (
	"time"

	"github.com/avelichko/memorylane/internal/memory/models"
)

type VideoListResponse struct {
	Success bool                 `json:"success"`
	Videos  []models.VideoRecord `json:"videos"`
	Count   int                  `json:"count"`
}

type VideoResponse struct {
	Success bool `json:"success"`
	models.VideoRecord
}

type UploadResponse struct {
	Success bool   `json:"success"`
	VideoID string `json:"videoId"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

type IndexResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"taskId,omitempty"`
	Status  string `json:"status,omitempty"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []models.RankedResult `json:"results"`
	Total   int                   `json:"total"`
}

type ByEmotionResponse struct {
	Emotion string               `json:"emotion"`
	Results []models.VideoRecord `json:"results"`
	Total   int                  `json:"total"`
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type ChatHistoryResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
	CreatedAt      *time.Time       `json:"createdAt,omitempty"`
}
