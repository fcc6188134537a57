package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AttachedVideo is the stripped view of a video attached to an assistant
// message. Only fields intended for display are included.
type AttachedVideo struct {
	ID          string     `json:"id"`
	Title       string     `json:"originalName"`
	Summary     string     `json:"summary"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
	StorageURL  string     `json:"storageUrl"`
	Duration    *float64   `json:"duration,omitempty"`
	EmotionTags []string   `json:"emotionTags"`
	Intent      string     `json:"intent"`
}

type Message struct {
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	AttachedVideos []AttachedVideo `json:"attachedVideos,omitempty"`
}

// Conversation holds an append-only message list. Messages are appended two
// at a time (user turn plus assistant reply) and never mutated afterwards.
type Conversation struct {
	ID        string     `json:"id,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Messages  []Message  `json:"messages"`
}

// LastAttachedVideos returns the attachments of the most recent assistant
// message, or nil when no assistant turn carried any.
func (c *Conversation) LastAttachedVideos() []AttachedVideo {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i].AttachedVideos
		}
	}
	return nil
}
