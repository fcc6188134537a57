package models

import "time"

type IndexingStatus string

const (
	IndexingPending   IndexingStatus = "pending"
	IndexingRunning   IndexingStatus = "indexing"
	IndexingCompleted IndexingStatus = "completed"
	IndexingFailed    IndexingStatus = "failed"
	IndexingTimeout   IndexingStatus = "timeout"
)

// VideoMetadata carries whatever subset of technical metadata the index
// provider was able to report. Absent fields stay nil and are never written
// to the store.
type VideoMetadata struct {
	Duration *float64 `json:"duration,omitempty"`
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
	FPS      *float64 `json:"fps,omitempty"`
}

// VideoRecord is the single document shape for an uploaded video. Legacy
// variants of this record are mapped into it at the store boundary.
type VideoRecord struct {
	ID           string    `json:"id,omitempty"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	StorageURL   string    `json:"storageUrl"`
	StoragePath  string    `json:"storagePath"`
	FileSize     int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`

	IndexingStatus      IndexingStatus `json:"indexingStatus"`
	TwelveLabsTaskID    string         `json:"twelveLabsTaskId,omitempty"`
	TwelveLabsVideoID   string         `json:"twelveLabsVideoId,omitempty"`
	TwelveLabsIndexID   string         `json:"twelveLabsIndexId,omitempty"`
	IndexingError       string         `json:"indexingError,omitempty"`
	IndexingStartedAt   *time.Time     `json:"indexingStartedAt,omitempty"`
	IndexingCompletedAt *time.Time     `json:"indexingCompletedAt,omitempty"`
	IndexingFailedAt    *time.Time     `json:"indexingFailedAt,omitempty"`

	Summary     string         `json:"summary,omitempty"`
	EmotionTags []string       `json:"emotionTags,omitempty"`
	Duration    *float64       `json:"duration,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
	Metadata    *VideoMetadata `json:"twelveLabsMetadata,omitempty"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`
}

// Title returns the best display name for the video.
func (v *VideoRecord) Title() string {
	if v.OriginalName != "" {
		return v.OriginalName
	}
	if v.FileName != "" {
		return v.FileName
	}
	return "Untitled"
}
