package models

// Clip is one matched segment inside a video.
type Clip struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Score        int     `json:"score"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
}

// RankedResult is the merged, scored view of all clips that matched a single
// underlying video. Exactly one exists per distinct provider video id in a
// query's output. It is ephemeral and never persisted.
type RankedResult struct {
	ProviderVideoID string       `json:"videoId"`
	Score           int          `json:"score"`
	Confidence      string       `json:"confidence"`
	BestRank        int          `json:"bestRank"`
	Video           *VideoRecord `json:"video"`
	Clips           []Clip       `json:"clips"`
}
