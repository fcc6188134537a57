package chat

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/avelichko/memorylane/internal/memory/models"
)

func TestBuildVideoContext_Empty(t *testing.T) {
	assert.Equal(t, "No videos available.", buildVideoContext(nil))
}

func TestBuildVideoContext_Blocks(t *testing.T) {
	uploaded := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	videos := []models.VideoRecord{
		{
			ID:           "v1",
			OriginalName: "lake.mp4",
			UploadedAt:   uploaded,
			Summary:      "Sunset over the lake.",
			EmotionTags:  []string{"serene", "nostalgic"},
			Transcript:   strings.Repeat("x", 1000),
		},
		{
			ID:       "v2",
			FileName: "raw_0001.mp4",
		},
	}

	got := buildVideoContext(videos)

	assert.Contains(t, got, "[1] id: v1")
	assert.Contains(t, got, "title: lake.mp4")
	assert.Contains(t, got, "uploadedAt: 3/14/2025")
	assert.Contains(t, got, "emotions: serene, nostalgic")
	// Transcript is excerpted, not included whole.
	assert.Contains(t, got, "transcript: "+strings.Repeat("x", transcriptExcerptLen))
	assert.NotContains(t, got, strings.Repeat("x", transcriptExcerptLen+1))

	assert.Contains(t, got, "[2] id: v2")
	assert.Contains(t, got, "title: raw_0001.mp4")
	assert.Contains(t, got, "summary: No summary available.")
	assert.NotContains(t, got, "emotions: \n")
}

func TestExcerpt_NeverSplitsRunes(t *testing.T) {
	// "é" is two bytes; an odd cut length lands mid-rune and must back up.
	s := strings.Repeat("é", 500)

	got := excerpt(s, 801)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 800, len(got))
	assert.Equal(t, s, excerpt(s, 2000))
}

func TestBuildHistoryContext_LimitsTurns(t *testing.T) {
	var messages []models.Message
	for i := 0; i < 12; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		messages = append(messages, models.Message{Role: role, Content: string(rune('a' + i))})
	}

	got := buildHistoryContext(messages)
	lines := strings.Split(got, "\n")

	assert.Len(t, lines, historyLimit)
	// Only the most recent turns survive.
	assert.Equal(t, "User: e", lines[0])
	assert.Equal(t, "Assistant: l", lines[len(lines)-1])
}

func TestBuildPrompt_Framing(t *testing.T) {
	got := buildPrompt("where did we hike?", nil, nil)

	assert.Contains(t, got, "You are MemoryLane AI")
	assert.Contains(t, got, "No prior messages.")
	assert.Contains(t, got, "No videos available.")
	assert.Contains(t, got, "User Question: where did we hike?")
	assert.True(t, strings.HasSuffix(got, "Response:"))
}
