package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avelichko/memorylane/internal/memory/models"
)

const promptRules = `You are MemoryLane AI, a warm and helpful assistant that helps users explore and reminisce about their personal video memories.

Rules:
1. Only use details from the provided video context (summaries, emotions, transcripts).
2. If you are unsure or the answer is not in the context, say you don't know.
3. Do not mention internal IDs, filenames, or storage URLs.
4. When referencing a video, use its summary or describe it in a friendly way.
5. If the user asks to show/play/open a video, choose the best matching video.
6. Use the emotion tags to understand the mood of videos and help users find videos by feeling.
7. Be conversational and empathetic - these are personal memories.`

func buildPrompt(message string, history []models.Message, videos []models.VideoRecord) string {
	historyContext := buildHistoryContext(history)
	if historyContext == "" {
		historyContext = "No prior messages."
	}

	var sb strings.Builder
	sb.WriteString(promptRules)
	sb.WriteString("\n\nConversation so far:\n")
	sb.WriteString(historyContext)
	sb.WriteString("\n\nVideo Context:\n")
	sb.WriteString(buildVideoContext(videos))
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(message)
	sb.WriteString("\n\nResponse:")
	return sb.String()
}

// buildVideoContext renders the selected videos as numbered blocks the model
// can quote from. Only fields that exist are included.
func buildVideoContext(videos []models.VideoRecord) string {
	if len(videos) == 0 {
		return "No videos available."
	}

	blocks := make([]string, 0, len(videos))
	for i, v := range videos {
		lines := []string{
			fmt.Sprintf("[%d] id: %s", i+1, v.ID),
			"title: " + v.Title(),
			"uploadedAt: " + formatDate(v.UploadedAt),
		}
		summary := v.Summary
		if summary == "" {
			summary = "No summary available."
		}
		lines = append(lines, "summary: "+summary)
		if len(v.EmotionTags) > 0 {
			lines = append(lines, "emotions: "+strings.Join(v.EmotionTags, ", "))
		}
		if v.Transcript != "" {
			lines = append(lines, "transcript: "+excerpt(v.Transcript, transcriptExcerptLen))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// buildHistoryContext renders the last few turns as plain labelled lines.
func buildHistoryContext(messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "User"
		if m.Role == models.RoleAssistant {
			label = "Assistant"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	return t.Format("1/2/2006")
}

// excerpt cuts at most n bytes, backing up so a multi-byte rune is never
// split.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
