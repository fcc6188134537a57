package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// analysisPayload is the summary/tags shape both providers are asked to
// answer with.
type analysisPayload struct {
	Summary     string   `json:"summary"`
	EmotionTags []string `json:"emotionTags"`
}

var fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// parseAnalysis decodes a provider analysis payload. The wire shape varies:
// a raw object, a JSON string containing an object, or JSON wrapped in a
// fenced code block — sometimes nested under a "data" field. All shapes are
// handled here so call sites never repeat the three-way check.
func parseAnalysis(raw []byte) (analysisPayload, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return analysisPayload{}, errors.New("empty analysis payload")
	}

	// Whole-body JSON string: unwrap and retry on the inner text.
	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			return analysisPayload{}, fmt.Errorf("decode string payload: %w", err)
		}
		return parseAnalysisText(inner)
	}

	var envelope struct {
		Summary     string          `json:"summary"`
		EmotionTags []string        `json:"emotionTags"`
		Data        json.RawMessage `json:"data"`
		Text        string          `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		// Not JSON at all; maybe fenced JSON text.
		return parseAnalysisText(text)
	}

	if envelope.Summary != "" {
		return normalize(analysisPayload{Summary: envelope.Summary, EmotionTags: envelope.EmotionTags}), nil
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return parseAnalysis(envelope.Data)
	}
	if envelope.Text != "" {
		return parseAnalysisText(envelope.Text)
	}
	return analysisPayload{}, errors.New("analysis payload has no summary")
}

// parseAnalysisText handles plain text that should contain JSON, possibly
// inside a fenced code block.
func parseAnalysisText(text string) (analysisPayload, error) {
	text = strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	var payload analysisPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return analysisPayload{}, fmt.Errorf("decode analysis text: %w", err)
	}
	if payload.Summary == "" {
		return analysisPayload{}, errors.New("analysis payload has no summary")
	}
	return normalize(payload), nil
}

// normalize lowercases and trims tags, drops empties, and caps the list at
// four entries.
func normalize(p analysisPayload) analysisPayload {
	p.Summary = strings.TrimSpace(p.Summary)
	tags := make([]string, 0, len(p.EmotionTags))
	for _, tag := range p.EmotionTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == 4 {
			break
		}
	}
	p.EmotionTags = tags
	return p
}
