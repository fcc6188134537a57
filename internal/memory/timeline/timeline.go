// Package timeline derives aggregate views of the completed library: a
// month-bucketed emotion timeline with detected milestone moments, and
// library-wide emotion tag statistics.
package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/store"
)

const (
	topEmotionLimit  = 6
	breakdownLimit   = 10
	defaultEmotion   = "joy"
	milestoneDescFmt = "A special %s moment"
)

// milestoneTypes maps a milestone type to the phrases that mark it in a
// video's summary or transcript. First matching type wins per video.
var milestoneTypes = []struct {
	kind     string
	keywords []string
}{
	{"birthday", []string{"birthday", "cake", "celebration", "party", "candles"}},
	{"vacation", []string{"trip", "travel", "vacation", "beach", "holiday trip", "getaway"}},
	{"graduation", []string{"graduation", "degree", "graduate", "diploma", "commencement"}},
	{"wedding", []string{"wedding", "married", "bride", "groom", "ceremony", "vows"}},
	{"birth", []string{"baby", "born", "newborn", "first steps", "infant"}},
	{"holiday", []string{"christmas", "thanksgiving", "easter", "new year", "halloween"}},
}

var milestoneTitles = map[string]string{
	"birthday":   "Birthday Celebration",
	"vacation":   "Vacation Memory",
	"graduation": "Graduation Day",
	"wedding":    "Wedding Moment",
	"birth":      "New Addition",
	"holiday":    "Holiday Memory",
}

// DataPoint is one month's slice of the timeline.
type DataPoint struct {
	Date          string         `json:"date"`
	EmotionTags   map[string]int `json:"emotionTags"`
	VideoCount    int            `json:"videoCount"`
	TotalDuration float64        `json:"totalDuration"`
}

// Milestone is a detected special moment anchored to its month.
type Milestone struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	VideoID      string `json:"videoId"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Emotion      string `json:"emotion"`
}

type Summary struct {
	TotalVideos      int            `json:"totalVideos"`
	TotalDuration    float64        `json:"totalDuration"`
	TopEmotionTags   []string       `json:"topEmotionTags"`
	EmotionBreakdown map[string]int `json:"emotionBreakdown"`
}

type Timeline struct {
	DataPoints []DataPoint `json:"dataPoints"`
	Milestones []Milestone `json:"milestones"`
	Summary    Summary     `json:"summary"`
}

// EmotionStats is the library-wide tag census.
type EmotionStats struct {
	Emotions    []string       `json:"emotions"`
	Counts      map[string]int `json:"counts"`
	TotalVideos int            `json:"totalVideos"`
}

type Service struct {
	videos *store.Videos
	log    zerolog.Logger
}

func New(videos *store.Videos, logger zerolog.Logger) *Service {
	return &Service{
		videos: videos,
		log:    logger.With().Str("component", "timeline").Logger(),
	}
}

// Build assembles the timeline from all completed videos.
func (s *Service) Build(ctx context.Context) (*Timeline, error) {
	videos, err := s.videos.Completed(ctx)
	if err != nil {
		return nil, err
	}

	tl := &Timeline{
		DataPoints: []DataPoint{},
		Milestones: []Milestone{},
		Summary: Summary{
			TopEmotionTags:   []string{},
			EmotionBreakdown: map[string]int{},
		},
	}
	if len(videos) == 0 {
		return tl, nil
	}

	byMonth := map[string][]models.VideoRecord{}
	for _, v := range videos {
		byMonth[monthKey(v.UploadedAt)] = append(byMonth[monthKey(v.UploadedAt)], v)
	}

	aggregated := map[string]int{}
	for key, monthVideos := range byMonth {
		monthTags := map[string]int{}
		var monthDuration float64

		for _, v := range monthVideos {
			for _, tag := range v.EmotionTags {
				norm := strings.ToLower(strings.TrimSpace(tag))
				if norm == "" {
					continue
				}
				monthTags[norm]++
				aggregated[norm]++
			}
			if v.Duration != nil {
				monthDuration += *v.Duration
			}
			if m, ok := detectMilestone(key, v); ok {
				tl.Milestones = append(tl.Milestones, m)
			}
		}

		tl.Summary.TotalDuration += monthDuration
		tl.DataPoints = append(tl.DataPoints, DataPoint{
			Date:          key + "-01",
			EmotionTags:   monthTags,
			VideoCount:    len(monthVideos),
			TotalDuration: monthDuration,
		})
	}

	sort.Slice(tl.DataPoints, func(i, j int) bool {
		return tl.DataPoints[i].Date < tl.DataPoints[j].Date
	})
	sort.Slice(tl.Milestones, func(i, j int) bool {
		if tl.Milestones[i].Date != tl.Milestones[j].Date {
			return tl.Milestones[i].Date < tl.Milestones[j].Date
		}
		return tl.Milestones[i].VideoID < tl.Milestones[j].VideoID
	})

	tl.Summary.TotalVideos = len(videos)
	fillEmotionSummary(&tl.Summary, aggregated)

	s.log.Debug().
		Int("videos", len(videos)).
		Int("data_points", len(tl.DataPoints)).
		Int("milestones", len(tl.Milestones)).
		Msg("timeline built")
	return tl, nil
}

// Emotions returns the tag census over all completed videos.
func (s *Service) Emotions(ctx context.Context) (*EmotionStats, error) {
	videos, err := s.videos.Completed(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, v := range videos {
		for _, tag := range v.EmotionTags {
			norm := strings.ToLower(strings.TrimSpace(tag))
			if norm == "" {
				continue
			}
			counts[norm]++
		}
	}

	emotions := make([]string, 0, len(counts))
	for tag := range counts {
		emotions = append(emotions, tag)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] != counts[emotions[j]] {
			return counts[emotions[i]] > counts[emotions[j]]
		}
		return emotions[i] < emotions[j]
	})

	return &EmotionStats{
		Emotions:    emotions,
		Counts:      counts,
		TotalVideos: len(videos),
	}, nil
}

func monthKey(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// detectMilestone scans summary and transcript for the first milestone type
// whose keywords appear.
func detectMilestone(monthKey string, v models.VideoRecord) (Milestone, bool) {
	text := strings.ToLower(v.Summary + " " + v.Transcript)
	for _, mt := range milestoneTypes {
		for _, kw := range mt.keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			title := v.OriginalName
			if title == "" {
				title = milestoneTitles[mt.kind]
			}
			desc := v.Summary
			if desc == "" {
				desc = fmt.Sprintf(milestoneDescFmt, mt.kind)
			}
			return Milestone{
				ID:           "milestone-" + v.ID,
				Date:         monthKey + "-01",
				Type:         mt.kind,
				Title:        title,
				Description:  desc,
				VideoID:      v.ID,
				ThumbnailURL: v.StorageURL,
				Emotion:      dominantEmotion(v),
			}, true
		}
	}
	return Milestone{}, false
}

func dominantEmotion(v models.VideoRecord) string {
	if len(v.EmotionTags) > 0 {
		return strings.ToLower(strings.TrimSpace(v.EmotionTags[0]))
	}
	return defaultEmotion
}

// fillEmotionSummary computes the top tags and their percentage share.
func fillEmotionSummary(sum *Summary, counts map[string]int) {
	type tagCount struct {
		tag   string
		count int
	}
	sorted := make([]tagCount, 0, len(counts))
	total := 0
	for tag, count := range counts {
		sorted = append(sorted, tagCount{tag, count})
		total += count
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].tag < sorted[j].tag
	})

	for i, tc := range sorted {
		if i < topEmotionLimit {
			sum.TopEmotionTags = append(sum.TopEmotionTags, tc.tag)
		}
		if i < breakdownLimit && total > 0 {
			sum.EmotionBreakdown[tc.tag] = int(math.Round(float64(tc.count) / float64(total) * 100))
		}
	}
}
