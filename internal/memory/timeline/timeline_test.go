package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/memorylane/internal/docstore"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/store"
)

func newService(t *testing.T) (*Service, *store.Videos) {
	t.Helper()
	videos := store.NewVideos(docstore.NewMemoryStore())
	return New(videos, zerolog.Nop()), videos
}

func seed(t *testing.T, videos *store.Videos, v models.VideoRecord) string {
	t.Helper()
	if v.IndexingStatus == "" {
		v.IndexingStatus = models.IndexingCompleted
	}
	id, err := videos.Create(context.Background(), &v)
	require.NoError(t, err)
	return id
}

func dur(v float64) *float64 { return &v }

func TestBuild_Empty(t *testing.T) {
	svc, _ := newService(t)

	tl, err := svc.Build(context.Background())
	require.NoError(t, err)

	assert.Empty(t, tl.DataPoints)
	assert.Empty(t, tl.Milestones)
	assert.Equal(t, 0, tl.Summary.TotalVideos)
	assert.NotNil(t, tl.Summary.EmotionBreakdown)
}

func TestBuild_MonthBucketsAndSummary(t *testing.T) {
	svc, videos := newService(t)

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	seed(t, videos, models.VideoRecord{
		UploadedAt:  jan,
		EmotionTags: []string{"Joyful", "cozy"},
		Duration:    dur(30),
	})
	seed(t, videos, models.VideoRecord{
		UploadedAt:  jan.AddDate(0, 0, 15),
		EmotionTags: []string{"joyful"},
		Duration:    dur(45),
	})
	seed(t, videos, models.VideoRecord{
		UploadedAt:  time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		EmotionTags: []string{"serene"},
		Duration:    dur(25),
	})
	// Incomplete videos stay out of the timeline.
	seed(t, videos, models.VideoRecord{
		UploadedAt:     jan,
		IndexingStatus: models.IndexingPending,
		EmotionTags:    []string{"excited"},
	})

	tl, err := svc.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, tl.DataPoints, 2)
	assert.Equal(t, "2025-01-01", tl.DataPoints[0].Date)
	assert.Equal(t, 2, tl.DataPoints[0].VideoCount)
	assert.Equal(t, 75.0, tl.DataPoints[0].TotalDuration)
	assert.Equal(t, map[string]int{"joyful": 2, "cozy": 1}, tl.DataPoints[0].EmotionTags)
	assert.Equal(t, "2025-03-01", tl.DataPoints[1].Date)

	assert.Equal(t, 3, tl.Summary.TotalVideos)
	assert.Equal(t, 100.0, tl.Summary.TotalDuration)
	assert.Equal(t, []string{"joyful", "cozy", "serene"}, tl.Summary.TopEmotionTags)
	assert.Equal(t, 50, tl.Summary.EmotionBreakdown["joyful"])
	assert.Equal(t, 25, tl.Summary.EmotionBreakdown["cozy"])
}

func TestBuild_Milestones(t *testing.T) {
	svc, videos := newService(t)

	when := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	birthdayID := seed(t, videos, models.VideoRecord{
		UploadedAt:   when,
		OriginalName: "grandpa80.mp4",
		Summary:      "Grandpa blowing out the candles on his cake.",
		EmotionTags:  []string{"heartwarming"},
	})
	seed(t, videos, models.VideoRecord{
		UploadedAt: when,
		Summary:    "A quiet evening at home, nothing special.",
	})
	weddingID := seed(t, videos, models.VideoRecord{
		UploadedAt: when,
		Summary:    "",
		Transcript: "and now I pronounce you bride and groom",
	})

	tl, err := svc.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, tl.Milestones, 2)
	byVideo := map[string]Milestone{}
	for _, m := range tl.Milestones {
		byVideo[m.VideoID] = m
	}

	birthday := byVideo[birthdayID]
	assert.Equal(t, "birthday", birthday.Type)
	assert.Equal(t, "grandpa80.mp4", birthday.Title)
	assert.Equal(t, "2025-05-01", birthday.Date)
	assert.Equal(t, "heartwarming", birthday.Emotion)
	assert.Equal(t, "milestone-"+birthdayID, birthday.ID)

	wedding := byVideo[weddingID]
	assert.Equal(t, "wedding", wedding.Type)
	// No original name or summary: canned title and description kick in.
	assert.Equal(t, "Wedding Moment", wedding.Title)
	assert.Equal(t, "A special wedding moment", wedding.Description)
	assert.Equal(t, "joy", wedding.Emotion)
}

func TestBuild_FirstMilestoneTypeWins(t *testing.T) {
	svc, videos := newService(t)

	// Matches both birthday ("party") and vacation ("beach"); birthday is
	// checked first.
	seed(t, videos, models.VideoRecord{
		UploadedAt: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Summary:    "A beach party for the whole crew.",
	})

	tl, err := svc.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, tl.Milestones, 1)
	assert.Equal(t, "birthday", tl.Milestones[0].Type)
}

func TestEmotions(t *testing.T) {
	svc, videos := newService(t)

	seed(t, videos, models.VideoRecord{EmotionTags: []string{"Joyful", "cozy "}})
	seed(t, videos, models.VideoRecord{EmotionTags: []string{"joyful"}})
	seed(t, videos, models.VideoRecord{EmotionTags: []string{"serene"}})
	seed(t, videos, models.VideoRecord{
		IndexingStatus: models.IndexingFailed,
		EmotionTags:    []string{"excluded"},
	})

	stats, err := svc.Emotions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalVideos)
	assert.Equal(t, []string{"joyful", "cozy", "serene"}, stats.Emotions)
	assert.Equal(t, map[string]int{"joyful": 2, "cozy": 1, "serene": 1}, stats.Counts)
}

func TestEmotions_Empty(t *testing.T) {
	svc, _ := newService(t)

	stats, err := svc.Emotions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.Emotions)
	assert.Equal(t, 0, stats.TotalVideos)
}
