package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/memorylane/internal/docstore"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

type rankerFixture struct {
	db       *docstore.MemoryStore
	videos   *store.Videos
	provider *ProviderMock
	ranker   *Ranker
}

func newRankerFixture(t *testing.T) *rankerFixture {
	t.Helper()

	db := docstore.NewMemoryStore()
	videos := store.NewVideos(db)
	provider := new(ProviderMock)

	r, err := New(Config{
		Videos:   videos,
		Provider: provider,
		Searches: store.NewSearches(db),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	return &rankerFixture{db: db, videos: videos, provider: provider, ranker: r}
}

func (f *rankerFixture) seedVideo(t *testing.T, providerVideoID, name string) string {
	t.Helper()
	id, err := f.videos.Create(context.Background(), &models.VideoRecord{
		OriginalName:      name,
		IndexingStatus:    models.IndexingCompleted,
		TwelveLabsVideoID: providerVideoID,
	})
	require.NoError(t, err)
	return id
}

func (f *rankerFixture) expectIndex() {
	f.provider.On("ListIndexes", mock.Anything).
		Return([]twelvelabs.Index{{
			ID:     "idx-1",
			Name:   "My Index (Default)",
			Models: []twelvelabs.IndexModel{{Options: []string{"visual", "audio"}}},
		}}, nil).Once()
}

func TestSearch_GroupsClipsPerVideo(t *testing.T) {
	f := newRankerFixture(t)
	f.seedVideo(t, "tl-a", "beach_trip.mp4")
	f.seedVideo(t, "tl-b", "hike.mp4")

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(req twelvelabs.SearchRequest) bool {
		return req.IndexID == "idx-1" && req.Query == "day at the beach" &&
			assert.ObjectsAreEqual([]string{"visual", "audio"}, req.Options) &&
			req.PageLimit == defaultPageLimit
	})).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-a", Rank: 1, Confidence: "high", Start: 0, End: 12},
		{VideoID: "tl-b", Rank: 2, Confidence: "medium", Start: 5, End: 9},
		{VideoID: "tl-a", Rank: 3, Confidence: "medium", Start: 30, End: 44},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "day at the beach", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// tl-a merges two clips and keeps its best clip's score and confidence.
	first := results[0]
	assert.Equal(t, "tl-a", first.ProviderVideoID)
	assert.Equal(t, 100, first.Score)
	assert.Equal(t, "high", first.Confidence)
	assert.Equal(t, 1, first.BestRank)
	require.Len(t, first.Clips, 2)
	assert.Equal(t, 100, first.Clips[0].Score)
	assert.Equal(t, 78, first.Clips[1].Score)
	require.NotNil(t, first.Video)
	assert.Equal(t, "beach_trip.mp4", first.Video.OriginalName)

	second := results[1]
	assert.Equal(t, "tl-b", second.ProviderVideoID)
	assert.Equal(t, 81, second.Score)
	require.NotNil(t, second.Video)
}

func TestSearch_ThresholdFiltersWeakResults(t *testing.T) {
	f := newRankerFixture(t)
	f.seedVideo(t, "tl-a", "strong.mp4")
	f.seedVideo(t, "tl-b", "weak.mp4")

	f.expectIndex()
	// low confidence at rank 5 scores 47, below the default cut of 50.
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-a", Rank: 1, Confidence: "high"},
		{VideoID: "tl-b", Rank: 5, Confidence: "low"},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tl-a", results[0].ProviderVideoID)
}

func TestSearch_ChatThresholdIsStricter(t *testing.T) {
	f := newRankerFixture(t)
	f.seedVideo(t, "tl-a", "high.mp4")
	f.seedVideo(t, "tl-b", "medium.mp4")

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(req twelvelabs.SearchRequest) bool {
		return req.Threshold == "high"
	})).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-a", Rank: 1, Confidence: "high"},
		{VideoID: "tl-b", Rank: 5, Confidence: "medium"},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{
		MinScore:          ChatMinScore,
		ProviderThreshold: "high",
	})
	require.NoError(t, err)

	// medium at rank 5 scores 72, below the chat cut of 75. The same result
	// would have survived the default cut of 50.
	require.Len(t, results, 1)
	assert.Equal(t, "tl-a", results[0].ProviderVideoID)
}

func TestSearch_OrdersByScoreThenRank(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-c", Rank: 4, Confidence: "medium"},
		{VideoID: "tl-a", Rank: 2, Confidence: "high"},
		{VideoID: "tl-b", Rank: 1, Confidence: "high"},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "tl-b", results[0].ProviderVideoID) // 100
	assert.Equal(t, "tl-a", results[1].ProviderVideoID) // 97
	assert.Equal(t, "tl-c", results[2].ProviderVideoID) // 75
}

func TestSearch_TieBreaksOnBestRank(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	// Both land on the high-band floor; the earlier rank wins the tie.
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-late", Rank: 9, Confidence: "high"},
		{VideoID: "tl-early", Rank: 8, Confidence: "high"},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, "tl-early", results[0].ProviderVideoID)
}

func TestSearch_UnknownVideoKeepsClips(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-ghost", Rank: 1, Confidence: "high", Start: 3, End: 8},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Video)
	require.Len(t, results[0].Clips, 1)
}

func TestSearch_UsesIndexModalities(t *testing.T) {
	f := newRankerFixture(t)

	// An index whose model carries only visual must not be queried for audio.
	f.provider.On("ListIndexes", mock.Anything).
		Return([]twelvelabs.Index{{
			ID:     "idx-1",
			Name:   "My Index (Default)",
			Models: []twelvelabs.IndexModel{{Options: []string{"visual"}}},
		}}, nil).Once()

	var got []string
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(req twelvelabs.SearchRequest) bool {
		got = req.Options
		return true
	})).Return([]twelvelabs.SearchHit{}, nil).Once()

	_, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visual"}, got)
}

func TestSearch_NoModelOptionsFallsBackToVisual(t *testing.T) {
	f := newRankerFixture(t)

	f.provider.On("ListIndexes", mock.Anything).
		Return([]twelvelabs.Index{{ID: "idx-1", Name: "My Index (Default)"}}, nil).Once()

	var got []string
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(req twelvelabs.SearchRequest) bool {
		got = req.Options
		return true
	})).Return([]twelvelabs.SearchHit{}, nil).Once()

	_, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visual"}, got)
}

func TestSearch_NoIndexReturnsEmpty(t *testing.T) {
	f := newRankerFixture(t)

	f.provider.On("ListIndexes", mock.Anything).
		Return([]twelvelabs.Index{}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
	f.provider.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearch_LimitCapsResults(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-a", Rank: 1, Confidence: "high"},
		{VideoID: "tl-b", Rank: 2, Confidence: "high"},
		{VideoID: "tl-c", Rank: 3, Confidence: "high"},
	}, nil).Once()

	results, err := f.ranker.Search(context.Background(), "anything", Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	f := newRankerFixture(t)

	_, err := f.ranker.Search(context.Background(), "", Options{})
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestSearch_ProviderErrorSurfaces(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream 500")).Once()

	_, err := f.ranker.Search(context.Background(), "anything", Options{})
	require.Error(t, err)
}

func TestSearch_AuditRecorded(t *testing.T) {
	f := newRankerFixture(t)

	f.expectIndex()
	f.provider.On("Search", mock.Anything, mock.Anything).Return([]twelvelabs.SearchHit{
		{VideoID: "tl-a", Rank: 1, Confidence: "high"},
	}, nil).Once()

	_, err := f.ranker.Search(context.Background(), "beach day", Options{})
	require.NoError(t, err)

	docs, err := f.db.Query(context.Background(), "searches", docstore.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var audit struct {
		Query       string `json:"query"`
		ResultCount int    `json:"resultCount"`
	}
	require.NoError(t, docs[0].Decode(&audit))
	assert.Equal(t, "beach day", audit.Query)
	assert.Equal(t, 1, audit.ResultCount)
}
