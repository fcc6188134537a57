// Package search turns raw provider hits into scored, grouped results.
// Clip-level hits are scored on a 0-100 scale from their confidence label
// and rank, grouped per underlying video, joined with library metadata and
// filtered by a minimum-score threshold.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

const (
	defaultIndexName = "My Index (Default)"
	defaultPageLimit = 50

	// DefaultMinScore is the cut line for interactive search.
	DefaultMinScore = 50
	// ChatMinScore is the stricter cut line for chat context selection.
	ChatMinScore = 75
)

// SearchClient is the slice of the index provider the ranker needs.
type SearchClient interface {
	ListIndexes(ctx context.Context) ([]twelvelabs.Index, error)
	Search(ctx context.Context, req twelvelabs.SearchRequest) ([]twelvelabs.SearchHit, error)
}

type Options struct {
	// MinScore drops results scoring below it. Zero means DefaultMinScore.
	MinScore int
	// ProviderThreshold is passed through to the provider-side confidence
	// filter. Empty lets the client default apply.
	ProviderThreshold string
	// Limit caps the number of returned results. Zero means no cap.
	Limit int
}

type Config struct {
	Videos   *store.Videos
	Provider SearchClient
	Searches *store.Searches
	Logger   zerolog.Logger

	IndexName string
	PageLimit int
	Score     ScoreConfig
}

type Ranker struct {
	videos   *store.Videos
	provider SearchClient
	searches *store.Searches
	log      zerolog.Logger

	indexName string
	pageLimit int
	score     ScoreConfig
}

func New(cfg Config) (*Ranker, error) {
	if cfg.Videos == nil {
		return nil, fmt.Errorf("video store is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = defaultIndexName
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.Score.Bands == nil {
		cfg.Score = DefaultScoreConfig()
	}
	return &Ranker{
		videos:    cfg.Videos,
		provider:  cfg.Provider,
		searches:  cfg.Searches,
		log:       cfg.Logger.With().Str("component", "search").Logger(),
		indexName: cfg.IndexName,
		pageLimit: cfg.PageLimit,
		score:     cfg.Score,
	}, nil
}

// Search runs a semantic query and returns one scored result per matched
// video, best first. A missing index means nothing was ever indexed, which
// is an empty result rather than an error.
func (r *Ranker) Search(ctx context.Context, query string, opts Options) ([]models.RankedResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}

	idx, found, err := r.findIndex(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		r.log.Debug().Str("query", query).Msg("no index yet, returning empty results")
		return []models.RankedResult{}, nil
	}

	hits, err := r.provider.Search(ctx, twelvelabs.SearchRequest{
		IndexID:   idx.ID,
		Query:     query,
		Options:   searchModalities(idx),
		PageLimit: r.pageLimit,
		Threshold: opts.ProviderThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("provider search: %w", err)
	}

	results := r.group(hits)
	results = r.join(ctx, results)
	results = filterByScore(results, opts.MinScore)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].BestRank < results[j].BestRank
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	r.audit(ctx, query, len(results))
	return results, nil
}

// group folds clip-level hits into one result per provider video id,
// preserving the provider's ordering for first appearance. The result score
// is the best clip's score.
func (r *Ranker) group(hits []twelvelabs.SearchHit) []models.RankedResult {
	byVideo := make(map[string]*models.RankedResult)
	order := make([]string, 0, len(hits))

	for _, hit := range hits {
		score := int(math.Round(r.score.clipScore(hit.Confidence, hit.Rank)))
		clip := models.Clip{
			Start:        hit.Start,
			End:          hit.End,
			Score:        score,
			ThumbnailURL: hit.ThumbnailURL,
		}

		res, ok := byVideo[hit.VideoID]
		if !ok {
			byVideo[hit.VideoID] = &models.RankedResult{
				ProviderVideoID: hit.VideoID,
				Score:           score,
				Confidence:      hit.Confidence,
				BestRank:        hit.Rank,
				Clips:           []models.Clip{clip},
			}
			order = append(order, hit.VideoID)
			continue
		}

		res.Clips = append(res.Clips, clip)
		if score > res.Score {
			res.Score = score
			res.Confidence = hit.Confidence
		}
		if hit.Rank < res.BestRank {
			res.BestRank = hit.Rank
		}
	}

	out := make([]models.RankedResult, 0, len(order))
	for _, id := range order {
		out = append(out, *byVideo[id])
	}
	return out
}

// join attaches library records to results. A hit with no matching record
// (deleted since indexing, or indexed outside the app) keeps its clips and a
// nil Video.
func (r *Ranker) join(ctx context.Context, results []models.RankedResult) []models.RankedResult {
	for i := range results {
		v, err := r.videos.FindByProviderVideoID(ctx, results[i].ProviderVideoID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				r.log.Warn().Err(err).Str("tl_video_id", results[i].ProviderVideoID).Msg("metadata join failed")
			}
			continue
		}
		results[i].Video = v
	}
	return results
}

func filterByScore(results []models.RankedResult, minScore int) []models.RankedResult {
	out := results[:0]
	for _, res := range results {
		if res.Score >= minScore {
			out = append(out, res)
		}
	}
	return out
}

// findIndex resolves the shared index by name. Search never creates the
// index; a missing one reads as "nothing indexed yet".
func (r *Ranker) findIndex(ctx context.Context) (twelvelabs.Index, bool, error) {
	indexes, err := r.provider.ListIndexes(ctx)
	if err != nil {
		return twelvelabs.Index{}, false, fmt.Errorf("list indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx.Name == r.indexName {
			return idx, true, nil
		}
	}
	return twelvelabs.Index{}, false, nil
}

// searchModalities returns the modalities the index's model is configured
// with. Querying a modality the model does not carry is a provider error, so
// an index reporting nothing searches visual only.
func searchModalities(idx twelvelabs.Index) []string {
	if len(idx.Models) > 0 && len(idx.Models[0].Options) > 0 {
		return idx.Models[0].Options
	}
	return []string{"visual"}
}

// audit records the query for usage stats. Failures are logged and ignored.
func (r *Ranker) audit(ctx context.Context, query string, resultCount int) {
	if r.searches == nil {
		return
	}
	if err := r.searches.RecordQuery(ctx, query, resultCount); err != nil {
		r.log.Warn().Err(err).Msg("search audit failed")
	}
}
