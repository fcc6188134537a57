// Package indexer drives a video through the indexing lifecycle:
// pending -> indexing -> completed | failed | timeout. Submission happens on
// the caller's request; completion is detected by a detached poll loop per
// task, with a webhook receiver performing the same terminal transitions
// idempotently whenever the provider does deliver notifications.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/docstore"
	"github.com/avelichko/memorylane/internal/memory/analyzer"
	"github.com/avelichko/memorylane/internal/memory/domain"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

const (
	defaultIndexName    = "My Index (Default)"
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 60
)

// ProviderClient is the slice of the index provider the state machine needs.
type ProviderClient interface {
	ListIndexes(ctx context.Context) ([]twelvelabs.Index, error)
	CreateIndex(ctx context.Context, name string, engines []twelvelabs.Engine) (*twelvelabs.Index, error)
	CreateTask(ctx context.Context, indexID, videoURL string) (*twelvelabs.Task, error)
	GetTask(ctx context.Context, taskID string) (*twelvelabs.TaskStatus, error)
}

// ContentAnalyzer produces the summary/tags payload on completion. It never
// fails; any internal fallback still yields a usable result.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, video *models.VideoRecord) analyzer.Result
}

// EventSink receives lifecycle transitions. Implementations are best-effort
// and must not fail the transition.
type EventSink interface {
	StatusChanged(ctx context.Context, videoID string, from, to models.IndexingStatus)
}

type NopSink struct{}

func (NopSink) StatusChanged(context.Context, string, models.IndexingStatus, models.IndexingStatus) {
}

type Config struct {
	Videos   *store.Videos
	Provider ProviderClient
	Analyzer ContentAnalyzer
	Events   EventSink
	Logger   zerolog.Logger

	IndexName       string
	Engines         []twelvelabs.Engine
	PollInterval    time.Duration
	MaxPollAttempts int
	Clock           func() time.Time
}

type Indexer struct {
	videos   *store.Videos
	provider ProviderClient
	analyzer ContentAnalyzer
	events   EventSink
	log      zerolog.Logger

	indexName    string
	engines      []twelvelabs.Engine
	pollInterval time.Duration
	maxAttempts  int
	clock        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	indexID string
}

func New(cfg Config) (*Indexer, error) {
	if cfg.Videos == nil {
		return nil, fmt.Errorf("video store is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	if cfg.IndexName == "" {
		cfg.IndexName = defaultIndexName
	}
	if len(cfg.Engines) == 0 {
		cfg.Engines = []twelvelabs.Engine{{Name: "marengo2.7", Options: []string{"visual", "audio"}}}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		videos:       cfg.Videos,
		provider:     cfg.Provider,
		analyzer:     cfg.Analyzer,
		events:       cfg.Events,
		log:          cfg.Logger.With().Str("component", "indexer").Logger(),
		indexName:    cfg.IndexName,
		engines:      cfg.Engines,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxPollAttempts,
		clock:        cfg.Clock,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Shutdown stops in-flight poll loops and waits for them to drain.
func (ix *Indexer) Shutdown() {
	ix.cancel()
	ix.wg.Wait()
}

type StartResult struct {
	TaskID          string
	ProviderVideoID string
}

// StartIndexing submits an indexing task for the video and returns as soon
// as the task is accepted; completion is handled by a detached poll loop.
// A non-pending video is reset to pending first — external ids and derived
// content cleared before resubmission — so a crash mid-way leaves the record
// re-indexable instead of falsely completed. Completed and in-flight videos
// require force.
func (ix *Indexer) StartIndexing(ctx context.Context, videoID string, force bool) (*StartResult, error) {
	v, err := ix.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.IndexingStatus == models.IndexingRunning && !force {
		return nil, fmt.Errorf("%w: video is already being indexed", models.ErrConflict)
	}
	if v.IndexingStatus == models.IndexingCompleted && !force {
		return nil, fmt.Errorf("%w: video has already been indexed", models.ErrConflict)
	}

	if v.IndexingStatus != models.IndexingPending {
		if err := ix.resetToPending(ctx, videoID); err != nil {
			return nil, err
		}
		v.IndexingStatus = models.IndexingPending
	}

	indexID, err := ix.getOrCreateIndex(ctx)
	if err != nil {
		ix.transitionFailed(ctx, videoID, "index resolution failed: "+err.Error())
		return nil, fmt.Errorf("resolve index: %w", err)
	}

	startedAt := ix.clock().UTC()
	if err := ix.videos.Update(ctx, videoID, map[string]any{
		"indexingStatus":    models.IndexingRunning,
		"twelveLabsIndexId": indexID,
		"indexingStartedAt": startedAt,
	}); err != nil {
		return nil, err
	}
	ix.events.StatusChanged(ctx, videoID, models.IndexingPending, models.IndexingRunning)

	task, err := ix.provider.CreateTask(ctx, indexID, v.StorageURL)
	if err != nil {
		// Submission failures are reported, not retried.
		ix.transitionFailed(ctx, videoID, err.Error())
		return nil, fmt.Errorf("create indexing task: %w", err)
	}

	if err := ix.videos.Update(ctx, videoID, map[string]any{
		"twelveLabsTaskId":  task.ID,
		"twelveLabsVideoId": task.VideoID,
	}); err != nil {
		return nil, err
	}

	ix.log.Info().
		Str("video_id", videoID).
		Str("task_id", task.ID).
		Str("tl_video_id", task.VideoID).
		Msg("indexing task submitted")

	ix.wg.Add(1)
	go ix.poll(videoID, task.ID)

	return &StartResult{TaskID: task.ID, ProviderVideoID: task.VideoID}, nil
}

// poll checks the task on a fixed interval until it reports a terminal
// status or the attempt budget runs out. It is detached from the request
// that started indexing and lives on the indexer's own context.
func (ix *Indexer) poll(videoID, taskID string) {
	defer ix.wg.Done()

	log := ix.log.With().Str("video_id", videoID).Str("task_id", taskID).Logger()
	log.Debug().Msg("poll loop started")

	for attempt := 1; attempt <= ix.maxAttempts; attempt++ {
		select {
		case <-ix.ctx.Done():
			log.Warn().Msg("poll loop stopped by shutdown")
			return
		case <-time.After(ix.pollInterval):
		}

		task, err := ix.provider.GetTask(ix.ctx, taskID)
		if err != nil {
			// Transient check errors are retried on the same interval and
			// do not count as a provider-reported failure.
			if attempt >= ix.maxAttempts {
				ix.transitionFailed(ix.ctx, videoID, "polling error: "+err.Error())
				return
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("task status check failed")
			continue
		}

		switch task.Status {
		case "ready":
			ix.complete(ix.ctx, videoID)
			return
		case "failed":
			msg := task.ErrorMessage
			if msg == "" {
				msg = "indexing failed"
			}
			ix.transitionFailed(ix.ctx, videoID, msg)
			return
		}

		if attempt%10 == 0 {
			log.Debug().Int("attempt", attempt).Str("status", task.Status).Msg("still indexing")
		}
	}

	ix.transitionTimeout(ix.ctx, videoID)
}

type WebhookData struct {
	TaskID       string `json:"task_id"`
	VideoID      string `json:"video_id"`
	IndexID      string `json:"index_id"`
	ErrorMessage string `json:"error_message"`
}

type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// HandleWebhook applies a provider notification. It may arrive before,
// after, or instead of the poll loop's transition; whichever lands first
// wins and the loser is a no-op against the terminal state.
func (ix *Indexer) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	switch ev.Event {
	case "task.ready", "task.completed":
		if ev.Data.VideoID == "" {
			return fmt.Errorf("%w: webhook missing video_id", models.ErrInvalidArgument)
		}
		v, err := ix.videos.FindByProviderVideoID(ctx, ev.Data.VideoID)
		if err != nil {
			return err
		}
		ix.complete(ctx, v.ID)
		return nil

	case "task.failed":
		if ev.Data.VideoID == "" {
			return fmt.Errorf("%w: webhook missing video_id", models.ErrInvalidArgument)
		}
		v, err := ix.videos.FindByProviderVideoID(ctx, ev.Data.VideoID)
		if err != nil {
			return err
		}
		msg := ev.Data.ErrorMessage
		if msg == "" {
			msg = "indexing failed via webhook"
		}
		ix.transitionFailed(ctx, v.ID, msg)
		return nil

	default:
		ix.log.Debug().Str("event", ev.Event).Msg("unhandled webhook event")
		return nil
	}
}

// complete runs content analysis and moves the video to completed. Analysis
// can only degrade, never fail, so the record is never left stuck in
// indexing.
func (ix *Indexer) complete(ctx context.Context, videoID string) {
	v, err := ix.videos.Get(ctx, videoID)
	if err != nil {
		ix.log.Error().Err(err).Str("video_id", videoID).Msg("complete: video lookup failed")
		return
	}
	if domain.IsTerminal(v.IndexingStatus) {
		ix.log.Debug().Str("video_id", videoID).Str("status", string(v.IndexingStatus)).Msg("already terminal, skipping")
		return
	}
	if err := domain.ValidateTransition(v.IndexingStatus, models.IndexingCompleted); err != nil {
		ix.log.Warn().Err(err).Str("video_id", videoID).Msg("complete: transition rejected")
		return
	}

	res := ix.analyzer.Analyze(ctx, v)

	now := ix.clock().UTC()
	fields := map[string]any{
		"indexingStatus":      models.IndexingCompleted,
		"indexingCompletedAt": now,
		"processedAt":         now,
		"summary":             res.Summary,
		"emotionTags":         res.EmotionTags,
	}
	if res.Duration != nil {
		fields["duration"] = *res.Duration
	}
	if res.Metadata != nil {
		fields["twelveLabsMetadata"] = res.Metadata
	}

	if err := ix.videos.Update(ctx, videoID, fields); err != nil {
		ix.log.Error().Err(err).Str("video_id", videoID).Msg("complete: update failed")
		return
	}
	ix.events.StatusChanged(ctx, videoID, v.IndexingStatus, models.IndexingCompleted)
	ix.log.Info().Str("video_id", videoID).Msg("indexing completed")
}

func (ix *Indexer) transitionFailed(ctx context.Context, videoID, message string) {
	ix.terminal(ctx, videoID, models.IndexingFailed, message)
}

func (ix *Indexer) transitionTimeout(ctx context.Context, videoID string) {
	budget := time.Duration(ix.maxAttempts) * ix.pollInterval
	ix.terminal(ctx, videoID, models.IndexingTimeout, fmt.Sprintf("Polling timeout after %s", budget))
}

// terminal writes a failed/timeout state unless the record already reached
// a terminal one; racing transitions resolve to a no-op here.
func (ix *Indexer) terminal(ctx context.Context, videoID string, status models.IndexingStatus, message string) {
	v, err := ix.videos.Get(ctx, videoID)
	if err != nil {
		ix.log.Error().Err(err).Str("video_id", videoID).Msg("terminal transition: video lookup failed")
		return
	}
	if domain.IsTerminal(v.IndexingStatus) {
		return
	}
	if err := domain.ValidateTransition(v.IndexingStatus, status); err != nil {
		ix.log.Warn().Err(err).Str("video_id", videoID).Msg("terminal transition rejected")
		return
	}

	err = ix.videos.Update(ctx, videoID, map[string]any{
		"indexingStatus":   status,
		"indexingError":    message,
		"indexingFailedAt": ix.clock().UTC(),
	})
	if err != nil {
		// The error-status write is itself best-effort.
		ix.log.Error().Err(err).Str("video_id", videoID).Msg("terminal transition: update failed")
		return
	}
	ix.events.StatusChanged(ctx, videoID, v.IndexingStatus, status)
	ix.log.Warn().
		Str("video_id", videoID).
		Str("status", string(status)).
		Str("error", message).
		Msg("indexing did not complete")
}

// resetToPending clears external ids, derived content and error fields
// before a re-index, keeping the "content present iff completed" invariant.
func (ix *Indexer) resetToPending(ctx context.Context, videoID string) error {
	return ix.videos.Update(ctx, videoID, map[string]any{
		"indexingStatus":      models.IndexingPending,
		"twelveLabsVideoId":   docstore.DeleteField,
		"twelveLabsTaskId":    docstore.DeleteField,
		"twelveLabsIndexId":   docstore.DeleteField,
		"indexingError":       docstore.DeleteField,
		"indexingStartedAt":   docstore.DeleteField,
		"indexingCompletedAt": docstore.DeleteField,
		"indexingFailedAt":    docstore.DeleteField,
		"summary":             docstore.DeleteField,
		"emotionTags":         docstore.DeleteField,
		"duration":            docstore.DeleteField,
		"transcript":          docstore.DeleteField,
		"twelveLabsMetadata":  docstore.DeleteField,
		"processedAt":         docstore.DeleteField,
	})
}

// getOrCreateIndex resolves the shared index by its fixed name, creating it
// on first use. The id is cached for the life of the process.
func (ix *Indexer) getOrCreateIndex(ctx context.Context) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.indexID != "" {
		return ix.indexID, nil
	}

	indexes, err := ix.provider.ListIndexes(ctx)
	if err != nil {
		return "", fmt.Errorf("list indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx.Name == ix.indexName {
			ix.indexID = idx.ID
			return idx.ID, nil
		}
	}

	idx, err := ix.provider.CreateIndex(ctx, ix.indexName, ix.engines)
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	ix.indexID = idx.ID
	return idx.ID, nil
}

// IsConflict reports whether err is the "already indexing/indexed" guard.
func IsConflict(err error) bool {
	return errors.Is(err, models.ErrConflict)
}
