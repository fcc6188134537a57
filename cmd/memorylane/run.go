package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/blobstore"
	"github.com/avelichko/memorylane/internal/config"
	"github.com/avelichko/memorylane/internal/memory/analyzer"
	"github.com/avelichko/memorylane/internal/memory/chat"
	"github.com/avelichko/memorylane/internal/memory/httpapi"
	"github.com/avelichko/memorylane/internal/memory/indexer"
	"github.com/avelichko/memorylane/internal/memory/outbox"
	"github.com/avelichko/memorylane/internal/memory/search"
	"github.com/avelichko/memorylane/internal/memory/store"
	"github.com/avelichko/memorylane/internal/memory/timeline"
	"github.com/avelichko/memorylane/internal/providers/gemini"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
	pg "github.com/avelichko/memorylane/internal/storage/postgres"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "memorylane").
		Logger()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	docs := pg.NewDocStore(db)
	videos := store.NewVideos(docs)
	conversations := store.NewConversations(docs)
	searches := store.NewSearches(docs)

	blobs, err := blobstore.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return fmt.Errorf("blobstore: %w", err)
	}

	tl, err := twelvelabs.New(twelvelabs.Config{
		APIKey:  cfg.TwelveLabsAPIKey,
		BaseURL: cfg.TwelveLabsBaseURL,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("twelvelabs client: %w", err)
	}

	gm, err := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	contentAnalyzer, err := analyzer.New(analyzer.Config{
		Provider: tl,
		Text:     gm,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	// Without brokers the indexer runs without event delivery.
	var events indexer.EventSink = indexer.NopSink{}
	if len(cfg.KafkaBrokers) > 0 {
		events = outbox.NewSink(pg.NewOutboxRepo(db), log)
	}

	ix, err := indexer.New(indexer.Config{
		Videos:          videos,
		Provider:        tl,
		Analyzer:        contentAnalyzer,
		Events:          events,
		Logger:          log,
		IndexName:       cfg.IndexName,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
	})
	if err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	defer ix.Shutdown()

	ranker, err := search.New(search.Config{
		Videos:    videos,
		Provider:  tl,
		Searches:  searches,
		Logger:    log,
		IndexName: cfg.IndexName,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	chatter, err := chat.New(chat.Config{
		Videos:        videos,
		Conversations: conversations,
		Ranker:        ranker,
		Generator:     gm,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	h := httpapi.New(httpapi.Config{
		Videos:         videos,
		Searches:       searches,
		Conversations:  conversations,
		Blobs:          blobs,
		Indexer:        ix,
		Ranker:         ranker,
		Chat:           chatter,
		Timeline:       timeline.New(videos, log),
		Logger:         log,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewRouter(h))
	// Uploaded files are served straight from the media dir.
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}
