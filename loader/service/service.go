package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"vta/loader/internal"
	"vta/model"
	"vta/store"
	"vta/types"
)

type Config struct {
	DataDir string
	Workers int
}

// Service runs the ingestion pipeline: normalize -> split -> embed -> upsert.
type Service struct {
	logger   *slog.Logger
	store    store.CollectionStorer
	embedder model.Embedder
	splitter *internal.SentenceSplitter
	cfg      Config
}

func New(storer store.CollectionStorer, embedder model.Embedder, splitter *internal.SentenceSplitter, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{
		logger:   slog.Default(),
		store:    storer,
		embedder: embedder,
		splitter: splitter,
		cfg:      cfg,
	}
}

// Run executes one batch ingestion. Zero documents is reported, not an
// error; the collection is left untouched in that case.
func (s *Service) Run(ctx context.Context) error {
	docs := internal.LoadDocuments(s.cfg.DataDir)
	if len(docs) == 0 {
		s.logger.Warn("no documents found to index, check the data directory", "dir", s.cfg.DataDir)
		return nil
	}

	var segments []types.Segment
	for _, doc := range docs {
		segments = append(segments, s.splitter.Split(doc)...)
	}
	s.logger.Info("split documents into segments", "documents", len(docs), "segments", len(segments))

	return s.indexSegments(ctx, segments)
}

// indexSegments embeds and upserts segments with a bounded worker pool.
// Writes are independent per segment and unordered. The first failure
// aborts the batch; segments committed before the abort stay committed and
// the error reports how far the run got.
func (s *Service) indexSegments(ctx context.Context, segments []types.Segment) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	segChan := make(chan types.Segment)
	errChan := make(chan error, s.cfg.Workers)
	var committed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range segChan {
				vec, err := s.embedder.Embed(ctx, seg.Text)
				if err != nil {
					errChan <- fmt.Errorf("embed segment %s: %w", seg.ID, err)
					cancel()
					return
				}
				if err := s.store.Upsert(ctx, seg, vec); err != nil {
					errChan <- fmt.Errorf("upsert segment %s: %w", seg.ID, err)
					cancel()
					return
				}
				committed.Add(1)
			}
		}()
	}

feed:
	for _, seg := range segments {
		select {
		case segChan <- seg:
		case <-ctx.Done():
			break feed
		}
	}
	close(segChan)
	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return fmt.Errorf("indexing aborted, %d of %d segments committed: %w",
			committed.Load(), len(segments), err)
	}

	s.logger.Info("indexing complete", "segments", committed.Load())
	return nil
}
