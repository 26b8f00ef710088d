package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"vta/types"
)

// Error kinds surfaced to the request boundary. All of them are per-request
// conditions: the process keeps serving.
var (
	ErrNotReady  = errors.New("engine not ready")
	ErrEmbedding = errors.New("embedding unavailable")
	ErrStore     = errors.New("store unavailable")
	ErrSynthesis = errors.New("synthesis failed")
)

// Embedder mirrors model.Embedder so the engine stays testable against stubs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the vector collection.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int) ([]types.ScoredSegment, error)
}

// Generator produces an answer from a question and ordered context passages.
type Generator interface {
	Generate(ctx context.Context, question string, passages []string) (string, error)
}

// Engine is the query side of the knowledge base. It is constructed once and
// only read afterwards, so concurrent requests may share it without locking.
type Engine struct {
	embedder Embedder
	searcher Searcher
	agent    Generator
	topK     int
}

func New(embedder Embedder, searcher Searcher, agent Generator, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		embedder: embedder,
		searcher: searcher,
		agent:    agent,
		topK:     topK,
	}
}

// Retrieve embeds the question and returns up to topK segments in descending
// similarity order. A blank question yields an empty result, not an error;
// the HTTP layer is the one that rejects empty input.
func (e *Engine) Retrieve(ctx context.Context, question string, topK int) ([]types.ScoredSegment, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	results, err := e.searcher.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return results, nil
}

// Answer runs retrieval and synthesis for one question and assembles the
// deduplicated source links from the contributing segments.
func (e *Engine) Answer(ctx context.Context, question string) (string, []types.SourceLink, error) {
	results, err := e.Retrieve(ctx, question, e.topK)
	if err != nil {
		return "", nil, err
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Text
	}

	answer, err := e.agent.Generate(ctx, question, passages)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	return answer, SourceLinks(results), nil
}

// Holder hands out the engine once background construction has finished.
// Until then every Get reports ErrNotReady; if construction failed the
// process stays up but the question endpoint remains degraded.
type Holder struct {
	mu  sync.RWMutex
	eng *Engine
	err error
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Set(e *Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eng = e
	h.err = nil
}

func (h *Holder) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *Holder) Get() (*Engine, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.eng != nil {
		return h.eng, nil
	}
	if h.err != nil {
		return nil, fmt.Errorf("%w: initialization failed: %v", ErrNotReady, h.err)
	}
	return nil, ErrNotReady
}
