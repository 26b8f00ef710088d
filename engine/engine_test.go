package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vta/types"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

type stubSearcher struct {
	results []types.ScoredSegment
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query []float32, topK int) ([]types.ScoredSegment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

type stubAgent struct {
	answer   string
	err      error
	passages []string
}

func (s *stubAgent) Generate(ctx context.Context, question string, passages []string) (string, error) {
	s.passages = passages
	return s.answer, s.err
}

func scored(url, text string, sim float64) types.ScoredSegment {
	return types.ScoredSegment{
		Segment: types.Segment{
			ID:       uuid.New(),
			Text:     text,
			Metadata: types.Metadata{URL: url, TopicTitle: "Topic"},
		},
		Similarity: sim,
	}
}

func TestRetrieveBlankQuestion(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1}}
	e := New(emb, &stubSearcher{}, &stubAgent{}, 5)

	results, err := e.Retrieve(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Zero(t, emb.calls, "embedder should not be called for a blank question")
}

func TestRetrieveOrderPreserved(t *testing.T) {
	want := []types.ScoredSegment{
		scored("http://a", "first", 0.9),
		scored("http://b", "second", 0.8),
		scored("http://c", "third", 0.7),
	}
	e := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{results: want}, &stubAgent{}, 5)

	got, err := e.Retrieve(context.Background(), "question", 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Text, got[i].Text)
	}
}

func TestRetrieveErrorKinds(t *testing.T) {
	e := New(&stubEmbedder{err: errors.New("boom")}, &stubSearcher{}, &stubAgent{}, 5)
	_, err := e.Retrieve(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrEmbedding)

	e = New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{err: errors.New("down")}, &stubAgent{}, 5)
	_, err = e.Retrieve(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrStore)
}

func TestAnswerPassesPassagesInOrder(t *testing.T) {
	agent := &stubAgent{answer: "use pandas"}
	results := []types.ScoredSegment{
		scored("http://a", "first", 0.9),
		scored("http://a", "second", 0.8),
		scored("http://b", "third", 0.7),
	}
	e := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{results: results}, agent, 5)

	answer, links, err := e.Answer(context.Background(), "how?")
	require.NoError(t, err)
	assert.Equal(t, "use pandas", answer)
	assert.Equal(t, []string{"first", "second", "third"}, agent.passages)
	require.Len(t, links, 2, "duplicate URLs collapse into one link")
	assert.Equal(t, "http://a", links[0].URL)
	assert.Equal(t, "http://b", links[1].URL)
}

func TestAnswerSynthesisError(t *testing.T) {
	agent := &stubAgent{err: errors.New("model offline")}
	e := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{}, agent, 5)

	_, _, err := e.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSynthesis)
}

func TestHolderLifecycle(t *testing.T) {
	h := NewHolder()

	_, err := h.Get()
	assert.ErrorIs(t, err, ErrNotReady)

	h.Fail(errors.New("pg unreachable"))
	_, err = h.Get()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "pg unreachable")

	eng := New(&stubEmbedder{vec: []float32{1}}, &stubSearcher{}, &stubAgent{}, 5)
	h.Set(eng)
	got, err := h.Get()
	require.NoError(t, err)
	assert.Same(t, eng, got)
}
