package service

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vta/engine"
	"vta/loader/internal"
	"vta/types"
)

// bagEmbedder is a deterministic in-process embedder: a normalized
// bag-of-words vector hashed into a fixed number of dimensions. Similar texts
// share words, so they land close under cosine similarity.
type bagEmbedder struct{}

const bagDims = 16

func (bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, bagDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,!?")))
		vec[h.Sum32()%bagDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider down")
}

type memoryEntry struct {
	seg types.Segment
	vec []float32
}

// memoryStore is an in-process CollectionStorer with brute-force cosine search.
type memoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[uuid.UUID]memoryEntry)}
}

func (m *memoryStore) Init(ctx context.Context) error { return nil }
func (m *memoryStore) Close() error                   { return nil }

func (m *memoryStore) Upsert(ctx context.Context, seg types.Segment, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[seg.ID] = memoryEntry{seg: seg, vec: embedding}
	return nil
}

func (m *memoryStore) Search(ctx context.Context, query []float32, topK int) ([]types.ScoredSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []types.ScoredSegment
	for _, e := range m.entries {
		results = append(results, types.ScoredSegment{Segment: e.seg, Similarity: cosine(query, e.vec)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type cannedAgent struct{}

func (cannedAgent) Generate(ctx context.Context, question string, passages []string) (string, error) {
	if len(passages) == 0 {
		return "I could not find anything relevant.", nil
	}
	return "Based on the course material: " + passages[0], nil
}

func writePosts(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, "discourse_posts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts.json"), []byte(content), 0o644))
}

func newTestService(store *memoryStore, dataDir string, workers int) *Service {
	splitter := internal.NewSentenceSplitter(64, 8, wordCounter{})
	return New(store, bagEmbedder{}, splitter, Config{DataDir: dataDir, Workers: workers})
}

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestIngestThenAnswer(t *testing.T) {
	root := t.TempDir()
	writePosts(t, root, `[
  {"content":"Use pandas to load tabular data into a dataframe.","url":"http://forum/t/pandas/1","topic_title":"Pandas Basics","tags":["python","data"]},
  {"content":"The GA5 deadline was extended to Friday.","url":"http://forum/t/ga5/2","topic_title":"GA5 Deadline"}
]`)

	store := newMemoryStore()
	svc := newTestService(store, root, 2)
	require.NoError(t, svc.Run(context.Background()))
	require.Equal(t, 2, store.len())

	eng := engine.New(bagEmbedder{}, store, cannedAgent{}, 5)
	answer, links, err := eng.Answer(context.Background(), "How do I use pandas to load tabular data?")
	require.NoError(t, err)
	assert.Contains(t, answer, "pandas")
	require.NotEmpty(t, links)
	assert.Equal(t, "http://forum/t/pandas/1", links[0].URL)
	assert.Equal(t, "Pandas Basics", links[0].Title)
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writePosts(t, root, `[{"content":"Use pandas for tabular data.","url":"http://forum/t/pandas/1","topic_title":"Pandas Basics"}]`)

	store := newMemoryStore()
	svc := newTestService(store, root, 2)

	require.NoError(t, svc.Run(context.Background()))
	first := store.len()
	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, first, store.len(), "re-ingesting unchanged input must not grow the collection")
}

func TestRunEmptyDataDir(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, t.TempDir(), 2)
	require.NoError(t, svc.Run(context.Background()))
	assert.Zero(t, store.len())
}

func TestRunAbortsOnEmbedFailure(t *testing.T) {
	root := t.TempDir()
	writePosts(t, root, `[
  {"content":"First record.","url":"http://a"},
  {"content":"Second record.","url":"http://b"}
]`)

	store := newMemoryStore()
	splitter := internal.NewSentenceSplitter(64, 8, wordCounter{})
	svc := New(store, failingEmbedder{}, splitter, Config{DataDir: root, Workers: 1})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing aborted, 0 of")
	assert.ErrorContains(t, err, "provider down")
}
