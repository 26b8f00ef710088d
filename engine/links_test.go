package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vta/types"
)

func withMeta(m types.Metadata) types.ScoredSegment {
	return types.ScoredSegment{Segment: types.Segment{Metadata: m}}
}

func TestLinkTitleFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		meta types.Metadata
		want string
	}{
		{"title wins", types.Metadata{Title: "Intro to X", TopicTitle: "Forum Thread", URL: "http://a"}, "Intro to X"},
		{"topic title next", types.Metadata{TopicTitle: "Forum Thread", Text: "snippet", URL: "http://a"}, "Forum Thread"},
		{"text next", types.Metadata{Text: "snippet", URL: "http://a"}, "snippet"},
		{"url next", types.Metadata{URL: "http://a"}, "http://a"},
		{"nothing available", types.Metadata{}, "No Title Available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, linkTitle(tt.meta))
		})
	}
}

func TestSourceLinksDedupFirstSeen(t *testing.T) {
	links := SourceLinks([]types.ScoredSegment{
		withMeta(types.Metadata{URL: "http://a", Title: "First Title"}),
		withMeta(types.Metadata{URL: "http://b", Title: "Other"}),
		withMeta(types.Metadata{URL: "http://a", Title: "Later Title"}),
	})
	require.Len(t, links, 2)
	assert.Equal(t, types.SourceLink{URL: "http://a", Title: "First Title"}, links[0])
	assert.Equal(t, types.SourceLink{URL: "http://b", Title: "Other"}, links[1])
}

func TestSourceLinksSkipsSegmentsWithoutURL(t *testing.T) {
	links := SourceLinks([]types.ScoredSegment{
		withMeta(types.Metadata{Title: "Orphan"}),
		withMeta(types.Metadata{URL: "http://a", Title: "Kept"}),
	})
	require.Len(t, links, 1)
	assert.Equal(t, "http://a", links[0].URL)
}

func TestSourceLinksEmptyResults(t *testing.T) {
	assert.Empty(t, SourceLinks(nil))
}
