package engine

import "vta/types"

// SourceLinks builds the citation list for a retrieval result. Titles are
// resolved from metadata with a fixed priority, links are deduplicated by URL
// keeping the first (most similar) occurrence, and segments without a URL
// contribute nothing.
func SourceLinks(results []types.ScoredSegment) []types.SourceLink {
	links := make([]types.SourceLink, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		url := r.Metadata.URL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		links = append(links, types.SourceLink{
			URL:   url,
			Title: linkTitle(r.Metadata),
		})
	}
	return links
}

// linkTitle picks a display title: markdown front-matter first, then the
// Discourse topic title, then the loose front-matter text field, then the URL.
func linkTitle(m types.Metadata) string {
	switch {
	case m.Title != "":
		return m.Title
	case m.TopicTitle != "":
		return m.TopicTitle
	case m.Text != "":
		return m.Text
	case m.URL != "":
		return m.URL
	}
	return "No Title Available"
}
