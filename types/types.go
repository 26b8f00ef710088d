package types

import (
	"fmt"

	"github.com/google/uuid"
)

type SourceType string

const (
	SourceCourseContent SourceType = "course_content"
	SourceDiscoursePost SourceType = "discourse_post"
)

// Metadata is the fixed metadata schema shared by documents and segments.
// Every field is a scalar string: the collection store only accepts scalar
// metadata values, so list-valued fields (tags) are joined before they get here.
type Metadata struct {
	SourceType SourceType `json:"source_type"`
	URL        string     `json:"url,omitempty"`
	Title      string     `json:"title,omitempty"`
	TopicTitle string     `json:"topic_title,omitempty"`
	Text       string     `json:"text,omitempty"`
	PostID     string     `json:"post_id,omitempty"`
	PostNumber string     `json:"post_number,omitempty"`
	Author     string     `json:"author,omitempty"`
	CreatedAt  string     `json:"created_at,omitempty"`
	Tags       string     `json:"tags,omitempty"`
}

// Document is one normalized input record. Documents are not persisted,
// only the segments derived from them are.
type Document struct {
	Text     string
	Metadata Metadata
}

// Segment is the atomic retrieval unit: a bounded slice of a document's
// text carrying a full copy of the parent document's metadata.
type Segment struct {
	ID       uuid.UUID
	Index    int
	Text     string
	Metadata Metadata
}

// ScoredSegment pairs a retrieved segment with its cosine similarity.
type ScoredSegment struct {
	Segment
	Similarity float64
}

// NewSegmentID derives a stable identifier from the segment's source,
// position and content. Re-ingesting unchanged input yields the same IDs,
// so repeated runs overwrite instead of duplicating entries.
func NewSegmentID(source string, index int, text string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d#%s", source, index, text))
}
