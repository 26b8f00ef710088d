package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vta/types"
)

// LoadDocuments walks the two recognized subtrees of the data root and
// normalizes every usable record into a Document. A missing subtree or a
// malformed record is logged and skipped; nothing here is fatal, the caller
// decides what an empty result means.
func LoadDocuments(root string) []types.Document {
	var docs []types.Document
	docs = append(docs, loadCourseContent(filepath.Join(root, "course_content"))...)
	docs = append(docs, loadDiscoursePosts(filepath.Join(root, "discourse_posts"))...)
	log.Printf("[LOADER] loaded %d documents total", len(docs))
	return docs
}

func loadCourseContent(dir string) []types.Document {
	if _, err := os.Stat(dir); err != nil {
		log.Printf("[LOADER] course content directory not found: %s, skipping", dir)
		return nil
	}

	var docs []types.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[LOADER] error walking %s: %v, skipping", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
		default:
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[LOADER] error reading %s: %v, skipping", path, err)
			return nil
		}
		if doc, ok := courseDocument(string(raw), path); ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		log.Printf("[LOADER] error walking course content: %v", err)
	}
	log.Printf("[LOADER] loaded %d course content documents", len(docs))
	return docs
}

func courseDocument(raw, path string) (types.Document, bool) {
	meta, body := splitFrontMatter(raw)
	if strings.TrimSpace(body) == "" {
		log.Printf("[LOADER] empty course content file %s, skipping", path)
		return types.Document{}, false
	}

	m := types.Metadata{SourceType: types.SourceCourseContent}
	m.Title = metaString(meta, "title")
	m.URL = metaString(meta, "original_url")
	if m.URL == "" {
		m.URL = metaString(meta, "url")
	}
	m.Text = metaString(meta, "text")
	if v, ok := meta["tags"]; ok {
		m.Tags = joinTags(v)
	}
	return types.Document{Text: body, Metadata: m}, true
}

// splitFrontMatter separates a leading "---" YAML block from the document
// body. Files without front matter, or with a malformed block, keep their
// full raw content as the body.
func splitFrontMatter(raw string) (map[string]any, string) {
	const delim = "---"
	if !strings.HasPrefix(raw, delim+"\n") {
		return nil, raw
	}
	rest := raw[len(delim)+1:]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return nil, raw
	}
	head := rest[:end]
	body := strings.TrimPrefix(rest[end+len(delim)+1:], "\n")

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(head), &meta); err != nil {
		log.Printf("[LOADER] malformed front matter: %v, keeping raw content", err)
		return nil, raw
	}
	return meta, body
}

func loadDiscoursePosts(dir string) []types.Document {
	if _, err := os.Stat(dir); err != nil {
		log.Printf("[LOADER] discourse posts directory not found: %s, skipping", dir)
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[LOADER] error reading %s: %v, skipping", dir, err)
		return nil
	}

	var docs []types.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".jsonl":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Printf("[LOADER] error reading %s: %v, skipping", e.Name(), err)
			continue
		}
		docs = append(docs, parsePostFile(data, e.Name())...)
	}
	log.Printf("[LOADER] loaded %d discourse post documents", len(docs))
	return docs
}

type postFormat int

const (
	formatLineDelimited postFormat = iota
	formatArray
)

// sniffFormat inspects the first non-blank line: a JSON object means
// line-delimited records, anything else means a single JSON array.
func sniffFormat(data []byte) postFormat {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] == '{' && json.Valid(line) {
			return formatLineDelimited
		}
		return formatArray
	}
	return formatArray
}

func parsePostFile(data []byte, name string) []types.Document {
	var docs []types.Document
	switch sniffFormat(data) {
	case formatLineDelimited:
		for i, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			if doc, ok := postDocument(line, fmt.Sprintf("%s line %d", name, i+1)); ok {
				docs = append(docs, doc)
			}
		}
	case formatArray:
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			log.Printf("[LOADER] failed to parse %s as a JSON array: %v, skipping file", name, err)
			return nil
		}
		for i, item := range items {
			if doc, ok := postDocument(item, fmt.Sprintf("%s item %d", name, i+1)); ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs
}

type discourseRecord struct {
	Content    string `json:"content"`
	Cooked     string `json:"cooked"`
	URL        string `json:"url"`
	TopicTitle string `json:"topic_title"`
	PostID     any    `json:"post_id"`
	PostNumber any    `json:"post_number"`
	Author     string `json:"author"`
	CreatedAt  string `json:"created_at"`
	Tags       any    `json:"tags"`
}

// postDocument normalizes one Discourse record. The cleaned `content` field
// wins over the raw `cooked` HTML when both are present.
func postDocument(raw []byte, origin string) (types.Document, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec discourseRecord
	if err := dec.Decode(&rec); err != nil {
		log.Printf("[LOADER] malformed record at %s: %v, skipping", origin, err)
		return types.Document{}, false
	}

	text := rec.Content
	if text == "" {
		text = rec.Cooked
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("[LOADER] empty text content at %s, skipping", origin)
		return types.Document{}, false
	}

	return types.Document{
		Text: text,
		Metadata: types.Metadata{
			SourceType: types.SourceDiscoursePost,
			URL:        rec.URL,
			TopicTitle: rec.TopicTitle,
			PostID:     scalarString(rec.PostID),
			PostNumber: scalarString(rec.PostNumber),
			Author:     rec.Author,
			CreatedAt:  rec.CreatedAt,
			Tags:       joinTags(rec.Tags),
		},
	}, true
}

// joinTags flattens the tags field to the single comma-joined string the
// metadata store requires. Lists are joined with ", ", scalars pass through,
// absence becomes the empty string.
func joinTags(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, scalarString(item))
		}
		return strings.Join(parts, ", ")
	default:
		return scalarString(v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok {
		return ""
	}
	return scalarString(v)
}
