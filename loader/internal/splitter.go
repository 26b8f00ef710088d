package internal

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"vta/types"
)

const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 200
)

// TokenCounter measures text in the same units as the embedding and
// generation context budgets.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens using the BPE encoding of the given model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// SentenceSplitter cuts documents into token-budgeted segments. Splits
// prefer sentence ends; only a sentence that alone exceeds the chunk budget
// is broken mid-sentence. Each segment after the first is prefixed with the
// trailing sentences of the previous one, up to the overlap budget, so
// context survives across boundaries.
type SentenceSplitter struct {
	chunkSize    int
	chunkOverlap int
	counter      TokenCounter
}

func NewSentenceSplitter(chunkSize, chunkOverlap int, counter TokenCounter) *SentenceSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &SentenceSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		counter:      counter,
	}
}

// Split produces the segments of one document. It is deterministic:
// identical input and configuration always yield identical segments with
// identical IDs. Stripping the overlap prefixes and concatenating the
// segments reconstructs the document text exactly.
func (s *SentenceSplitter) Split(doc types.Document) []types.Segment {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	sents := s.hardSplit(splitSentences(doc.Text))
	counts := make([]int, len(sents))
	for i, sent := range sents {
		counts[i] = s.counter.Count(sent)
	}

	source := doc.Metadata.URL
	if source == "" {
		source = doc.Metadata.Title
	}

	var segments []types.Segment
	i, prevStart := 0, 0
	for i < len(sents) {
		var sb strings.Builder
		used := 0

		// Overlap prefix: trailing sentences of the previous segment, capped
		// so the whole segment still fits the chunk budget.
		if len(segments) > 0 && s.chunkOverlap > 0 {
			budget := s.chunkOverlap
			if rem := s.chunkSize - counts[i]; rem < budget {
				budget = rem
			}
			ovStart := i
			for j := i - 1; j >= prevStart; j-- {
				if used+counts[j] > budget {
					break
				}
				used += counts[j]
				ovStart = j
			}
			for j := ovStart; j < i; j++ {
				sb.WriteString(sents[j])
			}
		}

		start := i
		for i < len(sents) {
			if i > start && used+counts[i] > s.chunkSize {
				break
			}
			sb.WriteString(sents[i])
			used += counts[i]
			i++
		}
		prevStart = start

		idx := len(segments)
		segments = append(segments, types.Segment{
			ID:       types.NewSegmentID(source, idx, sb.String()),
			Index:    idx,
			Text:     sb.String(),
			Metadata: doc.Metadata,
		})
	}
	return segments
}

// splitSentences partitions text at sentence ends, keeping terminators and
// trailing whitespace attached so the pieces concatenate back losslessly.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?', '\n':
			j := i + 1
			for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
				j++
			}
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			out = append(out, text[start:j])
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// hardSplit breaks any single sentence exceeding the chunk budget into
// word-level pieces, again without losing a byte.
func (s *SentenceSplitter) hardSplit(sents []string) []string {
	var out []string
	for _, sent := range sents {
		if s.counter.Count(sent) <= s.chunkSize {
			out = append(out, sent)
			continue
		}
		out = append(out, splitWords(sent, s.chunkSize, s.counter)...)
	}
	return out
}

func splitWords(text string, budget int, counter TokenCounter) []string {
	var words []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' || text[i] == '\t' {
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
				j++
			}
			words = append(words, text[start:j])
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		words = append(words, text[start:])
	}

	var out []string
	var sb strings.Builder
	used := 0
	for _, w := range words {
		c := counter.Count(w)
		if sb.Len() > 0 && used+c > budget {
			out = append(out, sb.String())
			sb.Reset()
			used = 0
		}
		sb.WriteString(w)
		used += c
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}
