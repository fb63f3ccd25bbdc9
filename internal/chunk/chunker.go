// Package chunk groups the top-level blocks of a document into bounded
// synthesis units. Blocks are atomic: a chunk boundary never falls inside
// a block, and a single block larger than the target becomes its own
// oversized chunk rather than being split.
package chunk

import (
	"errors"
	"fmt"

	"github.com/narratelabs/narrate-core/internal/document"
)

// DefaultTargetWords is the chunk size used when the configuration does
// not say otherwise.
const DefaultTargetWords = 200

// ErrInvalidTarget is returned for a non-positive target word count.
var ErrInvalidTarget = errors.New("chunk: target word count must be positive")

// Chunk is one synthesis unit: a contiguous run of top-level blocks.
type Chunk struct {
	// Text is the exact source substring from the start of the first
	// covered block to the end of the last.
	Text string
	// BlockStart/BlockEnd is the half-open range of top-level block
	// indices the chunk covers.
	BlockStart int
	BlockEnd   int
	// StartWord is the global ordinal of the chunk's first speakable
	// token; ordinals are contiguous from 0 across all chunks.
	StartWord int
	// WordCount is the number of speakable tokens in the chunk.
	WordCount int
}

// Split partitions the document's top-level blocks into chunks of at most
// target speakable words, greedily and deterministically. Zero-word blocks
// contribute no boundary and join no chunk; surrounding blocks' text spans
// over them. An empty document yields no chunks.
func Split(doc *document.Document, tokens []document.Token, target int) ([]Chunk, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	blocks := doc.Blocks()
	if len(blocks) == 0 {
		return nil, nil
	}

	counts := blockWordCounts(blocks, tokens)

	var (
		chunks    []Chunk
		open      bool
		first     int
		last      int
		words     int
		nextWord  int
		flushOpen = func() {
			if !open {
				return
			}
			text := document.Span{Start: blocks[first].Span.Start, End: blocks[last].Span.End}.Slice(doc.Source)
			chunks = append(chunks, Chunk{
				Text:       text,
				BlockStart: first,
				BlockEnd:   last + 1,
				StartWord:  nextWord,
				WordCount:  words,
			})
			nextWord += words
			open = false
			words = 0
		}
	)

	for i, c := range counts {
		if c == 0 {
			continue
		}
		if open && words+c > target {
			flushOpen()
		}
		if !open {
			open = true
			first = i
		}
		last = i
		words += c
	}
	flushOpen()
	return chunks, nil
}

// Resume trims a chunk list for playback starting at the given speakable
// word ordinal. Chunks are the synthesis unit, so a resume point inside a
// chunk rewinds to that chunk's first word; the returned ordinal is the
// word playback actually starts from. Fully spoken chunks are dropped, and
// a resume at or past the last word leaves nothing to play.
func Resume(chunks []Chunk, word int) ([]Chunk, int) {
	if word <= 0 {
		return chunks, 0
	}
	for i, c := range chunks {
		if word < c.StartWord+c.WordCount {
			return chunks[i:], c.StartWord
		}
	}
	return nil, word
}

// blockWordCounts tallies speakable tokens per top-level block in a single
// forward scan. The block cursor is monotonic: a token whose span starts
// past the current block advances the cursor, and a token that lands in no
// block (between blocks, or before the cursor) is dropped for good rather
// than retried against an earlier block.
func blockWordCounts(blocks []*document.Node, tokens []document.Token) []int {
	counts := make([]int, len(blocks))
	b := 0
	for _, tok := range tokens {
		for b < len(blocks) && tok.Span.Start >= blocks[b].Span.End {
			b++
		}
		if b >= len(blocks) {
			break
		}
		if !blocks[b].Span.ContainsOffset(tok.Span.Start) {
			continue // stray token between blocks; dropped, never retried
		}
		if tok.Speakable() {
			counts[b]++
		}
	}
	return counts
}
