// Package align reconciles engine-reported word timestamps with the
// document's own speakable tokens. The two segmentations rarely agree
// exactly (casing, stripped punctuation, typographic apostrophes, dropped
// or merged words), so matching is greedy and strictly forward-only: a
// skipped token can never corrupt later matches, it just forfeits its own
// highlight.
package align

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/narratelabs/narrate-core/internal/document"
	"github.com/narratelabs/narrate-core/internal/speech"
)

// Unmatched marks a timestamp word that found no token.
const Unmatched = -1

// Normalize reduces a word to its comparison form: lowercase, letters,
// digits, apostrophe and hyphen only, with the typographic right single
// quote mapped to a plain apostrophe.
func Normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		switch {
		case r == '’':
			b.WriteByte('\'')
		case r == '\'' || r == '-':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Match maps each timestamp word to an index into candidates, advancing a
// cursor that never retreats. The returned cursor resumes matching for the
// next batch; both the mapping and the cursor are deterministic for a
// given input, so callers can thread the cursor through tests without a
// live timer. An empty normalized word maps to Unmatched without moving
// the cursor.
func Match(words []string, candidates []string, cursor int) ([]int, int) {
	if cursor < 0 {
		cursor = 0
	}
	out := make([]int, len(words))
	for i, w := range words {
		norm := Normalize(w)
		if norm == "" {
			out[i] = Unmatched
			continue
		}
		idx := Unmatched
		for j := cursor; j < len(candidates); j++ {
			if Normalize(candidates[j]) == norm {
				idx = j
				cursor = j + 1
				break
			}
		}
		out[i] = idx
	}
	return out, cursor
}

// Tracker accumulates per-chunk timestamps into one alignment over the
// whole document. Appends continue the match cursor across chunk
// boundaries; readers get an atomically swapped snapshot, so the periodic
// highlight poll never sees a torn state.
type Tracker struct {
	words  []string // speakable token texts, document order
	mu     sync.Mutex
	cursor int
	snap   atomic.Pointer[snapshot]
}

type snapshot struct {
	stamps []speech.WordTimestamp // absolute times, non-decreasing starts
	tokens []int                  // per stamp: speakable-token ordinal or Unmatched
}

// NewTracker builds a tracker over the document's speakable tokens with
// the match cursor at resume, supporting playback that starts
// mid-document. Tokens before resume are never match candidates.
func NewTracker(tokens []document.Token, resume int) *Tracker {
	var words []string
	for _, t := range tokens {
		if t.Speakable() {
			words = append(words, t.Text)
		}
	}
	if resume < 0 {
		resume = 0
	}
	t := &Tracker{words: words, cursor: resume}
	t.snap.Store(&snapshot{})
	return t
}

// WordCount returns the number of speakable tokens tracked.
func (t *Tracker) WordCount() int { return len(t.words) }

// Append shifts a chunk's timestamps by offset seconds (the audio duration
// already handed to the sink) and extends the alignment. The cursor picks
// up where the previous chunk's matching stopped.
func (t *Tracker) Append(offset float64, stamps []speech.WordTimestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()

	words := make([]string, len(stamps))
	for i, s := range stamps {
		words[i] = s.Word
	}
	mapped, cursor := Match(words, t.words, t.cursor)
	t.cursor = cursor

	old := t.snap.Load()
	next := &snapshot{
		stamps: make([]speech.WordTimestamp, 0, len(old.stamps)+len(stamps)),
		tokens: make([]int, 0, len(old.tokens)+len(mapped)),
	}
	next.stamps = append(next.stamps, old.stamps...)
	next.tokens = append(next.tokens, old.tokens...)
	for i, s := range stamps {
		next.stamps = append(next.stamps, speech.WordTimestamp{
			Word:  s.Word,
			Start: s.Start + offset,
			End:   s.End + offset,
		})
		next.tokens = append(next.tokens, mapped[i])
	}
	t.snap.Store(next)
}

// TokenAt returns the speakable-token ordinal spoken at the elapsed
// playback time. An unmatched interval keeps the previously highlighted
// token active instead of clearing it; before the first matched interval
// there is no highlight.
func (t *Tracker) TokenAt(elapsed float64) (int, bool) {
	snap := t.snap.Load()
	if len(snap.stamps) == 0 {
		return 0, false
	}
	// Last interval whose start is at or before elapsed.
	lo, hi := 0, len(snap.stamps)
	for lo < hi {
		mid := (lo + hi) / 2
		if snap.stamps[mid].Start <= elapsed {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for i := lo - 1; i >= 0; i-- {
		if snap.tokens[i] != Unmatched {
			return snap.tokens[i], true
		}
	}
	return 0, false
}
