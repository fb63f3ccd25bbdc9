package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a token. Word, Number, URL and Abbreviation are the
// speakable kinds: they count towards chunk sizing and participate in
// timestamp alignment. Whitespace and punctuation are carried only so the
// token stream reconstructs the source exactly.
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenPunctuation
	TokenWhitespace
	TokenURL
	TokenNumber
	TokenAbbreviation
)

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenPunctuation:
		return "punctuation"
	case TokenWhitespace:
		return "whitespace"
	case TokenURL:
		return "url"
	case TokenNumber:
		return "number"
	case TokenAbbreviation:
		return "abbreviation"
	}
	return "unknown"
}

// Speakable reports whether the kind counts for chunking and alignment.
func (k TokenKind) Speakable() bool {
	switch k {
	case TokenWord, TokenNumber, TokenURL, TokenAbbreviation:
		return true
	}
	return false
}

// Token is one classified slice of a text leaf. Within a leaf, token spans
// are contiguous and their texts concatenate back to the leaf text exactly.
type Token struct {
	Text       string
	Span       Span
	Kind       TokenKind
	Normalized string // set when a spoken form differs from the source text
}

// Speakable is shorthand for t.Kind.Speakable().
func (t Token) Speakable() bool { return t.Kind.Speakable() }

// abbreviations is the fixed, case-insensitive table of period-terminated
// abbreviations the tokenizer recognizes. English-only; extending it to
// other languages is out of scope on purpose.
var abbreviations = map[string]struct{}{
	"mr.":     {},
	"mrs.":    {},
	"ms.":     {},
	"dr.":     {},
	"prof.":   {},
	"sr.":     {},
	"jr.":     {},
	"st.":     {},
	"vs.":     {},
	"etc.":    {},
	"e.g.":    {},
	"i.e.":    {},
	"no.":     {},
	"approx.": {},
	"dept.":   {},
	"est.":    {},
	"fig.":    {},
}

const rightSingleQuote = '’'

// Tokenize walks every text leaf of the document depth-first and returns
// the flat, document-ordered token stream. Each leaf is tokenized
// independently against its absolute base offset; tokens from different
// leaves never interleave. The function is total: any input string
// tokenizes without error.
func Tokenize(doc *Document) []Token {
	var tokens []Token
	doc.WalkText(func(n *Node) {
		tokens = appendLeafTokens(tokens, n.Text, n.Span.Start)
	})
	return tokens
}

// appendLeafTokens scans one leaf left to right with longest-match
// classification: URL, whitespace run, word/number/abbreviation run, then
// a single punctuation rune as the fallback.
func appendLeafTokens(tokens []Token, text string, base int) []Token {
	i := 0
	for i < len(text) {
		if end, ok := scanURL(text, i); ok {
			tokens = append(tokens, makeToken(text, base, i, end, TokenURL))
			i = end
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			end := i + size
			for end < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[end:])
				if !unicode.IsSpace(r2) {
					break
				}
				end += s2
			}
			tokens = append(tokens, makeToken(text, base, i, end, TokenWhitespace))
			i = end
			continue
		}
		if isWordRune(r) {
			end := scanWordRun(text, i)
			kind := TokenWord
			run := text[i:end]
			if end < len(text) && text[end] == '.' && isAbbreviation(run+".") {
				end++
				kind = TokenAbbreviation
			} else if isNumber(run) {
				kind = TokenNumber
			}
			tok := makeToken(text, base, i, end, kind)
			if kind == TokenAbbreviation {
				tok.Normalized = strings.ToLower(strings.TrimSuffix(tok.Text, "."))
			}
			tokens = append(tokens, tok)
			i = end
			continue
		}
		tokens = append(tokens, makeToken(text, base, i, i+size, TokenPunctuation))
		i += size
	}
	return tokens
}

func makeToken(text string, base, start, end int, kind TokenKind) Token {
	return Token{
		Text: text[start:end],
		Span: Span{Start: base + start, End: base + end},
		Kind: kind,
	}
}

// scanWordRun extends a run starting at a letter or digit. Apostrophes
// (including the typographic right single quote), hyphens and periods stay
// inside the run only when flanked by a letter or digit on both sides;
// otherwise they terminate it and become punctuation on their own.
func scanWordRun(text string, start int) int {
	i := start
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isWordRune(r) {
			i += size
			continue
		}
		if isConnector(r) && i > start {
			next, nsize := utf8.DecodeRuneInString(text[i+size:])
			if nsize > 0 && isWordRune(next) {
				// Flanked on the left by construction: the loop only
				// reaches a connector after at least one word rune.
				i += size
				continue
			}
		}
		break
	}
	return i
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isConnector(r rune) bool {
	return r == '\'' || r == rightSingleQuote || r == '-' || r == '.'
}

func isAbbreviation(candidate string) bool {
	_, ok := abbreviations[strings.ToLower(candidate)]
	return ok
}

// isNumber reports whether a finished run is purely numeric: digits with
// optional internal periods, at least one digit, no leading or trailing
// period.
func isNumber(run string) bool {
	if run == "" || run[0] == '.' || run[len(run)-1] == '.' {
		return false
	}
	digits := 0
	for _, r := range run {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			return false
		}
	}
	return digits > 0
}

// scanURL claims a whole scheme://non-whitespace run starting at i.
func scanURL(text string, i int) (int, bool) {
	j := i
	for j < len(text) {
		r, size := utf8.DecodeRuneInString(text[j:])
		if !isSchemeRune(r, j == i) {
			break
		}
		j += size
	}
	if j == i || !strings.HasPrefix(text[j:], "://") {
		return 0, false
	}
	j += len("://")
	k := j
	for k < len(text) {
		r, size := utf8.DecodeRuneInString(text[k:])
		if unicode.IsSpace(r) {
			break
		}
		k += size
	}
	if k == j {
		return 0, false
	}
	return k, true
}

func isSchemeRune(r rune, first bool) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return true
	}
	if first {
		return false
	}
	return r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'
}
