package document

import (
	"strings"
	"testing"
)

// leafDoc builds a document with a single paragraph holding one text leaf,
// so tokenizer behavior can be pinned without a live parser.
func leafDoc(text string) *Document {
	span := Span{Start: 0, End: len(text)}
	return &Document{
		Source: text,
		Root: &Node{
			Kind: KindDocument,
			Span: span,
			Children: []*Node{
				{
					Kind:     KindParagraph,
					Span:     span,
					Children: []*Node{{Kind: KindText, Span: span, Text: text}},
				},
			},
		},
	}
}

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestTokenizeSimpleSentence(t *testing.T) {
	tokens := Tokenize(leafDoc("Hello world, this is a test."))
	want := []string{"Hello", " ", "world", ",", " ", "this", " ", "is", " ", "a", " ", "test", "."}
	got := texts(tokens)
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	speakable := 0
	for _, tok := range tokens {
		if tok.Speakable() {
			speakable++
		}
	}
	if speakable != 6 {
		t.Fatalf("expected 6 speakable tokens, got %d", speakable)
	}
}

func TestTokenizeReconstructsLeaf(t *testing.T) {
	inputs := []string{
		"Hello world, this is a test.",
		"it’s a well-known fact",
		"visit https://example.com/a?b=1 now",
		"pi is 3.14, roughly",
		"Dr. Smith met Mr. Jones (e.g. yesterday)",
		"--- odd ** punctuation \t runs ---",
		"",
	}
	for _, in := range inputs {
		tokens := Tokenize(leafDoc(in))
		var b strings.Builder
		prevEnd := 0
		for _, tok := range tokens {
			if tok.Span.Start != prevEnd {
				t.Fatalf("input %q: token %q starts at %d, want %d", in, tok.Text, tok.Span.Start, prevEnd)
			}
			prevEnd = tok.Span.End
			b.WriteString(tok.Text)
		}
		if b.String() != in {
			t.Fatalf("input %q: reconstruction %q differs", in, b.String())
		}
	}
}

func TestTokenizeURL(t *testing.T) {
	tokens := Tokenize(leafDoc("see https://example.com/path for details"))
	var url *Token
	for i := range tokens {
		if tokens[i].Kind == TokenURL {
			url = &tokens[i]
		}
	}
	if url == nil {
		t.Fatal("expected a url token")
	}
	if url.Text != "https://example.com/path" {
		t.Fatalf("unexpected url token %q", url.Text)
	}
}

func TestTokenizeAbbreviations(t *testing.T) {
	tokens := Tokenize(leafDoc("Dr. Smith vs. Mr. Jones, e.g. often."))
	var abbrs []string
	for _, tok := range tokens {
		if tok.Kind == TokenAbbreviation {
			abbrs = append(abbrs, tok.Text)
		}
	}
	want := []string{"Dr.", "vs.", "Mr.", "e.g."}
	if len(abbrs) != len(want) {
		t.Fatalf("expected abbreviations %v, got %v", want, abbrs)
	}
	for i := range want {
		if abbrs[i] != want[i] {
			t.Fatalf("abbreviation %d: expected %q, got %q", i, want[i], abbrs[i])
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tokens := Tokenize(leafDoc("version 3.14 beats 2, but v2 is a word"))
	byText := map[string]TokenKind{}
	for _, tok := range tokens {
		byText[tok.Text] = tok.Kind
	}
	if byText["3.14"] != TokenNumber {
		t.Fatalf("expected 3.14 to be a number, got %v", byText["3.14"])
	}
	if byText["2"] != TokenNumber {
		t.Fatalf("expected 2 to be a number, got %v", byText["2"])
	}
	if byText["v2"] != TokenWord {
		t.Fatalf("expected v2 to be a word, got %v", byText["v2"])
	}
}

func TestTokenizeConnectors(t *testing.T) {
	tokens := Tokenize(leafDoc("it’s a well-known fact - honest"))
	got := texts(tokens)
	want := []string{"it’s", " ", "a", " ", "well-known", " ", "fact", " ", "-", " ", "honest"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if tokens[0].Kind != TokenWord || tokens[4].Kind != TokenWord {
		t.Fatalf("expected apostrophe and hyphen runs to stay words: %v", kinds(tokens))
	}
	if tokens[8].Kind != TokenPunctuation {
		t.Fatalf("expected lone hyphen to be punctuation, got %v", tokens[8].Kind)
	}
}

func TestTokenizeTrailingConnector(t *testing.T) {
	tokens := Tokenize(leafDoc("word- next"))
	got := texts(tokens)
	want := []string{"word", "-", " ", "next"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTokenizeLeavesNeverInterleave(t *testing.T) {
	source := "alpha beta"
	doc := &Document{
		Source: source,
		Root: &Node{
			Kind: KindDocument,
			Span: Span{0, len(source)},
			Children: []*Node{
				{Kind: KindParagraph, Span: Span{0, 5}, Children: []*Node{{Kind: KindText, Span: Span{0, 5}, Text: "alpha"}}},
				{Kind: KindParagraph, Span: Span{6, 10}, Children: []*Node{{Kind: KindText, Span: Span{6, 10}, Text: "beta"}}},
			},
		},
	}
	tokens := Tokenize(doc)
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", texts(tokens))
	}
	if tokens[0].Span.End > tokens[1].Span.Start {
		t.Fatalf("tokens out of document order: %+v", tokens)
	}
}
