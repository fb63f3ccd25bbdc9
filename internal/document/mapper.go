package document

import (
	"log/slog"
	"strings"

	"github.com/narratelabs/narrate-core/internal/markdown"
)

// Build maps a raw parse tree onto the canonical document model. It never
// fails: a parser that returns nothing, or a source full of unsupported
// constructs, still yields a valid (possibly empty) document.
//
// The raw tree reports inclusive-end offsets; all spans emitted here are
// half-open and clamped to the source bounds. Inline styling is flattened
// to bare text leaves, since the output feeds speech synthesis rather than
// rendering. Unsupported block kinds become KindIgnored nodes with no
// content; unsupported inline content is dropped. Neither is fatal.
func Build(source string, parser markdown.Parser, logger *slog.Logger) *Document {
	doc := &Document{
		Source: source,
		Root:   &Node{Kind: KindDocument, Span: Span{Start: 0, End: len(source)}},
	}
	if parser == nil {
		return doc
	}

	m := &mapper{source: source, logger: logger}
	raw := parser.Parse(source)
	if raw != nil {
		for _, child := range raw.Children {
			if block := m.mapBlock(child, doc.Root.Span); block != nil {
				doc.Root.Children = append(doc.Root.Children, block)
				m.cursor = block.Span.End
			}
		}
	}
	if m.skipped > 0 && logger != nil {
		logger.Debug("skipped unsupported parse nodes", slog.Int("count", m.skipped))
	}
	return doc
}

type mapper struct {
	source  string
	logger  *slog.Logger
	cursor  int // end offset of the last mapped block, anchors extent-less nodes
	skipped int
}

// span converts a raw node's inclusive-end extent to a clamped half-open
// span. Nodes without a reported extent get an empty span at the cursor so
// document order is preserved.
func (m *mapper) span(raw *markdown.Node, parent Span) Span {
	if !raw.Located {
		c := clampInt(m.cursor, parent.Start, parent.End)
		return Span{Start: c, End: c}
	}
	s := Span{Start: raw.Start, End: raw.End + 1}.Clamp(len(m.source))
	if !parent.ContainsSpan(s) {
		s = Span{Start: clampInt(s.Start, parent.Start, parent.End), End: clampInt(s.End, parent.Start, parent.End)}
	}
	return s
}

func (m *mapper) mapBlock(raw *markdown.Node, parent Span) *Node {
	switch raw.Kind {
	case markdown.KindHeading:
		n := &Node{Kind: KindHeading, Span: m.span(raw, parent), Level: raw.Level}
		n.Children = m.mapInlines(raw.Children, n.Span)
		return n
	case markdown.KindParagraph:
		n := &Node{Kind: KindParagraph, Span: m.span(raw, parent)}
		n.Children = m.mapInlines(raw.Children, n.Span)
		return n
	case markdown.KindList:
		n := &Node{Kind: KindList, Span: m.span(raw, parent), Ordered: raw.Ordered}
		n.Children = m.mapChildren(raw.Children, n.Span)
		return n
	case markdown.KindListItem:
		n := &Node{Kind: KindListItem, Span: m.span(raw, parent)}
		n.Children = m.mapChildren(raw.Children, n.Span)
		return n
	case markdown.KindBlockquote:
		n := &Node{Kind: KindQuote, Span: m.span(raw, parent)}
		n.Children = m.mapChildren(raw.Children, n.Span)
		return n
	case markdown.KindCodeBlock:
		return m.mapCode(raw, parent)
	case markdown.KindThematicBreak:
		return &Node{Kind: KindThematicBreak, Span: m.span(raw, parent)}
	default:
		m.skipped++
		return &Node{Kind: KindIgnored, Span: m.span(raw, parent)}
	}
}

func (m *mapper) mapChildren(raws []*markdown.Node, parent Span) []*Node {
	var out []*Node
	for _, raw := range raws {
		if n := m.mapBlock(raw, parent); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// mapInlines flattens inline content to text leaves. Emphasis, links and
// code spans contribute only their textual children; images and anything
// unrecognized are skipped whole.
func (m *mapper) mapInlines(raws []*markdown.Node, parent Span) []*Node {
	var out []*Node
	for _, raw := range raws {
		switch raw.Kind {
		case markdown.KindText:
			span := m.span(raw, parent)
			out = append(out, &Node{Kind: KindText, Span: span, Text: span.Slice(m.source)})
		case markdown.KindEmphasis, markdown.KindLink, markdown.KindCodeSpan:
			out = append(out, m.mapInlines(raw.Children, parent)...)
		default:
			m.skipped++
		}
	}
	return out
}

// mapCode reconstructs the code text by joining the block's source lines.
func (m *mapper) mapCode(raw *markdown.Node, parent Span) *Node {
	n := &Node{Kind: KindCodeBlock, Span: m.span(raw, parent), Lang: raw.Info}
	var b strings.Builder
	for _, line := range raw.Lines {
		s := Span{Start: line.Start, End: line.End + 1}.Clamp(len(m.source))
		b.WriteString(s.Slice(m.source))
	}
	n.Text = b.String()
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
