package document

// NodeKind identifies the structural role of a node. The set is closed:
// anything the upstream parser reports that has no mapping here lands on
// KindIgnored so unsupported constructs stay auditable instead of being
// folded into a default.
type NodeKind int

const (
	KindDocument NodeKind = iota
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindQuote
	KindCodeBlock
	KindThematicBreak
	KindText
	KindIgnored
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindListItem:
		return "list-item"
	case KindQuote:
		return "quote"
	case KindCodeBlock:
		return "code-block"
	case KindThematicBreak:
		return "thematic-break"
	case KindText:
		return "text"
	case KindIgnored:
		return "ignored"
	}
	return "unknown"
}

// Node is one element of the document tree. The tree is built once per
// parse, is never mutated afterwards, and may be shared read-only across
// consumers. Children are owned exclusively by their parent and every
// child span nests within the parent span.
type Node struct {
	Kind     NodeKind
	Span     Span
	Level    int    // heading level 1-6
	Ordered  bool   // list ordering flag
	Lang     string // code block language tag, may be empty
	Text     string // literal content for KindText and KindCodeBlock leaves
	Children []*Node
}

// Leaf reports whether the node can carry no children by construction.
func (n *Node) Leaf() bool {
	switch n.Kind {
	case KindText, KindCodeBlock, KindThematicBreak, KindIgnored:
		return true
	}
	return false
}

// Document is the root of a parsed tree: the canonical source string all
// spans are measured against plus the ordered top-level blocks.
type Document struct {
	Source string
	Root   *Node
}

// Blocks returns the top-level blocks of the document.
func (d *Document) Blocks() []*Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Children
}

// WalkText visits every KindText leaf depth-first in document order.
func (d *Document) WalkText(fn func(*Node)) {
	if d == nil || d.Root == nil {
		return
	}
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == KindText {
			fn(n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d.Root)
}
