// Package markdown wraps the goldmark parser behind a small typed-node
// contract. Callers see a tree of plain nodes carrying inclusive-end byte
// offsets into the source; everything goldmark-specific stays inside this
// package.
package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// NodeKind classifies a raw parse node. Kinds the document mapper does not
// support are still reported (KindOther at the coarsest) so the mapper can
// count what it skips.
type NodeKind int

const (
	KindDocument NodeKind = iota
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindBlockquote
	KindCodeBlock
	KindThematicBreak
	KindText
	KindEmphasis
	KindLink
	KindCodeSpan
	KindImage
	KindOther
)

// Line is one source line of a code block, inclusive byte offsets.
type Line struct {
	Start int
	End   int
}

// Node is a raw parse-tree node. Start/End are inclusive byte offsets into
// the parsed source; Located is false when the parser reported no source
// extent for the node (containers with no content, thematic breaks).
type Node struct {
	Kind     NodeKind
	Level    int    // heading level
	Ordered  bool   // list marker type
	Info     string // code fence info string (language)
	Start    int
	End      int
	Located  bool
	Lines    []Line // code block content lines
	Children []*Node
}

// Parser turns source text into a raw node tree. Implementations never
// fail: unparseable input yields a document node with no children.
type Parser interface {
	Parse(source string) *Node
}

type goldmarkParser struct {
	md goldmark.Markdown
}

// New returns the goldmark-backed Parser.
func New() Parser {
	return &goldmarkParser{md: goldmark.New()}
}

func (p *goldmarkParser) Parse(source string) (root *Node) {
	root = &Node{Kind: KindDocument, Located: len(source) > 0, Start: 0, End: len(source) - 1}
	defer func() {
		// The grammar parser is a black box; if it panics the caller
		// still gets an empty-but-valid document.
		if recover() != nil {
			root.Children = nil
		}
	}()

	src := []byte(source)
	doc := p.md.Parser().Parse(gmtext.NewReader(src))
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if n := convert(c, src); n != nil {
			root.Children = append(root.Children, n)
		}
	}
	return root
}

func convert(n ast.Node, src []byte) *Node {
	out := &Node{Kind: kindOf(n)}

	switch v := n.(type) {
	case *ast.Heading:
		out.Level = v.Level
	case *ast.List:
		out.Ordered = v.IsOrdered()
	case *ast.FencedCodeBlock:
		if lang := v.Language(src); lang != nil {
			out.Info = string(lang)
		}
	case *ast.Text:
		seg := v.Segment
		out.Start = seg.Start
		out.End = seg.Stop - 1
		out.Located = true
		return out
	case *ast.String:
		// Synthesized text with no source extent; unmappable.
		out.Kind = KindOther
		return out
	}

	if out.Kind == KindCodeBlock {
		if lines := blockLines(n); lines != nil {
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out.Lines = append(out.Lines, Line{Start: seg.Start, End: seg.Stop - 1})
			}
		}
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if child := convert(c, src); child != nil {
			out.Children = append(out.Children, child)
		}
	}

	locate(out, n)
	return out
}

// locate derives a node's source extent, preferring the parser's own line
// segments and falling back to the union of located children.
func locate(out *Node, n ast.Node) {
	if lines := blockLines(n); lines != nil && lines.Len() > 0 {
		out.Start = lines.At(0).Start
		out.End = lines.At(lines.Len() - 1).Stop - 1
		out.Located = true
		return
	}
	for _, c := range out.Children {
		if !c.Located {
			continue
		}
		if !out.Located {
			out.Start, out.End, out.Located = c.Start, c.End, true
			continue
		}
		if c.Start < out.Start {
			out.Start = c.Start
		}
		if c.End > out.End {
			out.End = c.End
		}
	}
}

// blockLines returns the line segments of a block node. Inline nodes have
// none; goldmark panics on Lines() for them.
func blockLines(n ast.Node) *gmtext.Segments {
	if n.Type() != ast.TypeBlock {
		return nil
	}
	return n.Lines()
}

func kindOf(n ast.Node) NodeKind {
	switch n.(type) {
	case *ast.Heading:
		return KindHeading
	case *ast.Paragraph, *ast.TextBlock:
		return KindParagraph
	case *ast.List:
		return KindList
	case *ast.ListItem:
		return KindListItem
	case *ast.Blockquote:
		return KindBlockquote
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return KindCodeBlock
	case *ast.ThematicBreak:
		return KindThematicBreak
	case *ast.Text:
		return KindText
	case *ast.Emphasis:
		return KindEmphasis
	case *ast.Link:
		return KindLink
	case *ast.CodeSpan:
		return KindCodeSpan
	case *ast.Image:
		return KindImage
	}
	return KindOther
}
