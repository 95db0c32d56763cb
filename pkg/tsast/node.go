// Package tsast hosts the TypeScript/TSX syntax tree used by the converter.
//
// Trees are parsed with tree-sitter and copied into plain Go nodes that carry
// parent links, field names and byte ranges, so that later passes can walk up
// and down freely after the native tree has been released.
package tsast

import (
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Node is one syntax node of a parsed file.
type Node struct {
	Parent   *Node
	file     *File
	Type     string
	Field    string
	Children []*Node
	Start    int
	End      int
	Index    int
	Named    bool
}

// File owns every node of one parsed unit.
type File struct {
	Root     *Node
	Name     string
	Language Language
	Src      []byte
	lines    []int
}

// Text returns the source text covered by the node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}

	return string(n.file.Src[n.Start:n.End])
}

// File returns the file the node belongs to.
func (n *Node) File() *File {
	return n.file
}

// Is reports whether the node has one of the given types.
func (n *Node) Is(types ...string) bool {
	return n != nil && slices.Contains(types, n.Type)
}

// ChildByField returns the first child stored under the given field name.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}

	return nil
}

// NamedChildren returns the named children in source order.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}

	out := make([]*Node, 0, len(n.Children))

	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}

	return out
}

// ChildrenOfType returns the direct children with one of the given types.
func (n *Node) ChildrenOfType(types ...string) []*Node {
	if n == nil {
		return nil
	}

	var out []*Node

	for _, c := range n.Children {
		if slices.Contains(types, c.Type) {
			out = append(out, c)
		}
	}

	return out
}

// FirstChildOfType returns the first direct child with one of the given types.
func (n *Node) FirstChildOfType(types ...string) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if slices.Contains(types, c.Type) {
			return c
		}
	}

	return nil
}

// HasToken reports whether an anonymous child spells the given keyword.
func (n *Node) HasToken(tok string) bool {
	if n == nil {
		return false
	}

	for _, c := range n.Children {
		if !c.Named && c.Type == tok {
			return true
		}
	}

	return false
}

// PrevSibling returns the previous sibling or nil.
func (n *Node) PrevSibling() *Node {
	if n == nil || n.Parent == nil || n.Index == 0 {
		return nil
	}

	return n.Parent.Children[n.Index-1]
}

// NextSibling returns the next sibling or nil.
func (n *Node) NextSibling() *Node {
	if n == nil || n.Parent == nil || n.Index+1 >= len(n.Parent.Children) {
		return nil
	}

	return n.Parent.Children[n.Index+1]
}

// Unparen strips any number of enclosing parenthesized expressions.
func (n *Node) Unparen() *Node {
	for n != nil && n.Type == "parenthesized_expression" {
		inner := n.NamedChildren()
		if len(inner) == 0 {
			return n
		}

		n = inner[0]
	}

	return n
}

// Ancestor returns the nearest proper ancestor with one of the given types.
func (n *Node) Ancestor(types ...string) *Node {
	if n == nil {
		return nil
	}

	for p := n.Parent; p != nil; p = p.Parent {
		if slices.Contains(types, p.Type) {
			return p
		}
	}

	return nil
}

// Contains reports whether other lies inside n (or is n).
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}

	return false
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node in pre-order satisfying pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node

	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}

		if pred(c) {
			found = c

			return false
		}

		return true
	})

	return found
}

// StringValue returns the unquoted contents of a string literal node.
func (n *Node) StringValue() (string, bool) {
	if n == nil || n.Type != "string" {
		return "", false
	}

	var b strings.Builder

	for _, c := range n.Children {
		switch c.Type {
		case "string_fragment", "escape_sequence":
			b.WriteString(c.Text())
		}
	}

	return b.String(), true
}

// Position is a zero-based line and UTF-16 column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Position converts a byte offset into a line/column pair.
func (f *File) Position(offset int) Position {
	if f.lines == nil {
		f.lines = []int{0}

		for i, b := range f.Src {
			if b == '\n' {
				f.lines = append(f.lines, i+1)
			}
		}
	}

	line, _ := slices.BinarySearch(f.lines, offset+1)
	line--

	lineStart := f.lines[line]
	col := 0

	for s := f.Src[lineStart:offset]; len(s) > 0; {
		r, size := utf8.DecodeRune(s)
		col += len(utf16.Encode([]rune{r}))
		s = s[size:]
	}

	return Position{Line: line, Column: col}
}

// StartPosition returns the position of the first byte of the node.
func (n *Node) StartPosition() Position {
	return n.file.Position(n.Start)
}

// EndPosition returns the position just past the node.
func (n *Node) EndPosition() Position {
	return n.file.Position(n.End)
}
