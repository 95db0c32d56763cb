package tsast

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/vuesetup/pkg/safeconv"
)

// Language selects the grammar used for a unit.
type Language string

// Supported grammars.
const (
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// Sentinel errors for parsing.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	errNoRootNode          = errors.New("tsast: no root node")
	errPoolType            = errors.New("tsast: pool returned unexpected type")
)

// fieldNames lists the grammar fields the converter reads.
var fieldNames = []string{
	"name", "value", "body", "object", "property", "function", "arguments",
	"left", "right", "type", "parameters", "return_type", "pattern", "key",
	"alias", "source", "type_parameters", "type_arguments", "decorator",
	"declaration", "condition", "label", "index", "constraint", "parameter",
}

var languageFuncs = map[Language]func() unsafe.Pointer{
	TypeScript: typescript.GetLanguage,
	TSX:        tsx.GetLanguage,
}

var (
	languageCache sync.Map
	parserPools   sync.Map
)

func grammar(lang Language) (*sitter.Language, error) {
	if cached, ok := languageCache.Load(lang); ok {
		if l, castOK := cached.(*sitter.Language); castOK {
			return l, nil
		}
	}

	fn, ok := languageFuncs[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	l := sitter.NewLanguage(fn())
	languageCache.Store(lang, l)

	return l, nil
}

func pool(lang Language) (*sync.Pool, error) {
	if p, ok := parserPools.Load(lang); ok {
		if sp, castOK := p.(*sync.Pool); castOK {
			return sp, nil
		}
	}

	l, err := grammar(lang)
	if err != nil {
		return nil, err
	}

	p := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(l)

			return tsParser
		},
	}

	actual, _ := parserPools.LoadOrStore(lang, p)

	sp, ok := actual.(*sync.Pool)
	if !ok {
		return nil, errPoolType
	}

	return sp, nil
}

// DetectLanguage picks the grammar for a file name. Plain .ts files use the
// TypeScript grammar; everything else, including unnamed input, is parsed as
// TSX.
func DetectLanguage(name string, src []byte) Language {
	if name == "" {
		return TSX
	}

	base := path.Base(name)
	if strings.HasSuffix(base, ".d.ts") {
		return TypeScript
	}

	switch strings.ToLower(path.Ext(base)) {
	case ".tsx":
		return TSX
	case ".ts", ".mts", ".cts":
		return TypeScript
	}

	if enry.GetLanguage(base, src) == "TypeScript" && !strings.HasSuffix(base, "x") {
		return TypeScript
	}

	return TSX
}

// IsCandidate reports whether a path names a script the converter should look
// at. Vendored and generated files are excluded.
func IsCandidate(name string) bool {
	if enry.IsVendor(name) || enry.IsDotFile(name) {
		return false
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".ts", ".tsx":
		return !strings.HasSuffix(name, ".d.ts")
	}

	return false
}

// Parse parses src with the grammar picked by DetectLanguage.
func Parse(ctx context.Context, name string, src []byte) (*File, error) {
	return ParseLanguage(ctx, name, DetectLanguage(name, src), src)
}

// ParseLanguage parses src with an explicit grammar. A tree containing error
// or missing nodes is rejected with ErrSyntax.
func ParseLanguage(ctx context.Context, name string, lang Language, src []byte) (*File, error) {
	p, err := pool(lang)
	if err != nil {
		return nil, err
	}

	tsParser, ok := p.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tsast: failed to parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	f := &File{Name: name, Language: lang, Src: src}
	f.Root = f.build(root, nil, "", 0)

	if root.HasError() {
		return nil, f.syntaxError()
	}

	return f, nil
}

func (f *File) build(tsNode sitter.Node, parent *Node, field string, index int) *Node {
	n := &Node{
		Parent: parent,
		file:   f,
		Type:   tsNode.Type(),
		Field:  field,
		Start:  safeconv.MustUintToInt(tsNode.StartByte()),
		End:    safeconv.MustUintToInt(tsNode.EndByte()),
		Index:  index,
		Named:  tsNode.IsNamed(),
	}

	count := tsNode.ChildCount()
	if count == 0 {
		return n
	}

	fields := childFields(tsNode)
	n.Children = make([]*Node, 0, count)

	for idx := range count {
		child := tsNode.Child(idx)
		key := spanKey{start: child.StartByte(), end: child.EndByte(), typ: child.Type()}
		n.Children = append(n.Children, f.build(child, n, fields[key], len(n.Children)))
	}

	return n
}

type spanKey struct {
	typ   string
	start uint
	end   uint
}

func childFields(tsNode sitter.Node) map[spanKey]string {
	fields := make(map[spanKey]string)

	for _, name := range fieldNames {
		child := tsNode.ChildByFieldName(name)
		if child.IsNull() {
			continue
		}

		key := spanKey{start: child.StartByte(), end: child.EndByte(), typ: child.Type()}
		if _, seen := fields[key]; !seen {
			fields[key] = name
		}
	}

	return fields
}

// SyntaxError describes the first broken region of a unit.
type SyntaxError struct {
	File     string
	Snippet  string
	Position Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v near %q", e.File, e.Position.Line+1, e.Position.Column+1, ErrSyntax, e.Snippet)
}

// Unwrap exposes ErrSyntax to errors.Is.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

const snippetLen = 40

func (f *File) syntaxError() error {
	bad := f.Root.Find(func(n *Node) bool { return n.Type == "ERROR" })
	if bad == nil {
		bad = f.Root
	}

	snippet := bad.Text()
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}

	return &SyntaxError{File: f.Name, Position: bad.StartPosition(), Snippet: snippet}
}
