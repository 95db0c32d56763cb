// Package scope resolves identifier references in a TypeScript syntax tree
// to the declarations that introduce them.
package scope

import (
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// Kind enumerates binding categories.
type Kind uint8

// Binding kinds.
const (
	KindInvalid Kind = iota
	KindImport
	KindVariable
	KindParameter
	KindFunction
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindVariable:
		return "variable"
	case KindParameter:
		return "parameter"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "invalid"
	}
}

// Import records where an imported binding comes from.
type Import struct {
	// Source is the unquoted module specifier.
	Source string
	// Imported is the exported name, "default" for default imports or "*"
	// for namespace imports.
	Imported string
}

// Binding links a declared name to its declaring construct.
type Binding struct {
	Import *Import
	// Ident is the declaring identifier.
	Ident *tsast.Node
	// Decl is the enclosing declaration: a variable_declarator, a for-in/of
	// statement, an import specifier, a parameter, a function or a class.
	Decl *tsast.Node
	Name string
	// PatternKey is the property name a binding was destructured from when
	// it sits directly in the object pattern of Decl.
	PatternKey string
	Kind       Kind
}

// Init returns the initializer of a variable binding.
func (b *Binding) Init() *tsast.Node {
	if b == nil || b.Decl == nil || b.Decl.Type != "variable_declarator" {
		return nil
	}

	return b.Decl.ChildByField("value")
}

// Destructured reports whether the binding came out of an object pattern.
func (b *Binding) Destructured() bool {
	return b != nil && b.PatternKey != ""
}

// Scope is one lexical scope.
type Scope struct {
	Node     *tsast.Node
	Parent   *Scope
	Bindings map[string]*Binding
}

// Lookup searches the scope chain for name.
func (s *Scope) Lookup(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.Bindings[name]; ok {
			return b
		}
	}

	return nil
}

func (s *Scope) declare(b *Binding) {
	if _, exists := s.Bindings[b.Name]; exists {
		return
	}

	s.Bindings[b.Name] = b
}

func (s *Scope) function() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if isFunctionScope(cur.Node) || cur.Parent == nil {
			return cur
		}
	}

	return s
}

var scopeNodes = map[string]bool{
	"program":                        true,
	"statement_block":                true,
	"arrow_function":                 true,
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"generator_function_declaration": true,
	"method_definition":              true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"class":                          true,
	"for_statement":                  true,
	"for_in_statement":               true,
	"catch_clause":                   true,
}

func isFunctionScope(n *tsast.Node) bool {
	return n.Is("arrow_function", "function_declaration", "function_expression", "function",
		"generator_function", "generator_function_declaration", "method_definition")
}

// functionBoundaries rebind this.
var functionBoundaries = []string{
	"function_declaration", "function_expression", "function",
	"generator_function", "generator_function_declaration",
}
