package scope

import (
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// Resolver answers binding questions over one parsed file. It is built once
// per file and is safe for concurrent reads afterwards.
type Resolver struct {
	file   *tsast.File
	scopes map[*tsast.Node]*Scope
	decls  map[*tsast.Node]*Binding
}

// New collects every scope and declaration in f.
func New(f *tsast.File) *Resolver {
	r := &Resolver{
		file:   f,
		scopes: make(map[*tsast.Node]*Scope),
		decls:  make(map[*tsast.Node]*Binding),
	}

	r.collect(f.Root, nil)

	return r
}

// File returns the file the resolver was built for.
func (r *Resolver) File() *tsast.File {
	return r.file
}

// ScopeAt returns the innermost scope enclosing n.
func (r *Resolver) ScopeAt(n *tsast.Node) *Scope {
	for p := n; p != nil; p = p.Parent {
		if s, ok := r.scopes[p]; ok {
			return s
		}
	}

	return r.scopes[r.file.Root]
}

// Lookup resolves name as seen from node n.
func (r *Resolver) Lookup(n *tsast.Node, name string) *Binding {
	return r.ScopeAt(n).Lookup(name)
}

// Resolve returns the binding an identifier refers to, or nil when it is
// unresolved (a global) or not a reference at all.
func (r *Resolver) Resolve(ident *tsast.Node) *Binding {
	if ident == nil {
		return nil
	}

	if b, ok := r.decls[ident]; ok {
		return b
	}

	switch ident.Type {
	case "identifier", "shorthand_property_identifier":
	default:
		return nil
	}

	return r.Lookup(ident.Parent, ident.Text())
}

// DeclarationOf returns the binding introduced by a declaring identifier.
func (r *Resolver) DeclarationOf(ident *tsast.Node) *Binding {
	return r.decls[ident]
}

func (r *Resolver) collect(n *tsast.Node, cur *Scope) {
	if scopeNodes[n.Type] {
		s := &Scope{Node: n, Parent: cur, Bindings: make(map[string]*Binding)}
		r.scopes[n] = s
		cur = s
	}

	switch n.Type {
	case "import_statement":
		r.declareImport(n, cur)
	case "variable_declarator":
		target := cur
		if n.Parent != nil && n.Parent.Type == "variable_declaration" {
			target = cur.function()
		}

		r.declarePattern(n.ChildByField("name"), target, n, KindVariable)
	case "for_in_statement":
		switch {
		case n.HasToken("var"):
			r.declarePattern(n.ChildByField("left"), cur.function(), n, KindVariable)
		case n.HasToken("let"), n.HasToken("const"):
			r.declarePattern(n.ChildByField("left"), cur, n, KindVariable)
		}
	case "function_declaration", "generator_function_declaration":
		r.declareName(n, cur.Parent, KindFunction)
	case "class_declaration", "abstract_class_declaration":
		r.declareName(n, cur.Parent, KindClass)
	case "function_expression", "function", "generator_function", "class":
		r.declareName(n, cur, KindFunction)
	case "required_parameter", "optional_parameter":
		r.declarePattern(n.ChildByField("pattern"), cur, n, KindParameter)
	case "arrow_function":
		if p := n.ChildByField("parameter"); p != nil {
			r.declarePattern(p, cur, n, KindParameter)
		}
	case "catch_clause":
		if p := n.ChildByField("parameter"); p != nil {
			r.declarePattern(p, cur, n, KindParameter)
		}
	}

	for _, c := range n.Children {
		r.collect(c, cur)
	}
}

func (r *Resolver) declareName(n *tsast.Node, s *Scope, kind Kind) {
	name := n.ChildByField("name")
	if name == nil || s == nil {
		return
	}

	r.bind(s, &Binding{Name: name.Text(), Kind: kind, Ident: name, Decl: n})
}

func (r *Resolver) bind(s *Scope, b *Binding) {
	s.declare(b)
	r.decls[b.Ident] = b
}

func (r *Resolver) declarePattern(p *tsast.Node, s *Scope, decl *tsast.Node, kind Kind) {
	if p == nil {
		return
	}

	switch p.Type {
	case "identifier":
		r.bind(s, &Binding{Name: p.Text(), Kind: kind, Ident: p, Decl: decl})
	case "object_pattern":
		for _, c := range p.NamedChildren() {
			r.declareProperty(c, s, decl, kind)
		}
	case "array_pattern":
		for _, c := range p.NamedChildren() {
			r.declarePattern(c, s, decl, kind)
		}
	case "assignment_pattern":
		r.declarePattern(p.ChildByField("left"), s, decl, kind)
	case "rest_pattern":
		for _, c := range p.NamedChildren() {
			r.declarePattern(c, s, decl, kind)
		}
	}
}

// declareProperty handles one entry of an object pattern, remembering which
// property the local name was taken from.
func (r *Resolver) declareProperty(c *tsast.Node, s *Scope, decl *tsast.Node, kind Kind) {
	switch c.Type {
	case "shorthand_property_identifier_pattern":
		r.bind(s, &Binding{Name: c.Text(), Kind: kind, Ident: c, Decl: decl, PatternKey: c.Text()})
	case "object_assignment_pattern":
		left := c.ChildByField("left")
		if left.Is("shorthand_property_identifier_pattern", "identifier") {
			r.bind(s, &Binding{Name: left.Text(), Kind: kind, Ident: left, Decl: decl, PatternKey: left.Text()})
		}
	case "pair_pattern":
		key := propertyKey(c.ChildByField("key"))
		value := c.ChildByField("value")

		if value.Is("assignment_pattern") {
			value = value.ChildByField("left")
		}

		if value.Is("identifier") && key != "" {
			r.bind(s, &Binding{Name: value.Text(), Kind: kind, Ident: value, Decl: decl, PatternKey: key})

			return
		}

		r.declarePattern(value, s, decl, kind)
	case "rest_pattern":
		r.declarePattern(c, s, decl, kind)
	}
}

func (r *Resolver) declareImport(n *tsast.Node, s *Scope) {
	src, ok := n.ChildByField("source").StringValue()
	if !ok {
		return
	}

	clause := n.FirstChildOfType("import_clause")
	if clause == nil {
		return
	}

	for _, c := range clause.NamedChildren() {
		switch c.Type {
		case "identifier":
			r.bind(s, &Binding{Name: c.Text(), Kind: KindImport, Ident: c, Decl: clause,
				Import: &Import{Source: src, Imported: "default"}})
		case "namespace_import":
			if id := c.FirstChildOfType("identifier"); id != nil {
				r.bind(s, &Binding{Name: id.Text(), Kind: KindImport, Ident: id, Decl: c,
					Import: &Import{Source: src, Imported: "*"}})
			}
		case "named_imports":
			for _, spec := range c.ChildrenOfType("import_specifier") {
				r.declareSpecifier(spec, src, s)
			}
		}
	}
}

func (r *Resolver) declareSpecifier(spec *tsast.Node, src string, s *Scope) {
	name := spec.ChildByField("name")
	if name == nil {
		return
	}

	local := name
	if alias := spec.ChildByField("alias"); alias != nil {
		local = alias
	}

	imported := name.Text()
	if v, ok := name.StringValue(); ok {
		imported = v
	}

	r.bind(s, &Binding{Name: local.Text(), Kind: KindImport, Ident: local, Decl: spec,
		Import: &Import{Source: src, Imported: imported}})
}

func propertyKey(k *tsast.Node) string {
	if k == nil {
		return ""
	}

	if v, ok := k.StringValue(); ok {
		return v
	}

	if k.Is("property_identifier", "identifier", "number") {
		return k.Text()
	}

	return ""
}
