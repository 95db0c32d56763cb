package convert

import (
	"slices"

	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
	"github.com/Sumatoshi-tech/vuesetup/pkg/scope"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// maxAliasDepth bounds how far alias chains of this are followed.
const maxAliasDepth = 32

var classTypes = []string{"class_declaration", "class", "abstract_class_declaration"}

// predicates answers recognition questions for one file. No predicate fails
// on input it does not recognize; it reports no match instead.
type predicates struct {
	res        *scope.Resolver
	rules      *rules.Rules
	components map[*tsast.Node]bool
}

func newPredicates(res *scope.Resolver, r *rules.Rules) *predicates {
	return &predicates{res: res, rules: r, components: make(map[*tsast.Node]bool)}
}

// importOf returns the import behind an identifier, or nil.
func (p *predicates) importOf(ident *tsast.Node) *scope.Import {
	if !ident.Is("identifier") {
		return nil
	}

	b := p.res.Resolve(ident)
	if b == nil || b.Kind != scope.KindImport {
		return nil
	}

	return b.Import
}

// heritage returns the expression a class extends, or nil.
func heritage(class *tsast.Node) *tsast.Node {
	h := class.FirstChildOfType("class_heritage")
	if h == nil {
		return nil
	}

	if ext := h.FirstChildOfType("extends_clause"); ext != nil {
		if v := ext.ChildByField("value"); v != nil {
			return v
		}

		named := ext.NamedChildren()
		if len(named) > 0 {
			return named[0]
		}

		return nil
	}

	for _, c := range h.NamedChildren() {
		if c.Type != "implements_clause" {
			return c
		}
	}

	return nil
}

// isBaseClass reports whether expr names a recognized component base class.
func (p *predicates) isBaseClass(expr *tsast.Node) bool {
	expr = expr.Unparen()

	if expr.Is("member_expression") {
		imp := p.importOf(expr.ChildByField("object").Unparen())

		return imp != nil && imp.Imported == "*" && slices.Contains(p.rules.BaseModules(), imp.Source)
	}

	imp := p.importOf(expr)
	if imp == nil {
		return false
	}

	switch imp.Imported {
	case "default":
		return slices.Contains(p.rules.Modules.DefaultBase, imp.Source)
	case "*":
		return false
	default:
		return slices.Contains(p.rules.Modules.NamedBase, imp.Source)
	}
}

// decoratorExpr returns the expression of a decorator node.
func decoratorExpr(dec *tsast.Node) *tsast.Node {
	named := dec.NamedChildren()
	for _, c := range named {
		if c.Type != "comment" {
			return c.Unparen()
		}
	}

	return nil
}

// isComponentDecorator reports whether dec marks a class as component,
// bare or called.
func (p *predicates) isComponentDecorator(dec *tsast.Node) bool {
	expr := decoratorExpr(dec)
	if expr.Is("call_expression") {
		expr = expr.ChildByField("function")
	}

	imp := p.importOf(expr)
	if imp == nil {
		return false
	}

	if imp.Imported == "default" {
		return slices.Contains(p.rules.Modules.DefaultComponent, imp.Source)
	}

	return imp.Imported == p.rules.Decorators.Component &&
		slices.Contains(p.rules.Modules.NamedComponent, imp.Source)
}

// decoratorCall returns the call expression of dec when it invokes the
// member decorator called name. A bare @Name is not an invocation.
func (p *predicates) decoratorCall(dec *tsast.Node, name string) *tsast.Node {
	call := decoratorExpr(dec)
	if !call.Is("call_expression") {
		return nil
	}

	callee := call.ChildByField("function")

	imp := p.importOf(callee)
	if imp == nil || !slices.Contains(p.rules.Modules.Decorators, imp.Source) {
		return nil
	}

	if callee.Text() != name && imp.Imported != name {
		return nil
	}

	return call
}

// classDecorators returns the decorators of a class, including those
// written before an enclosing export.
func classDecorators(class *tsast.Node) []*tsast.Node {
	decs := class.ChildrenOfType("decorator")

	if class.Parent.Is("export_statement") {
		decs = append(class.Parent.ChildrenOfType("decorator"), decs...)
	}

	return decs
}

// memberDecorators returns the decorators of a class member. Method
// decorators may be stored as preceding siblings in the class body.
func memberDecorators(member *tsast.Node) []*tsast.Node {
	decs := member.ChildrenOfType("decorator")

	var before []*tsast.Node

	for s := member.PrevSibling(); s != nil; s = s.PrevSibling() {
		if s.Type == "comment" {
			continue
		}

		if s.Type != "decorator" {
			break
		}

		before = append(before, s)
	}

	slices.Reverse(before)

	return append(before, decs...)
}

// isComponentClass checks the component invariant: a recognized base class
// and a component decorator. Results are memoized per class node.
func (p *predicates) isComponentClass(class *tsast.Node) bool {
	if !class.Is(classTypes...) {
		return false
	}

	if v, ok := p.components[class]; ok {
		return v
	}

	base := heritage(class)
	ok := base != nil && p.isBaseClass(base) &&
		slices.ContainsFunc(classDecorators(class), p.isComponentDecorator)

	p.components[class] = ok

	return ok
}

// isComponentMember reports whether member belongs to a class that will be
// transformed.
func (p *predicates) isComponentMember(member *tsast.Node) bool {
	body := member.Parent
	if !body.Is("class_body") {
		return false
	}

	return p.isComponentClass(body.Parent)
}

// componentOfThis returns the component class a this expression denotes.
func (p *predicates) componentOfThis(this *tsast.Node) *tsast.Node {
	class := p.res.ThisClass(this)
	if class == nil || !p.isComponentClass(class) {
		return nil
	}

	return class
}

// thisOrigin follows an expression through aliases of this and returns the
// component class it ends up denoting, or nil.
func (p *predicates) thisOrigin(expr *tsast.Node) *tsast.Node {
	for range maxAliasDepth {
		expr = expr.Unparen()

		switch {
		case expr == nil:
			return nil
		case expr.Type == "this":
			return p.componentOfThis(expr)
		case expr.Type != "identifier":
			return nil
		}

		b := p.res.Resolve(expr)
		if b == nil || b.Kind != scope.KindVariable || b.Destructured() || b.Decl.ChildByField("name") != b.Ident {
			return nil
		}

		expr = b.Init()
	}

	return nil
}

// destructuredFrom returns the component class and member name behind an
// identifier bound by destructuring this (or an alias of it).
func (p *predicates) destructuredFrom(ident *tsast.Node) (*tsast.Node, string) {
	b := p.res.Resolve(ident)
	if b == nil || b.Kind != scope.KindVariable || !b.Destructured() || b.Ident == ident {
		return nil, ""
	}

	pattern := b.Decl.ChildByField("name")
	if !pattern.Is("object_pattern") || !pattern.Contains(b.Ident) {
		return nil, ""
	}

	if !topLevelEntry(b.Ident, pattern) {
		return nil, ""
	}

	class := p.thisOrigin(b.Init())
	if class == nil {
		return nil, ""
	}

	return class, b.PatternKey
}

// topLevelEntry reports whether ident is bound by an entry of pattern itself
// rather than by a nested pattern. Only top-level entries map onto members.
func topLevelEntry(ident, pattern *tsast.Node) bool {
	p := ident.Parent

	switch {
	case p == pattern:
		return true
	case p.Is("object_assignment_pattern", "pair_pattern"):
		return p.Parent == pattern
	case p.Is("assignment_pattern"):
		return p.Parent.Is("pair_pattern") && p.Parent.Parent == pattern
	}

	return false
}

// capturesThis reports whether a variable declarator only exists to hold
// this: directly, through an alias, or by destructuring it.
func (p *predicates) capturesThis(decl *tsast.Node) bool {
	if !decl.Is("variable_declarator") {
		return false
	}

	value := decl.ChildByField("value")
	if value == nil {
		return false
	}

	if !decl.ChildByField("name").Is("identifier", "object_pattern") {
		return false
	}

	return p.thisOrigin(value) != nil
}
