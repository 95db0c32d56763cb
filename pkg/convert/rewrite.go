package convert

import (
	"strings"

	"github.com/Sumatoshi-tech/vuesetup/pkg/scope"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// writer renders nodes back to text. Unchanged regions are copied from the
// source byte for byte; recognized constructs are replaced as they are met.
// Lowering and reference rewriting share this single traversal.
type writer struct {
	*predicates
	file  *tsast.File
	infos map[*tsast.Node]*ComponentInfo
	used  map[string]bool
	err   error
	// refs indexes the uses of every binding; drops caches which
	// declarators are removed.
	refs  map[*scope.Binding][]*tsast.Node
	drops map[*tsast.Node]bool
	opts  Options
	// from and to describe the indentation shift applied to copied lines.
	from  string
	to    string
	raw   int
	quote byte
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// render returns the text of n with every rewrite applied.
func (w *writer) render(n *tsast.Node) string {
	if n == nil {
		return ""
	}

	var b strings.Builder

	w.emit(&b, n)

	return b.String()
}

func (w *writer) emit(b *strings.Builder, n *tsast.Node) {
	if n.Type == "template_string" {
		w.raw++
		defer func() { w.raw-- }()
	}

	if text, ok := w.rewrite(n); ok {
		b.WriteString(text)

		return
	}

	pos := n.Start

	for _, c := range n.Children {
		w.copy(b, pos, c.Start)
		w.emit(b, c)
		pos = c.End
	}

	w.copy(b, pos, n.End)
}

// copy writes a source range, moving lines that start with the current
// indentation prefix onto the target prefix. Template literal contents are
// never touched.
func (w *writer) copy(b *strings.Builder, start, end int) {
	if start >= end {
		return
	}

	text := string(w.file.Src[start:end])
	if w.raw > 0 || w.from == w.to || !strings.Contains(text, "\n") {
		b.WriteString(text)

		return
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')

			if rest, ok := strings.CutPrefix(line, w.from); ok {
				line = w.to + rest
			}
		}

		b.WriteString(line)
	}
}

// shifted runs fn with lines indented like member moved to target.
func (w *writer) shifted(member *tsast.Node, target string, fn func()) {
	from, to := w.from, w.to
	w.from, w.to = lineIndent(w.file.Src, member.Start), target

	defer func() { w.from, w.to = from, to }()

	fn()
}

// rewrite dispatches on node kind.
func (w *writer) rewrite(n *tsast.Node) (string, bool) {
	switch n.Type {
	case "export_statement":
		return w.rewriteExport(n)
	case "class_declaration", "abstract_class_declaration":
		if info := w.infos[n]; info != nil {
			return w.declareComponent(info, "const "+info.Name+" = ", ";"), true
		}
	case "class":
		if info := w.infos[n]; info != nil {
			return w.lowerComponent(info, lineIndent(w.file.Src, n.Start)), true
		}
	case "member_expression":
		return w.rewriteMemberAccess(n)
	case "identifier":
		return w.rewriteIdentifier(n)
	case "shorthand_property_identifier":
		if text, ok := w.rewriteIdentifier(n); ok {
			return n.Text() + ": " + text, true
		}
	case "lexical_declaration", "variable_declaration":
		return w.rewriteDeclaration(n)
	}

	return "", false
}

func (w *writer) rewriteExport(n *tsast.Node) (string, bool) {
	if decl := n.ChildByField("declaration"); decl != nil {
		info := w.infos[decl]
		if info == nil {
			return "", false
		}

		if n.HasToken("default") {
			indent := lineIndent(w.file.Src, n.Start)

			return w.declareComponent(info, "const "+info.Name+" = ", ";") +
				"\n" + indent + "export default " + info.Name + ";", true
		}

		return w.declareComponent(info, "export const "+info.Name+" = ", ";"), true
	}

	if value := n.ChildByField("value"); value != nil {
		if info := w.infos[value.Unparen()]; info != nil {
			return w.declareComponent(info, "export default ", ";"), true
		}
	}

	return "", false
}

func (w *writer) declareComponent(info *ComponentInfo, prefix, suffix string) string {
	return prefix + w.lowerComponent(info, lineIndent(w.file.Src, info.Class.Start)) + suffix
}

// rewriteMemberAccess handles this.<name> and <alias of this>.<name>.
func (w *writer) rewriteMemberAccess(n *tsast.Node) (string, bool) {
	prop := n.ChildByField("property")
	if !prop.Is("property_identifier") {
		return "", false
	}

	obj := n.ChildByField("object").Unparen()

	var class *tsast.Node

	switch {
	case obj.Is("this"):
		class = w.componentOfThis(obj)
	case obj.Is("identifier"):
		class = w.thisOrigin(obj)
	}

	if class == nil {
		return "", false
	}

	return w.memberAccess(w.infos[class], prop.Text())
}

// rewriteIdentifier handles names destructured out of this. Names of a
// declarator that stays in the output keep referring to it.
func (w *writer) rewriteIdentifier(n *tsast.Node) (string, bool) {
	class, key := w.destructuredFrom(n)
	if class == nil || !w.dropsCapture(w.res.Resolve(n).Decl, 0) {
		return "", false
	}

	return w.memberAccess(w.infos[class], key)
}

// memberAccess renders a reference to a component member by role.
func (w *writer) memberAccess(info *ComponentInfo, name string) (string, bool) {
	if info == nil {
		return "", false
	}

	ids := w.rules.Identifiers

	if w.rules.IsContextProperty(name) {
		return ids.Context + "." + name, true
	}

	m := info.Lookup(name)
	if m == nil {
		return "", false
	}

	switch m.Role {
	case RoleState:
		return name + "." + ids.Value, true
	case RoleComputed:
		if m.Getter == nil {
			return "", false
		}

		return name + "." + ids.Value, true
	case RoleMethod, RoleInjector, RoleEmitter:
		return name, true
	case RoleProp:
		return ids.Props + "." + name, true
	default:
		return "", false
	}
}

// dropsCapture reports whether a declarator capturing this is removed. That
// holds only when every name it binds is rewritten away: each pattern entry
// maps onto a member, and an alias is only used as the object of a member
// access or to start another removed capture.
func (w *writer) dropsCapture(decl *tsast.Node, depth int) bool {
	if depth > maxAliasDepth || !w.capturesThis(decl) {
		return false
	}

	if drop, ok := w.drops[decl]; ok {
		return drop
	}

	if w.drops == nil {
		w.drops = make(map[*tsast.Node]bool)
	}

	// Provisional answer for alias cycles, which valid input never has.
	w.drops[decl] = false

	var drop bool

	switch name := decl.ChildByField("name"); name.Type {
	case "identifier":
		drop = true

		for _, ref := range w.references(w.res.DeclarationOf(name)) {
			if !w.aliasUseRewritten(ref, depth) {
				drop = false

				break
			}
		}
	case "object_pattern":
		class := w.thisOrigin(decl.ChildByField("value"))
		drop = w.patternOfMembers(name, w.infos[class])
	}

	w.drops[decl] = drop

	return drop
}

// aliasUseRewritten reports whether one use of an alias of this disappears
// from the output.
func (w *writer) aliasUseRewritten(ref *tsast.Node, depth int) bool {
	outer := ref
	for outer.Parent.Is("parenthesized_expression") {
		outer = outer.Parent
	}

	parent := outer.Parent

	switch {
	case parent.Is("member_expression") && parent.ChildByField("object") == outer:
		prop := parent.ChildByField("property")
		if !prop.Is("property_identifier") {
			return false
		}

		_, ok := w.memberAccess(w.infos[w.thisOrigin(ref)], prop.Text())

		return ok
	case parent.Is("variable_declarator") && parent.ChildByField("value") == outer:
		return w.dropsCapture(parent, depth+1)
	}

	return false
}

// patternOfMembers reports whether every entry of an object pattern binds
// one member of info by name. Rest entries and nested patterns do not.
func (w *writer) patternOfMembers(pattern *tsast.Node, info *ComponentInfo) bool {
	for _, entry := range pattern.NamedChildren() {
		var ident *tsast.Node

		switch entry.Type {
		case "comment":
			continue
		case "shorthand_property_identifier_pattern":
			ident = entry
		case "object_assignment_pattern":
			ident = entry.ChildByField("left")
		case "pair_pattern":
			ident = entry.ChildByField("value")
			if ident.Is("assignment_pattern") {
				ident = ident.ChildByField("left")
			}
		}

		if ident == nil {
			return false
		}

		b := w.res.DeclarationOf(ident)
		if b == nil || !b.Destructured() {
			return false
		}

		if _, ok := w.memberAccess(info, b.PatternKey); !ok {
			return false
		}
	}

	return true
}

// references returns the uses of b, excluding its declaring identifier.
func (w *writer) references(b *scope.Binding) []*tsast.Node {
	if b == nil {
		return nil
	}

	if w.refs == nil {
		w.refs = make(map[*scope.Binding][]*tsast.Node)

		w.file.Root.Walk(func(n *tsast.Node) bool {
			if !n.Is("identifier", "shorthand_property_identifier") {
				return true
			}

			if use := w.res.Resolve(n); use != nil && use.Ident != n {
				w.refs[use] = append(w.refs[use], n)
			}

			return true
		})
	}

	return w.refs[b]
}

// rewriteDeclaration drops declarators that only captured this. A
// declaration left without declarators becomes an empty statement.
func (w *writer) rewriteDeclaration(n *tsast.Node) (string, bool) {
	decls := n.ChildrenOfType("variable_declarator")

	kept := make([]*tsast.Node, 0, len(decls))

	for _, d := range decls {
		if !w.dropsCapture(d, 0) {
			kept = append(kept, d)
		}
	}

	if len(kept) == len(decls) {
		return "", false
	}

	if len(kept) == 0 {
		return ";", true
	}

	parts := make([]string, 0, len(kept))
	for _, d := range kept {
		parts = append(parts, w.render(d))
	}

	text := n.Children[0].Text() + " " + strings.Join(parts, ", ")

	if last := n.Children[len(n.Children)-1]; last.Type == ";" && last.End > last.Start {
		text += ";"
	}

	return text, true
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}

	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}

	return string(src[start:end])
}
