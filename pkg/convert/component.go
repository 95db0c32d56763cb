package convert

import (
	"strings"

	"github.com/Sumatoshi-tech/vuesetup/pkg/levenshtein"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

const defaultIndent = "  "

// lowerComponent renders the object literal that replaces a component
// class. The setup body follows a fixed order: injectors, state, emitters,
// methods, computed, lifecycle hooks, watchers, providers, return.
func (w *writer) lowerComponent(info *ComponentInfo, base string) string {
	l := w.layoutFor(info, base)
	ids := w.rules.Identifiers

	var stmts []string

	for _, m := range info.Injectors {
		stmts = append(stmts, w.lowerInjector(m))
	}

	for _, m := range info.States {
		stmts = append(stmts, w.lowerState(l, m))
	}

	for _, m := range info.Emitters {
		stmts = append(stmts, w.lowerEmitter(l, m))
	}

	for _, m := range info.Methods {
		stmts = append(stmts, w.lowerMethod(l, m))
	}

	computed := emittedComputed(info)
	for _, m := range computed {
		text, err := w.lowerComputed(l, m)
		if err != nil {
			w.fail(err)

			continue
		}

		stmts = append(stmts, text)
	}

	for _, m := range info.Lifecycles {
		stmts = append(stmts, w.lowerLifecycle(l, m))
	}

	for _, m := range info.Watchers {
		stmts = append(stmts, w.lowerWatcher(l, m)...)
	}

	if len(info.Providers) > 0 {
		stmts = append(stmts, w.lowerProviders(l, info.Providers))
	}

	stmts = append(stmts, "return "+returnObject(info, computed)+";")

	var b strings.Builder

	b.WriteString("{\n")

	if w.opts.RuntimeProps && len(info.Props) > 0 {
		b.WriteString(l.prop + ids.Props + ": " + runtimeProps(info.Props) + ",\n")
	}

	b.WriteString(l.prop + ids.Setup + "(" + ids.Props + ": " + w.propsType(info.Props) + ", " + ids.Context + ") {\n")

	for _, s := range stmts {
		b.WriteString(l.stmt + s + "\n")
	}

	b.WriteString(l.prop + "}")

	if info.Render != nil {
		b.WriteString(",\n" + l.prop + w.renderMethod(l, info.Render.Node))
	}

	b.WriteString("\n" + base + "}")

	return b.String()
}

// layoutFor derives the indentation unit from the first class member,
// falling back to the configured indent.
func (w *writer) layoutFor(info *ComponentInfo, base string) layout {
	unit := w.opts.Indent
	if unit == "" {
		unit = defaultIndent
	}

	if members := info.Class.ChildByField("body").NamedChildren(); len(members) > 0 && w.opts.Indent == "" {
		indent := lineIndent(w.file.Src, members[0].Start)
		if rest, ok := strings.CutPrefix(indent, base); ok && rest != "" {
			unit = rest
		}
	}

	return layout{base: base, prop: base + unit, stmt: base + unit + unit, unit: unit}
}

// emittedComputed keeps the computed members that have a getter.
func emittedComputed(info *ComponentInfo) []*Member {
	out := make([]*Member, 0, len(info.Computed))

	for _, m := range info.Computed {
		if m.Getter != nil {
			out = append(out, m)
		}
	}

	return out
}

// returnObject lists the outward bindings: injected, state, methods,
// computed.
func returnObject(info *ComponentInfo, computed []*Member) string {
	var names []string

	for _, group := range [][]*Member{info.Injectors, info.States, info.Methods, computed} {
		for _, m := range group {
			names = append(names, m.Name)
		}
	}

	if len(names) == 0 {
		return "{}"
	}

	return "{ " + strings.Join(names, ", ") + " }"
}

// renderMethod copies the render method verbatim, minus class-only
// modifiers, re-indented to object property level. Its body is not
// rewritten.
func (w *writer) renderMethod(l layout, method *tsast.Node) string {
	var b strings.Builder

	w.shifted(method, l.prop, func() {
		pos := -1

		for _, c := range method.Children {
			if pos < 0 && c.Is("accessibility_modifier", "override_modifier", "decorator", "comment") {
				continue
			}

			if pos >= 0 {
				w.copy(&b, pos, c.Start)
			}

			w.verbatim(&b, c)
			pos = c.End
		}
	})

	return b.String()
}

// verbatim copies n without rewriting, only shifting indentation.
func (w *writer) verbatim(b *strings.Builder, n *tsast.Node) {
	if n.Type == "template_string" {
		w.raw++
		defer func() { w.raw-- }()
	}

	pos := n.Start

	for _, c := range n.Children {
		w.copy(b, pos, c.Start)
		w.verbatim(b, c)
		pos = c.End
	}

	w.copy(b, pos, n.End)
}

// hintDistance bounds the edits between a method name and the lifecycle
// hook it is reported as a likely misspelling of.
const hintDistance = 2

// report summarizes a lowered component.
func report(info *ComponentInfo, r *rules.Rules) ComponentReport {
	rep := ComponentReport{
		Name:  info.Name,
		Roles: make(map[Role]int),
		Start: info.Class.StartPosition(),
		End:   info.Class.EndPosition(),
	}

	for _, role := range Roles {
		members := info.Members(role)
		if len(members) == 0 {
			continue
		}

		rep.Roles[role] = len(members)

		for _, m := range members {
			mr := MemberReport{
				Name:   m.Name,
				Reason: m.Reason,
				Start:  m.Node.StartPosition(),
				End:    m.Node.EndPosition(),
				Role:   role,
			}

			if role == RoleMethod && len(m.Name) > hintDistance+2 {
				if hook, ok := levenshtein.Closest(m.Name, r.Lifecycles, hintDistance); ok {
					mr.Hint = "did you mean lifecycle hook " + hook + "?"
				}
			}

			rep.Members = append(rep.Members, mr)
		}
	}

	for _, m := range info.Ignored {
		rep.Ignored = append(rep.Ignored, m.Name+" ("+m.Reason+")")
	}

	return rep
}
