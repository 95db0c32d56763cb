package convert

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// layout carries the indentation of one component being lowered.
type layout struct {
	base string
	prop string
	stmt string
	unit string
}

func (l layout) inner() string {
	return l.stmt + l.unit
}

func (w *writer) lowerState(l layout, m *Member) string {
	ids := w.rules.Identifiers
	w.used[ids.Ref] = true

	init := ""

	w.shifted(m.Node, l.stmt, func() {
		init = w.render(m.Node.ChildByField("value"))
	})

	return "const " + m.Name + " = " + ids.Ref + typeArgs(m.Node.ChildByField("type")) + "(" + init + ");"
}

func (w *writer) lowerComputed(l layout, m *Member) (string, error) {
	if m.Getter == nil {
		return "", fmt.Errorf("%w: computed %q has no getter", ErrRequiredValue, m.Name)
	}

	ids := w.rules.Identifiers
	w.used[ids.Computed] = true

	var b strings.Builder

	b.WriteString("const " + m.Name + " = " + ids.Computed + typeArgs(m.Getter.ChildByField("return_type")) + "(() => ")

	w.shifted(m.Getter, l.stmt, func() {
		b.WriteString(w.render(m.Getter.ChildByField("body")))
	})

	if m.Setter != nil {
		w.shifted(m.Setter, l.stmt, func() {
			b.WriteString(", " + w.render(m.Setter.ChildByField("parameters")) + " => " + w.render(m.Setter.ChildByField("body")))
		})
	}

	b.WriteString(");")

	return b.String(), nil
}

func (w *writer) lowerMethod(l layout, m *Member) string {
	var text string

	w.shifted(m.Node, l.stmt, func() {
		text = "const " + m.Name + " = " + w.function(m.Node) + ";"
	})

	return text
}

// function renders a method as a function expression: an arrow function, or
// function* for generators.
func (w *writer) function(method *tsast.Node) string {
	async := ""
	if method.HasToken("async") {
		async = "async "
	}

	params := w.render(method.ChildByField("parameters"))
	ret := ""

	if rt := method.ChildByField("return_type"); rt != nil {
		ret = rt.Text()
	}

	body := w.render(method.ChildByField("body"))

	if method.HasToken("*") {
		return async + "function* " + w.typeParams(method) + params + ret + " " + body
	}

	return async + w.typeParams(method) + params + ret + " => " + body
}

// typeParams renders method type parameters. In TSX a lone parameter gets a
// trailing comma so that it does not read as a JSX tag.
func (w *writer) typeParams(method *tsast.Node) string {
	tp := method.ChildByField("type_parameters")
	if tp == nil {
		return ""
	}

	text := tp.Text()
	if w.file.Language == tsast.TSX && len(tp.NamedChildren()) == 1 && !strings.Contains(text, ",") {
		text = strings.TrimSuffix(text, ">") + ",>"
	}

	return text
}

func (w *writer) lowerLifecycle(l layout, m *Member) string {
	hook := w.rules.LifecycleHook(m.Name)
	w.used[hook] = true

	async := ""
	if m.Node.HasToken("async") {
		async = "async "
	}

	var text string

	w.shifted(m.Node, l.stmt, func() {
		text = hook + "(" + async + "() => " + w.render(m.Node.ChildByField("body")) + ");"
	})

	return text
}

func (w *writer) lowerWatcher(l layout, m *Member) []string {
	ids := w.rules.Identifiers
	w.used[ids.Watch] = true

	async := ""
	if m.Node.HasToken("async") {
		async = "async "
	}

	out := make([]string, 0, len(m.Watches))

	w.shifted(m.Node, l.stmt, func() {
		callback := async + w.render(m.Node.ChildByField("parameters")) + " => " + w.render(m.Node.ChildByField("body"))

		for _, target := range m.Watches {
			text := ids.Watch + "(" + target.Expr + ", " + callback
			if target.Options != nil {
				text += ", " + target.Options.Text()
			}

			out = append(out, text+");")
		}
	})

	return out
}

// lowerEmitter moves the return values of an @Emit method into the emit
// call, followed by the method's own parameters.
func (w *writer) lowerEmitter(l layout, m *Member) string {
	ids := w.rules.Identifiers

	async := ""
	if m.Node.HasToken("async") {
		async = "async "
	}

	var b strings.Builder

	w.shifted(m.Node, l.stmt, func() {
		params := m.Node.ChildByField("parameters")
		args := []string{m.Event}

		b.WriteString("const " + m.Name + " = " + async + w.render(params) + " => {\n")

		if body := m.Node.ChildByField("body"); body != nil {
			for _, stmt := range body.NamedChildren() {
				if stmt.Type != "return_statement" {
					b.WriteString(l.inner() + w.render(stmt) + "\n")

					continue
				}

				if expr := returnValue(stmt); expr != nil {
					args = append(args, w.render(expr))
				}
			}
		}

		args = append(args, paramNames(params)...)

		b.WriteString(l.inner() + ids.Context + "." + ids.Emit + "(" + strings.Join(args, ", ") + ");\n")
		b.WriteString(l.stmt + "};")
	})

	return b.String()
}

func returnValue(stmt *tsast.Node) *tsast.Node {
	for _, c := range stmt.NamedChildren() {
		if c.Type != "comment" {
			return c
		}
	}

	return nil
}

// paramNames lists the plain identifier parameters, spreading rest ones.
func paramNames(params *tsast.Node) []string {
	var out []string

	for _, p := range params.NamedChildren() {
		if !p.Is("required_parameter", "optional_parameter") {
			continue
		}

		pattern := p.ChildByField("pattern")

		switch {
		case pattern.Is("identifier"):
			out = append(out, pattern.Text())
		case pattern.Is("rest_pattern"):
			if id := pattern.FirstChildOfType("identifier"); id != nil {
				out = append(out, "..."+id.Text())
			}
		}
	}

	return out
}

// lowerProviders collapses every provider into one provide call.
func (w *writer) lowerProviders(l layout, providers []*Member) string {
	ids := w.rules.Identifiers
	w.used[ids.Provide] = true

	entries := make([]string, 0, len(providers))

	for _, m := range providers {
		w.shifted(m.Node, l.inner(), func() {
			entries = append(entries, l.inner()+m.Key+": "+w.render(m.Node.ChildByField("value")))
		})
	}

	return ids.Provide + "({\n" + strings.Join(entries, ",\n") + "\n" + l.stmt + "});"
}

func (w *writer) lowerInjector(m *Member) string {
	ids := w.rules.Identifiers
	w.used[ids.Inject] = true

	return "const " + m.Name + " = " + ids.Inject + typeArgs(m.Node.ChildByField("type")) + "(" + m.Key + ");"
}

// typeArgs turns a type annotation into a type argument list.
func typeArgs(annotation *tsast.Node) string {
	if annotation == nil {
		return ""
	}

	named := annotation.NamedChildren()
	if len(named) == 0 {
		return ""
	}

	return "<" + named[0].Text() + ">"
}

// propsType renders the type of the props parameter.
func (w *writer) propsType(props []*Member) string {
	if len(props) == 0 {
		return "{}"
	}

	fields := make([]string, 0, len(props))

	for _, m := range props {
		typ := ""
		if ann := m.Node.ChildByField("type"); ann != nil && len(ann.NamedChildren()) > 0 {
			typ = ann.NamedChildren()[0].Text()
		} else {
			typ = inferPropType(firstArg(m.Decorator))
		}

		opt := "?"
		if !m.Node.HasToken("?") && propRequired(firstArg(m.Decorator)) {
			opt = ""
		}

		fields = append(fields, m.Name+opt+": "+typ)
	}

	return "{ " + strings.Join(fields, "; ") + " }"
}

// runtimeProps renders the props option from the decorator arguments.
func runtimeProps(props []*Member) string {
	fields := make([]string, 0, len(props))

	for _, m := range props {
		value := "null"
		if arg := firstArg(m.Decorator); arg != nil {
			value = arg.Text()
		}

		fields = append(fields, m.Name+": "+value)
	}

	return "{ " + strings.Join(fields, ", ") + " }"
}

func firstArg(call *tsast.Node) *tsast.Node {
	if call == nil {
		return nil
	}

	args := callArgs(call)
	if len(args) == 0 {
		return nil
	}

	return args[0]
}

var constructorTypes = map[string]string{
	"Number":   "number",
	"String":   "string",
	"Boolean":  "boolean",
	"Array":    "any[]",
	"Object":   "Record<string, any>",
	"Function": "Function",
	"Symbol":   "symbol",
	"Date":     "Date",
}

// inferPropType derives a TypeScript type from a runtime prop declaration.
func inferPropType(arg *tsast.Node) string {
	if arg == nil {
		return "any"
	}

	switch arg.Type {
	case "identifier":
		if t, ok := constructorTypes[arg.Text()]; ok {
			return t
		}

		return arg.Text()
	case "array":
		var parts []string

		for _, el := range arg.NamedChildren() {
			if t := inferPropType(el); !slices.Contains(parts, t) {
				parts = append(parts, t)
			}
		}

		if len(parts) == 0 {
			return "any"
		}

		return strings.Join(parts, " | ")
	case "object":
		for _, pair := range arg.ChildrenOfType("pair") {
			if key, _ := propertyName(pair.ChildByField("key")); key == "type" {
				return inferPropType(pair.ChildByField("value"))
			}
		}
	case "as_expression":
		if named := arg.NamedChildren(); len(named) > 1 {
			return unwrapPropType(named[len(named)-1].Text())
		}
	}

	return "any"
}

// unwrapPropType reads T out of PropType<T>.
func unwrapPropType(text string) string {
	if inner, ok := strings.CutPrefix(text, "PropType<"); ok {
		return strings.TrimSuffix(inner, ">")
	}

	return text
}

func propRequired(arg *tsast.Node) bool {
	if !arg.Is("object") {
		return false
	}

	for _, pair := range arg.ChildrenOfType("pair") {
		if key, _ := propertyName(pair.ChildByField("key")); key == "required" {
			return pair.ChildByField("value").Is("true")
		}
	}

	return false
}
