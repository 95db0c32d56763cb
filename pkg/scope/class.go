package scope

import (
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// ThisClass returns the class whose instance a this expression denotes, or
// nil when this is rebound by an ordinary function or an object method.
func (r *Resolver) ThisClass(this *tsast.Node) *tsast.Node {
	for p := this.Parent; p != nil; p = p.Parent {
		switch {
		case p.Is(functionBoundaries...):
			return nil
		case p.Type == "method_definition" && !p.Parent.Is("class_body"):
			return nil
		case p.Type == "class_body":
			return p.Parent
		}
	}

	return nil
}

// Members returns the class members declared under name, in source order.
// Getters and setters of one accessor come back together.
func (r *Resolver) Members(class *tsast.Node, name string) []*tsast.Node {
	body := class.ChildByField("body")
	if body == nil {
		return nil
	}

	var out []*tsast.Node

	for _, m := range body.NamedChildren() {
		if MemberName(m) == name && name != "" {
			out = append(out, m)
		}
	}

	return out
}

// MemberName returns the simple name of a class member, or "" for computed
// keys and non-member nodes.
func MemberName(m *tsast.Node) string {
	if !m.Is("method_definition", "public_field_definition", "method_signature", "abstract_method_signature") {
		return ""
	}

	return propertyKey(m.ChildByField("name"))
}
