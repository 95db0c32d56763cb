package convert

import (
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/vuesetup/pkg/scope"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// classifier buckets the members of one component class.
type classifier struct {
	*predicates
	info  *ComponentInfo
	quote byte
}

// classify runs one linear pass over the class body. Every member lands in
// exactly one bucket; accessors are merged by name wherever they appear.
func (p *predicates) classify(class *tsast.Node, quote byte) (*ComponentInfo, error) {
	if !p.isComponentClass(class) {
		return nil, ErrInvalidCast
	}

	c := &classifier{
		predicates: p,
		quote:      quote,
		info: &ComponentInfo{
			Class:  class,
			Name:   className(class),
			byName: make(map[string]*Member),
		},
	}

	body := class.ChildByField("body")
	if body == nil {
		return nil, ErrInvalidCast
	}

	for _, m := range body.NamedChildren() {
		switch m.Type {
		case "decorator", "comment":
		case "public_field_definition":
			c.apply(propertyRules, m)
		case "method_definition":
			if m.HasToken("get") || m.HasToken("set") {
				c.apply(accessorRules, m)
			} else {
				c.apply(methodRules, m)
			}
		default:
			c.ignore(m, scope.MemberName(m), "unsupported member kind "+m.Type)
		}
	}

	c.resolveWatchTargets()

	return c.info, nil
}

func className(class *tsast.Node) string {
	if name := class.ChildByField("name"); name != nil {
		return name.Text()
	}

	return "default"
}

// candidate is a class member under classification.
type candidate struct {
	node *tsast.Node
	name string
	decs []*tsast.Node
}

// memberRule gives role to the members claim accepts. A claim returning a
// nil member accepts without adding one.
type memberRule struct {
	claim func(c *classifier, m candidate) (*Member, bool)
	role  Role
}

// Rules of each member kind are tried in order. The first claim wins and
// the last rule of every table always claims.
var (
	propertyRules = []memberRule{
		{(*classifier).unnamed, RoleIgnored},
		{(*classifier).static, RoleIgnored},
		{(*classifier).undecorated, RoleState},
		{(*classifier).prop, RoleProp},
		{(*classifier).provider, RoleProvider},
		{(*classifier).injector, RoleInjector},
		{(*classifier).unrecognized, RoleIgnored},
	}
	accessorRules = []memberRule{
		{(*classifier).unnamed, RoleIgnored},
		{(*classifier).static, RoleIgnored},
		{bodiless("accessor without body"), RoleIgnored},
		{(*classifier).computed, RoleComputed},
	}
	methodRules = []memberRule{
		{(*classifier).unnamed, RoleIgnored},
		{(*classifier).static, RoleIgnored},
		{(*classifier).constructor, RoleIgnored},
		{bodiless("method without body"), RoleIgnored},
		{(*classifier).render, RoleRender},
		{(*classifier).watcher, RoleWatcher},
		{(*classifier).emitter, RoleEmitter},
		{(*classifier).lifecycle, RoleLifecycle},
		{(*classifier).undecorated, RoleMethod},
		{(*classifier).unrecognized, RoleIgnored},
	}
)

func (c *classifier) apply(rules []memberRule, node *tsast.Node) {
	cand := candidate{node: node, name: scope.MemberName(node), decs: memberDecorators(node)}

	for _, r := range rules {
		m, ok := r.claim(c, cand)
		if !ok {
			continue
		}

		if m != nil {
			m.Role, m.Node = r.role, node
			if m.Name == "" {
				m.Name = cand.name
			}

			c.place(m)
		}

		return
	}
}

func (c *classifier) place(m *Member) {
	info := c.info

	switch m.Role {
	case RoleRender:
		info.Render = m
		info.byName[m.Name] = m
	case RoleState:
		c.add(&info.States, m)
	case RoleProp:
		c.add(&info.Props, m)
	case RoleComputed:
		c.add(&info.Computed, m)
	case RoleMethod:
		c.add(&info.Methods, m)
	case RoleLifecycle:
		c.add(&info.Lifecycles, m)
	case RoleEmitter:
		c.add(&info.Emitters, m)
	case RoleWatcher:
		c.add(&info.Watchers, m)
	case RoleProvider:
		c.add(&info.Providers, m)
	case RoleInjector:
		c.add(&info.Injectors, m)
	default:
		c.add(&info.Ignored, m)
	}
}

func (c *classifier) add(bucket *[]*Member, m *Member) {
	*bucket = append(*bucket, m)

	if _, seen := c.info.byName[m.Name]; !seen && m.Name != "" {
		c.info.byName[m.Name] = m
	}
}

func (c *classifier) ignore(node *tsast.Node, name, reason string) {
	c.add(&c.info.Ignored, &Member{Role: RoleIgnored, Node: node, Name: name, Reason: reason})
}

// findCall returns the first decorator invoking the named member decorator.
func (c *classifier) findCall(decs []*tsast.Node, name string) *tsast.Node {
	for _, d := range decs {
		if call := c.decoratorCall(d, name); call != nil {
			return call
		}
	}

	return nil
}

func skipped(reason string) (*Member, bool) {
	return &Member{Reason: reason}, true
}

func (c *classifier) unnamed(m candidate) (*Member, bool) {
	if m.name != "" {
		return nil, false
	}

	return &Member{Name: m.node.ChildByField("name").Text(), Reason: "computed or private name"}, true
}

func (c *classifier) static(m candidate) (*Member, bool) {
	if !m.node.HasToken("static") {
		return nil, false
	}

	return skipped("static member")
}

func (c *classifier) constructor(m candidate) (*Member, bool) {
	if m.name != "constructor" {
		return nil, false
	}

	return skipped("constructor")
}

func bodiless(reason string) func(*classifier, candidate) (*Member, bool) {
	return func(_ *classifier, m candidate) (*Member, bool) {
		if m.node.ChildByField("body") != nil {
			return nil, false
		}

		return skipped(reason)
	}
}

func (c *classifier) unrecognized(candidate) (*Member, bool) {
	return skipped("unrecognized decorator")
}

func (c *classifier) undecorated(m candidate) (*Member, bool) {
	return &Member{}, len(m.decs) == 0
}

func (c *classifier) prop(m candidate) (*Member, bool) {
	call := c.findCall(m.decs, c.rules.Decorators.Prop)

	return &Member{Decorator: call}, call != nil
}

func (c *classifier) provider(m candidate) (*Member, bool) {
	call := c.findCall(m.decs, c.rules.Decorators.Provide)
	if call == nil || m.node.ChildByField("value") == nil {
		return nil, false
	}

	return &Member{Decorator: call, Key: provideKey(call, m.name)}, true
}

func (c *classifier) injector(m candidate) (*Member, bool) {
	call := c.findCall(m.decs, c.rules.Decorators.Inject)
	if call == nil {
		return nil, false
	}

	return &Member{Decorator: call, Key: c.injectKey(call, m.name)}, true
}

// computed merges a getter and a setter of one name into a single member,
// wherever in the body each appears.
func (c *classifier) computed(m candidate) (*Member, bool) {
	existing := c.info.byName[m.name]

	var added *Member

	if existing == nil || existing.Role != RoleComputed {
		added = &Member{}
		existing = added
	}

	if m.node.HasToken("get") {
		if existing.Getter == nil {
			existing.Getter = m.node
		}
	} else if existing.Setter == nil {
		existing.Setter = m.node
	}

	return added, true
}

func (c *classifier) render(m candidate) (*Member, bool) {
	ok := m.name == c.rules.Identifiers.Render && len(m.decs) == 0 && c.info.Render == nil

	return &Member{}, ok
}

func (c *classifier) watcher(m candidate) (*Member, bool) {
	watches := c.watches(m.decs)

	return &Member{Watches: watches}, len(watches) > 0
}

func (c *classifier) emitter(m candidate) (*Member, bool) {
	call := c.findCall(m.decs, c.rules.Decorators.Emit)
	if call == nil {
		return nil, false
	}

	return &Member{Decorator: call, Event: c.eventName(call, m.name)}, true
}

func (c *classifier) lifecycle(m candidate) (*Member, bool) {
	return &Member{}, c.rules.IsLifecycle(m.name)
}

// watches collects every @Watch registration whose path is a string.
func (c *classifier) watches(decs []*tsast.Node) []WatchTarget {
	var out []WatchTarget

	for _, d := range decs {
		call := c.decoratorCall(d, c.rules.Decorators.Watch)
		if call == nil {
			continue
		}

		args := callArgs(call)
		if len(args) == 0 {
			continue
		}

		path, ok := stringLiteral(args[0])
		if !ok {
			continue
		}

		w := WatchTarget{Path: path}
		if len(args) > 1 {
			w.Options = args[1]
		}

		out = append(out, w)
	}

	return out
}

// resolveWatchTargets fixes the watched expression of every watcher once
// all props are known.
func (c *classifier) resolveWatchTargets() {
	ids := c.rules.Identifiers

	for _, w := range c.info.Watchers {
		for i := range w.Watches {
			head, rest, dotted := strings.Cut(w.Watches[i].Path, ".")
			member := c.info.Lookup(head)

			var base string

			switch {
			case c.rules.IsContextProperty(head):
				base = ids.Context + "." + head
			case member != nil && member.Role == RoleProp:
				base = ids.Props + "." + head
			case dotted && member != nil && (member.Role == RoleState || member.Role == RoleComputed):
				base = head + "." + ids.Value
			default:
				base = head
			}

			if dotted {
				w.Watches[i].Expr = "() => " + base + "." + rest
			} else {
				w.Watches[i].Expr = base
			}
		}
	}
}

func (c *classifier) eventName(call *tsast.Node, name string) string {
	if args := callArgs(call); len(args) > 0 {
		if _, ok := stringLiteral(args[0]); ok {
			return args[0].Text()
		}
	}

	return quoteString(name, c.quote)
}

func provideKey(call *tsast.Node, name string) string {
	args := callArgs(call)
	if len(args) == 0 {
		return name
	}

	if v, ok := stringLiteral(args[0]); ok {
		if identifierRe.MatchString(v) {
			return v
		}

		return args[0].Text()
	}

	return "[" + args[0].Text() + "]"
}

func (c *classifier) injectKey(call *tsast.Node, name string) string {
	args := callArgs(call)
	if len(args) == 0 {
		return quoteString(name, c.quote)
	}

	arg := args[0]
	if !arg.Is("object") {
		return arg.Text()
	}

	from := quoteString(name, c.quote)
	def := ""

	for _, pair := range arg.ChildrenOfType("pair") {
		key, _ := propertyName(pair.ChildByField("key"))

		switch key {
		case "from":
			from = pair.ChildByField("value").Text()
		case "default":
			def = pair.ChildByField("value").Text()
		}
	}

	if def != "" {
		return from + ", " + def
	}

	return from
}

// callArgs returns the argument expressions of a call.
func callArgs(call *tsast.Node) []*tsast.Node {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil
	}

	var out []*tsast.Node

	for _, a := range args.NamedChildren() {
		if a.Type != "comment" {
			out = append(out, a)
		}
	}

	return out
}

// stringLiteral returns the value of a string or substitution-free template.
func stringLiteral(n *tsast.Node) (string, bool) {
	if v, ok := n.StringValue(); ok {
		return v, true
	}

	if n.Is("template_string") && n.FirstChildOfType("template_substitution") == nil {
		text := n.Text()

		return text[1 : len(text)-1], true
	}

	return "", false
}

func propertyName(k *tsast.Node) (string, bool) {
	if k == nil {
		return "", false
	}

	if v, ok := k.StringValue(); ok {
		return v, true
	}

	if k.Is("property_identifier") {
		return k.Text(), true
	}

	return "", false
}

func quoteString(s string, quote byte) string {
	q := string(quote)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, q, `\`+q)

	return q + s + q
}
