package convert

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// Sentinel errors for conversion.
var (
	// ErrInvalidCast reports a node that does not have the shape its
	// classification promised.
	ErrInvalidCast = errors.New("invalid node cast")
	// ErrRequiredValue reports a value that must exist at emission time.
	ErrRequiredValue = errors.New("required value missing")
)

// Role is the part a class member plays in a component.
type Role uint8

// Member roles.
const (
	RoleIgnored Role = iota
	RoleState
	RoleProp
	RoleComputed
	RoleMethod
	RoleLifecycle
	RoleEmitter
	RoleWatcher
	RoleProvider
	RoleInjector
	RoleRender
)

var roleNames = [...]string{
	RoleIgnored:   "ignored",
	RoleState:     "state",
	RoleProp:      "prop",
	RoleComputed:  "computed",
	RoleMethod:    "method",
	RoleLifecycle: "lifecycle",
	RoleEmitter:   "emitter",
	RoleWatcher:   "watcher",
	RoleProvider:  "provider",
	RoleInjector:  "injector",
	RoleRender:    "render",
}

// Roles lists every role in report order.
var Roles = []Role{
	RoleState, RoleProp, RoleComputed, RoleMethod, RoleLifecycle, RoleEmitter,
	RoleWatcher, RoleProvider, RoleInjector, RoleRender, RoleIgnored,
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}

	return fmt.Sprintf("role(%d)", r)
}

// MarshalText renders the role name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a role name.
func (r *Role) UnmarshalText(text []byte) error {
	idx := slices.Index(roleNames[:], string(text))
	if idx < 0 {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidCast, text)
	}

	*r = Role(idx)

	return nil
}

// WatchTarget is one @Watch registration of a watcher method.
type WatchTarget struct {
	// Options is the optional second decorator argument.
	Options *tsast.Node
	// Path is the watched expression as written in the decorator.
	Path string
	// Expr is the resolved first argument of the emitted watch call.
	Expr string
}

// Member is one classified class member.
type Member struct {
	// Node is the declaring field or method. For computed members it is
	// the first accessor seen.
	Node   *tsast.Node
	Getter *tsast.Node
	Setter *tsast.Node
	// Decorator is the call expression of the role-defining decorator.
	Decorator *tsast.Node
	Name      string
	// Event is the emitted event name of an emitter.
	Event string
	// Key is the rendered provide/inject key.
	Key string
	// Reason explains why an ignored member was skipped.
	Reason  string
	Watches []WatchTarget
	Role    Role
}

// ComponentInfo buckets the members of one component class by role.
// Declaration order is kept within each bucket.
type ComponentInfo struct {
	Class  *tsast.Node
	Render *Member
	byName map[string]*Member
	Name   string

	States     []*Member
	Props      []*Member
	Computed   []*Member
	Methods    []*Member
	Lifecycles []*Member
	Emitters   []*Member
	Watchers   []*Member
	Providers  []*Member
	Injectors  []*Member
	Ignored    []*Member
}

// Lookup returns the member bound to name. Ignored members and members
// without an outward binding are still returned so that callers can
// decide per role.
func (ci *ComponentInfo) Lookup(name string) *Member {
	return ci.byName[name]
}

// Members returns the bucket of the given role in declaration order.
func (ci *ComponentInfo) Members(r Role) []*Member {
	switch r {
	case RoleState:
		return ci.States
	case RoleProp:
		return ci.Props
	case RoleComputed:
		return ci.Computed
	case RoleMethod:
		return ci.Methods
	case RoleLifecycle:
		return ci.Lifecycles
	case RoleEmitter:
		return ci.Emitters
	case RoleWatcher:
		return ci.Watchers
	case RoleProvider:
		return ci.Providers
	case RoleInjector:
		return ci.Injectors
	case RoleRender:
		if ci.Render != nil {
			return []*Member{ci.Render}
		}

		return nil
	default:
		return ci.Ignored
	}
}

// Count returns how many members landed in the given role.
func (ci *ComponentInfo) Count(r Role) int {
	return len(ci.Members(r))
}

// MemberReport locates one classified member.
type MemberReport struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
	// Hint flags a likely mistake, such as a misspelled lifecycle hook.
	Hint  string         `json:"hint,omitempty"`
	Start tsast.Position `json:"start"`
	End   tsast.Position `json:"end"`
	Role  Role           `json:"role"`
}

// ComponentReport summarizes one converted component.
type ComponentReport struct {
	Roles   map[Role]int   `json:"roles"`
	Name    string         `json:"name"`
	Ignored []string       `json:"ignored,omitempty"`
	Members []MemberReport `json:"members,omitempty"`
	Start   tsast.Position `json:"start"`
	End     tsast.Position `json:"end"`
}

// Result is the outcome of one conversion call.
type Result struct {
	Name       string            `json:"name"`
	Code       string            `json:"code"`
	Components []ComponentReport `json:"components"`
	Changed    bool              `json:"changed"`
}
