// Package rules holds the data that drives component recognition and
// emission: which modules and decorators mark a class component, which
// instance properties belong to the setup context, which methods are
// lifecycle hooks, and the identifiers written into the output.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
)

// Modules lists the module specifiers recognized per import style.
type Modules struct {
	// DefaultBase modules provide the base class through a default import.
	DefaultBase []string `json:"default_base" yaml:"default_base"`
	// NamedBase modules provide the base class through a named import.
	NamedBase []string `json:"named_base" yaml:"named_base"`
	// DefaultComponent modules provide the component decorator as default export.
	DefaultComponent []string `json:"default_component" yaml:"default_component"`
	// NamedComponent modules provide the component decorator as a named export.
	NamedComponent []string `json:"named_component" yaml:"named_component"`
	// Decorators modules provide Prop, Watch, Emit, Provide and Inject.
	Decorators []string `json:"decorators" yaml:"decorators"`
}

// Decorators names the member decorators as they are written at use sites.
type Decorators struct {
	Component string `json:"component" yaml:"component"`
	Prop      string `json:"prop"      yaml:"prop"`
	Watch     string `json:"watch"     yaml:"watch"`
	Emit      string `json:"emit"      yaml:"emit"`
	Provide   string `json:"provide"   yaml:"provide"`
	Inject    string `json:"inject"    yaml:"inject"`
}

// Identifiers are the names written into generated code.
type Identifiers struct {
	Setup    string `json:"setup"    yaml:"setup"`
	Props    string `json:"props"    yaml:"props"`
	Context  string `json:"context"  yaml:"context"`
	Value    string `json:"value"    yaml:"value"`
	Ref      string `json:"ref"      yaml:"ref"`
	Computed string `json:"computed" yaml:"computed"`
	Watch    string `json:"watch"    yaml:"watch"`
	Provide  string `json:"provide"  yaml:"provide"`
	Inject   string `json:"inject"   yaml:"inject"`
	Emit     string `json:"emit"     yaml:"emit"`
	Render   string `json:"render"   yaml:"render"`
}

// Rules is the complete rule set for one conversion.
type Rules struct {
	LifecycleRenames  map[string]string `json:"lifecycle_renames,omitempty" yaml:"lifecycle_renames,omitempty"`
	Identifiers       Identifiers       `json:"identifiers"                 yaml:"identifiers"`
	Decorators        Decorators        `json:"decorators"                  yaml:"decorators"`
	Modules           Modules           `json:"modules"                     yaml:"modules"`
	ContextProperties []string          `json:"context_properties"          yaml:"context_properties"`
	Lifecycles        []string          `json:"lifecycles"                  yaml:"lifecycles"`
}

// Default returns the rule set for vue-class-component and
// vue-property-decorator projects.
func Default() *Rules {
	return &Rules{
		ContextProperties: []string{"$slots", "$scopedSlots", "$refs", "$emit", "$route", "$router", "$store"},
		Modules: Modules{
			DefaultBase:      []string{"vue"},
			NamedBase:        []string{"vue-class-component", "vue-property-decorator", "vue-tsx-support"},
			DefaultComponent: []string{"vue-class-component"},
			NamedComponent:   []string{"vue-property-decorator"},
			Decorators:       []string{"vue-property-decorator"},
		},
		Decorators: Decorators{
			Component: "Component",
			Prop:      "Prop",
			Watch:     "Watch",
			Emit:      "Emit",
			Provide:   "Provide",
			Inject:    "Inject",
		},
		Lifecycles: []string{
			"beforeCreate", "created", "beforeMount", "mounted", "beforeUpdate", "updated",
			"activated", "deactivated", "beforeDestroy", "destroyed", "errorCaptured", "serverPrefetch",
		},
		Identifiers: Identifiers{
			Setup:    "setup",
			Props:    "props",
			Context:  "context",
			Value:    "value",
			Ref:      "ref",
			Computed: "computed",
			Watch:    "watch",
			Provide:  "provide",
			Inject:   "inject",
			Emit:     "emit",
			Render:   "render",
		},
	}
}

// IsContextProperty reports whether this.<name> belongs to the setup context.
func (r *Rules) IsContextProperty(name string) bool {
	return slices.Contains(r.ContextProperties, name)
}

// IsLifecycle reports whether a method name is a lifecycle hook.
func (r *Rules) IsLifecycle(name string) bool {
	return slices.Contains(r.Lifecycles, name)
}

// LifecycleHook returns the registration function for a lifecycle method:
// an explicit rename when configured, otherwise "on" plus the capitalized name.
func (r *Rules) LifecycleHook(name string) string {
	if hook, ok := r.LifecycleRenames[name]; ok && hook != "" {
		return hook
	}

	if name == "" {
		return "on"
	}

	return "on" + strings.ToUpper(name[:1]) + name[1:]
}

// BaseModules returns every module that may supply the base class.
func (r *Rules) BaseModules() []string {
	out := slices.Concat(r.Modules.DefaultBase, r.Modules.NamedBase)
	slices.Sort(out)

	return slices.Compact(out)
}

// Fingerprint identifies the rule set for caching.
func (r *Rules) Fingerprint() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
