// Package convert lowers Vue class components into composition-style
// component objects with a setup function.
//
// A conversion parses one TypeScript or TSX unit, finds the classes that
// are components, classifies their members by role and replaces each class
// with an object literal. References to this inside those classes are
// rewritten in the same pass. Text outside the replaced regions is kept
// byte for byte.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/vuesetup/pkg/cache"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
	"github.com/Sumatoshi-tech/vuesetup/pkg/scope"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

const tracerName = "vuesetup/convert"

// Options tune the emitted text.
type Options struct {
	// Indent is the indentation unit for generated lines. Empty means
	// detect it from the class body.
	Indent string
	// ImportSource, when set, adds an import of the composition helpers
	// the output uses from that module.
	ImportSource string
	// Language forces a grammar instead of detecting it from the name.
	Language tsast.Language
	// RuntimeProps emits a props option built from the @Prop arguments.
	RuntimeProps bool
}

// Converter converts units with one rule set. It is safe for concurrent use
// once configured.
type Converter struct {
	Rules   *rules.Rules
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.ConversionMetrics
	// Cache, when set, memoizes results per rules, options, name and source.
	Cache   *cache.LRU
	Options Options
}

// New returns a converter using r, or the default rules when r is nil.
func New(r *rules.Rules) *Converter {
	if r == nil {
		r = rules.Default()
	}

	return &Converter{Rules: r, Logger: slog.Default()}
}

// Convert converts src with the default rules.
func Convert(ctx context.Context, name string, src []byte) (*Result, error) {
	return New(nil).Convert(ctx, name, src)
}

func (c *Converter) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}

	return otel.Tracer(tracerName)
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// Convert converts every component class of one unit. Units without
// components come back unchanged with Changed false.
func (c *Converter) Convert(ctx context.Context, name string, src []byte) (*Result, error) {
	ctx = observability.WithFile(ctx, name)

	ctx, span := c.tracer().Start(ctx, "vuesetup.convert",
		trace.WithAttributes(attribute.String("vuesetup.file", name), attribute.Int("vuesetup.bytes", len(src))))
	defer span.End()

	start := time.Now()

	var key cache.Key

	if c.Cache != nil {
		key = c.cacheKey(name, src)

		if res, ok := c.cached(key); ok {
			c.Metrics.RecordCache(ctx, true)
			span.SetAttributes(attribute.Bool("vuesetup.cache_hit", true))

			return res, nil
		}

		c.Metrics.RecordCache(ctx, false)
	}

	res, err := c.convert(ctx, name, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conversion failed")
		c.logger().WarnContext(ctx, "conversion failed", "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("vuesetup.components", len(res.Components)),
		attribute.Bool("vuesetup.changed", res.Changed),
	)

	stats := observability.ConversionStats{
		Members:    make(map[string]int),
		Duration:   time.Since(start),
		Components: len(res.Components),
		Changed:    res.Changed,
	}

	for _, comp := range res.Components {
		for role, n := range comp.Roles {
			stats.Members[role.String()] += n
		}

		for _, ign := range comp.Ignored {
			c.logger().DebugContext(ctx, "member ignored", "component", comp.Name, "member", ign)
		}
	}

	c.Metrics.RecordConversion(ctx, stats)

	if c.Cache != nil {
		if data, merr := json.Marshal(res); merr == nil {
			c.Cache.Put(key, data)
		}
	}
	c.logger().DebugContext(ctx, "converted", "components", len(res.Components), "changed", res.Changed, "duration", stats.Duration)

	return res, nil
}

func (c *Converter) cacheKey(name string, src []byte) cache.Key {
	o := c.Options
	opts := fmt.Sprintf("%q|%q|%s|%t", o.Indent, o.ImportSource, o.Language, o.RuntimeProps)

	return cache.NewKey([]byte(c.Rules.Fingerprint()), []byte(opts), []byte(name), src)
}

func (c *Converter) cached(key cache.Key) (*Result, bool) {
	data, ok := c.Cache.Get(key)
	if !ok {
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}

	return &res, true
}

// unit is one parsed file with its component classes classified.
type unit struct {
	file    *tsast.File
	preds   *predicates
	classes []*tsast.Node
	infos   map[*tsast.Node]*ComponentInfo
	quote   byte
}

func (u *unit) reports() []ComponentReport {
	out := make([]ComponentReport, 0, len(u.classes))
	for _, class := range u.classes {
		out = append(out, report(u.infos[class], u.preds.rules))
	}

	return out
}

func (c *Converter) analyze(ctx context.Context, name string, src []byte) (*unit, error) {
	file, err := c.parse(ctx, name, src)
	if err != nil {
		return nil, err
	}

	_, span := c.tracer().Start(ctx, "vuesetup.resolve")
	defer span.End()

	u := &unit{
		file:  file,
		preds: newPredicates(scope.New(file), c.Rules),
		quote: detectQuote(file),
	}

	file.Root.Walk(func(n *tsast.Node) bool {
		if n.Is(classTypes...) && u.preds.isComponentClass(n) {
			u.classes = append(u.classes, n)
		}

		return true
	})

	u.infos = make(map[*tsast.Node]*ComponentInfo, len(u.classes))
	for _, class := range u.classes {
		info, cerr := u.preds.classify(class, u.quote)
		if cerr != nil {
			return nil, cerr
		}

		u.infos[class] = info
	}

	span.SetAttributes(attribute.Int("vuesetup.components", len(u.classes)))

	return u, nil
}

// Inspect classifies the component classes of a unit without rewriting it.
func (c *Converter) Inspect(ctx context.Context, name string, src []byte) ([]ComponentReport, error) {
	ctx = observability.WithFile(ctx, name)

	ctx, span := c.tracer().Start(ctx, "vuesetup.inspect")
	defer span.End()

	u, err := c.analyze(ctx, name, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inspection failed")

		return nil, err
	}

	return u.reports(), nil
}

func (c *Converter) convert(ctx context.Context, name string, src []byte) (*Result, error) {
	u, err := c.analyze(ctx, name, src)
	if err != nil {
		return nil, err
	}

	out := &Result{Name: name, Code: string(src), Components: []ComponentReport{}}
	if len(u.classes) == 0 {
		return out, nil
	}

	_, span := c.tracer().Start(ctx, "vuesetup.lower")
	defer span.End()

	w := &writer{
		predicates: u.preds,
		file:       u.file,
		infos:      u.infos,
		used:       make(map[string]bool),
		opts:       c.Options,
		quote:      u.quote,
	}

	root := u.file.Root

	body := w.render(root)
	if w.err != nil {
		return nil, w.err
	}

	code := string(src[:root.Start]) + body + string(src[root.End:])

	out.Code = w.addImport(code, u.classes[0])
	out.Components = u.reports()
	out.Changed = out.Code != string(src)

	return out, nil
}

func (c *Converter) parse(ctx context.Context, name string, src []byte) (*tsast.File, error) {
	ctx, span := c.tracer().Start(ctx, "vuesetup.parse")
	defer span.End()

	lang := c.Options.Language
	if lang == "" {
		lang = tsast.DetectLanguage(name, src)
	}

	file, err := tsast.ParseLanguage(ctx, name, lang, src)
	if err != nil {
		span.RecordError(err)

		if errors.Is(err, tsast.ErrSyntax) {
			return nil, err
		}

		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return file, nil
}

// addImport prepends the composition helper import after the last
// top-level import. Helpers already bound at module level are skipped.
func (w *writer) addImport(code string, first *tsast.Node) string {
	if w.opts.ImportSource == "" || len(w.used) == 0 {
		return code
	}

	names := slices.Sorted(maps.Keys(w.used))
	names = slices.DeleteFunc(names, func(n string) bool {
		return w.res.Lookup(w.file.Root, n) != nil
	})

	if len(names) == 0 {
		return code
	}

	stmt := "import { " + strings.Join(names, ", ") + " } from " + quoteString(w.opts.ImportSource, w.quote) + ";"

	var last *tsast.Node

	for _, n := range w.file.Root.Children {
		if n.Type == "import_statement" && n.End <= first.Start {
			last = n
		}
	}

	// Offsets past the source only line up while the prefix is unchanged.
	if last == nil || last.End > len(code) || code[:last.End] != string(w.file.Src[:last.End]) {
		return stmt + "\n" + code
	}

	return code[:last.End] + "\n" + stmt + code[last.End:]
}

// detectQuote returns the quote character most string literals use.
func detectQuote(f *tsast.File) byte {
	single, double := 0, 0

	f.Root.Walk(func(n *tsast.Node) bool {
		if n.Type != "string" {
			return true
		}

		switch f.Src[n.Start] {
		case '\'':
			single++
		case '"':
			double++
		}

		return false
	})

	if double > single {
		return '"'
	}

	return '\''
}
