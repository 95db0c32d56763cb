package convert_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/vuesetup/pkg/cache"
	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

const header = "import { Component, Emit, Inject, Prop, Provide, Vue, Watch } from 'vue-property-decorator';\n\n"

func run(t *testing.T, name, src string) *convert.Result {
	t.Helper()

	res, err := convert.Convert(context.Background(), name, []byte(src))
	require.NoError(t, err)

	return res
}

func TestConvert_PropsStateComputedMethod(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class Hello extends Vue {
  @Prop() a?: number;
  b = 1;
  get c() {
    return this.a + this.b;
  }
  d() {
    this.b++;
  }
}
`

	want := header + `const Hello = {
  setup(props: { a?: number }, context) {
    const b = ref(1);
    const d = () => {
      b.value++;
    };
    const c = computed(() => {
      return props.a + b.value;
    });
    return { b, d, c };
  }
};
export default Hello;
`

	res := run(t, "Hello.ts", src)

	assert.True(t, res.Changed)
	assert.Equal(t, want, res.Code)
	require.Len(t, res.Components, 1)

	rep := res.Components[0]
	assert.Equal(t, "Hello", rep.Name)
	assert.Equal(t, 1, rep.Roles[convert.RoleProp])
	assert.Equal(t, 1, rep.Roles[convert.RoleState])
	assert.Equal(t, 1, rep.Roles[convert.RoleComputed])
	assert.Equal(t, 1, rep.Roles[convert.RoleMethod])
	assert.Equal(t, 3, rep.Start.Line)
}

func TestConvert_Emitter(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class Counter extends Vue {
  x = 0;
  @Emit('changed')
  bump() {
    this.x++;
    return this.x;
  }
  @Emit()
  reset(n: number) {}
}
`

	res := run(t, "Counter.ts", src)

	assert.Contains(t, res.Code, "const bump = () => {\n      x.value++;\n      context.emit('changed', x.value);\n    };")
	assert.Contains(t, res.Code, "const reset = (n: number) => {\n      context.emit('reset', n);\n    };")
	assert.Contains(t, res.Code, "return { x };")
}

func TestConvert_ThisAlias(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  foo() {}
  bar() {
    const self = this;
    self.foo();
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "foo();")
	assert.NotContains(t, res.Code, "self")
	assert.NotContains(t, res.Code, "this")
}

func TestConvert_AliasChainAndMixedDeclaration(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  n = 1;
  bar() {
    const self = this, k = 2;
    let me = self;
    return me.n + k;
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "const k = 2;")
	assert.Contains(t, res.Code, "return n.value + k;")
	assert.NotContains(t, res.Code, "self")
	assert.NotContains(t, res.Code, "let me")
}

func TestConvert_Destructuring(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  @Prop() label!: string;
  count = 0;
  show() {
    const { label, count: c } = this;
    console.log({ label }, c);
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "console.log({ label: props.label }, count.value);")
	assert.NotContains(t, res.Code, "= this")
}

func TestConvert_LoopVariableShadowsDestructuredName(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  a = 1;
  list = [1];
  show() {
    const { a, list } = this;
    for (const a of list) { console.log(a); }
    for (const k in list) { console.log(k); }
    return a;
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "for (const a of list.value) { console.log(a); }")
	assert.Contains(t, res.Code, "for (const k in list.value) { console.log(k); }")
	assert.Contains(t, res.Code, "return a.value;")
	assert.NotContains(t, res.Code, "const a.value")
	assert.NotContains(t, res.Code, "console.log(a.value)")
}

func TestConvert_EscapingAliasIsKept(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  foo() {}
  bar() {
    const self = this;
    helper(self);
    self.foo();
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "const self = this;")
	assert.Contains(t, res.Code, "helper(self);")
	assert.NotContains(t, res.Code, "self.foo()")
}

func TestConvert_UnmappedDestructuringIsKept(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, member, body, decl, use string
	}{
		{
			name:   "nested pattern",
			member: "obj = { x: 1 };",
			body:   "const { obj: { x } } = this;\n    return x;",
			decl:   "const { obj: { x } } = this;",
			use:    "return x;",
		},
		{
			name:   "rest entry",
			member: "count = 0;",
			body:   "const { count, ...rest } = this;\n    return count + rest;",
			decl:   "const { count, ...rest } = this;",
			use:    "return count + rest;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := header + "@Component\nexport default class A extends Vue {\n  " + tt.member +
				"\n  show() {\n    " + tt.body + "\n  }\n}\n"

			res := run(t, "A.ts", src)

			assert.Contains(t, res.Code, tt.decl)
			assert.Contains(t, res.Code, tt.use)
			assert.NotContains(t, res.Code, "count.value + rest")
		})
	}
}

func TestConvert_ContextProperties(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  go() {
    this.$router.push('/');
    this.$emit('done');
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "context.$router.push('/');")
	assert.Contains(t, res.Code, "context.$emit('done');")
}

func TestConvert_NoComponentIsIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{name: "plain module", src: "export const a = 1;\n\nfunction f() { return this; }\n"},
		{name: "class without decorator", src: header + "export class A extends Vue {\n  x = 1;\n}\n"},
		{name: "class without base", src: header + "@Component\nexport class A {\n  x = 1;\n}\n"},
		{name: "foreign base", src: "import { Component } from 'vue-property-decorator';\nimport Base from './base';\n\n@Component\nclass A extends Base {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := run(t, "a.ts", tt.src)

			assert.False(t, res.Changed)
			assert.Equal(t, tt.src, res.Code)
			assert.Empty(t, res.Components)
		})
	}
}

func TestConvert_ComputedAccessors(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  n = 1;
  set double(v: number) {
    this.n = v / 2;
  }
  get double(): number {
    return this.n * 2;
  }
  set only(v: number) {
    this.n = v;
  }
  touch() {
    this.double = 4;
    this.only = 1;
  }
}
`

	res := run(t, "A.ts", src)

	assert.Contains(t, res.Code, "const double = computed<number>(() => {\n      return n.value * 2;\n    }, (v: number) => {\n      n.value = v / 2;\n    });")
	assert.Contains(t, res.Code, "double.value = 4;")
	assert.Contains(t, res.Code, "this.only = 1;")
	assert.NotContains(t, res.Code, "const only")
	assert.Contains(t, res.Code, "return { n, touch, double };")
}

func TestConvert_WatchLifecycleProvideInject(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  @Prop({ type: String, required: true }) a!: string;
  @Inject('api') api!: Api;
  @Provide() theme = 'dark';
  @Provide('color-key') color = 'red';
  state = { deep: 1 };
  @Watch('a', { immediate: true })
  @Watch('state.deep')
  onChange(v: string) {
    this.api.log(v);
  }
  async mounted() {
    await this.api.ready();
  }
}
`

	res := run(t, "A.ts", src)

	code := res.Code
	assert.Contains(t, code, "setup(props: { a: string }, context) {")
	assert.Contains(t, code, "const api = inject<Api>('api');")
	assert.Contains(t, code, "watch(props.a, (v: string) => {\n      api.log(v);\n    }, { immediate: true });")
	assert.Contains(t, code, "watch(() => state.value.deep, (v: string) => {")
	assert.Contains(t, code, "onMounted(async () => {\n      await api.ready();\n    });")
	assert.Contains(t, code, "provide({\n      theme: 'dark',\n      'color-key': 'red'\n    });")
	assert.Contains(t, code, "return { api, state };")

	// Injectors come first, providers last.
	assert.Less(t, strings.Index(code, "inject<Api>"), strings.Index(code, "const state"))
	assert.Less(t, strings.Index(code, "onMounted"), strings.Index(code, "provide({"))
}

func TestConvert_ExportForms(t *testing.T) {
	t.Parallel()

	t.Run("named export", func(t *testing.T) {
		t.Parallel()

		res := run(t, "a.ts", header+"@Component\nexport class Foo extends Vue {}\n")

		assert.Equal(t, header+`export const Foo = {
  setup(props: {}, context) {
    return {};
  }
};
`, res.Code)
	})

	t.Run("plain declaration", func(t *testing.T) {
		t.Parallel()

		res := run(t, "a.ts", header+"@Component\nclass Foo extends Vue {}\n")

		assert.Contains(t, res.Code, "const Foo = {\n")
		assert.NotContains(t, res.Code, "export")
	})

	t.Run("anonymous default", func(t *testing.T) {
		t.Parallel()

		res := run(t, "a.ts", header+"@Component\nexport default class extends Vue {}\n")

		assert.Contains(t, res.Code, "export default {\n")
		assert.NotContains(t, res.Code, "class")
	})
}

func TestConvert_RenderKeptVerbatim(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  n = 1;
  public render() {
    return <div>{this.n}</div>;
  }
}
`

	res := run(t, "A.tsx", src)

	assert.Contains(t, res.Code, "  },\n  render() {\n    return <div>{this.n}</div>;\n  }\n};")
	assert.Contains(t, res.Code, "return { n };")
}

func TestConvert_GenericMethodInTSX(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  pick<T>(xs: T[]): T {
    return xs[0];
  }
  *ids() {
    yield 1;
  }
}
`

	res := run(t, "A.tsx", src)

	assert.Contains(t, res.Code, "const pick = <T,>(xs: T[]): T => {")
	assert.Contains(t, res.Code, "const ids = function* () {")
}

func TestConvert_NamespaceImport(t *testing.T) {
	t.Parallel()

	src := `import Component from 'vue-class-component';
import * as V from 'vue-property-decorator';

@Component
export default class A extends V.Vue {
  x = 'a';
}
`

	res := run(t, "A.ts", src)

	assert.True(t, res.Changed)
	assert.Contains(t, res.Code, "const x = ref('a');")
}

func TestConvert_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := convert.Convert(context.Background(), "bad.ts", []byte("class {"))
	require.ErrorIs(t, err, tsast.ErrSyntax)
}

func TestConverter_Options(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  @Prop({ type: Number, default: 0 }) size!: number;
  n = 1;
  get twice() {
    return this.n * 2;
  }
  created() {}
}
`

	c := convert.New(nil)
	c.Options = convert.Options{ImportSource: "@vue/composition-api", RuntimeProps: true, Indent: "    "}

	res, err := c.Convert(context.Background(), "A.ts", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, res.Code, "from 'vue-property-decorator';\nimport { computed, onCreated, ref } from '@vue/composition-api';\n")
	assert.Contains(t, res.Code, "    props: { size: { type: Number, default: 0 } },\n")
	assert.Contains(t, res.Code, "\n        const n = ref(1);\n")
}

func TestConverter_ImportPlacement(t *testing.T) {
	t.Parallel()

	prefix := header + "import Chart from './chart';\n"
	src := prefix + `
function helper(this: any) {
  return this.n;
}

@Component
export default class A extends Vue {
  n = 1;
}

import late from './late';
`

	c := convert.New(nil)
	c.Options = convert.Options{ImportSource: "@vue/composition-api"}

	res, err := c.Convert(context.Background(), "A.ts", []byte(src))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Code, prefix+"import { ref } from '@vue/composition-api';\n\nfunction helper"), res.Code)
	assert.Contains(t, res.Code, "  return this.n;\n")
	assert.Contains(t, res.Code, "import late from './late';\n")
}

func TestConverter_CustomRules(t *testing.T) {
	t.Parallel()

	r := rules.Default()
	r.LifecycleRenames = map[string]string{"beforeDestroy": "onBeforeUnmount"}
	r.Identifiers.Context = "ctx"

	src := header + `@Component
export default class A extends Vue {
  beforeDestroy() {
    this.$refs.x;
  }
}
`

	res, err := convert.New(r).Convert(context.Background(), "A.ts", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, res.Code, "setup(props: {}, ctx) {")
	assert.Contains(t, res.Code, "onBeforeUnmount(() => {\n      ctx.$refs.x;\n    });")
}

func TestConvert_IgnoredMembers(t *testing.T) {
	t.Parallel()

	src := header + `@Component
export default class A extends Vue {
  static version = 1;
  constructor() {
    super();
  }
  x = 1;
}
`

	res := run(t, "A.ts", src)

	require.Len(t, res.Components, 1)
	assert.Len(t, res.Components[0].Ignored, 2)
	assert.NotContains(t, res.Code, "version")
}

func TestConverter_Cache(t *testing.T) {
	t.Parallel()

	src := []byte(header + "@Component\nexport default class A extends Vue {\n  x = 1;\n}\n")

	c := convert.New(nil)
	c.Cache = cache.New(0)

	first, err := c.Convert(context.Background(), "A.ts", src)
	require.NoError(t, err)

	second, err := c.Convert(context.Background(), "A.ts", src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, second.Components[0].Roles[convert.RoleState])

	stats := c.Cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestConverter_Inspect(t *testing.T) {
	t.Parallel()

	src := []byte(header + `@Component
export default class A extends Vue {
  @Prop() p!: string;
  static s = 1;
  go() {}
}
`)

	reps, err := convert.New(nil).Inspect(context.Background(), "A.ts", src)
	require.NoError(t, err)
	require.Len(t, reps, 1)

	byName := make(map[string]convert.MemberReport)
	for _, m := range reps[0].Members {
		byName[m.Name] = m
	}

	assert.Equal(t, convert.RoleProp, byName["p"].Role)
	assert.Equal(t, convert.RoleMethod, byName["go"].Role)
	assert.Equal(t, convert.RoleIgnored, byName["s"].Role)
	assert.Equal(t, "static member", byName["s"].Reason)
	assert.Equal(t, 5, byName["s"].Start.Line)
}

func TestConverter_InspectLifecycleHint(t *testing.T) {
	t.Parallel()

	src := []byte(header + `@Component
export default class A extends Vue {
  mouted() {}
  mounted() {}
  save() {}
}
`)

	reps, err := convert.New(nil).Inspect(context.Background(), "A.ts", src)
	require.NoError(t, err)
	require.Len(t, reps, 1)

	hints := make(map[string]string)
	for _, m := range reps[0].Members {
		hints[m.Name] = m.Hint
	}

	assert.Equal(t, "did you mean lifecycle hook mounted?", hints["mouted"])
	assert.Empty(t, hints["mounted"])
	assert.Empty(t, hints["save"])
}
