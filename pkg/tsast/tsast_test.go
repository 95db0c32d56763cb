package tsast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

func parse(t *testing.T, name, src string) *tsast.File {
	t.Helper()

	f, err := tsast.Parse(context.Background(), name, []byte(src))
	require.NoError(t, err)

	return f
}

func TestParse_FieldsAndParents(t *testing.T) {
	t.Parallel()

	f := parse(t, "a.ts", "const answer = 42;\n")

	decl := f.Root.Find(func(n *tsast.Node) bool { return n.Type == "variable_declarator" })
	require.NotNil(t, decl)

	assert.Equal(t, "answer", decl.ChildByField("name").Text())
	assert.Equal(t, "42", decl.ChildByField("value").Text())
	assert.Equal(t, "lexical_declaration", decl.Parent.Type)
	assert.Same(t, decl, decl.ChildByField("name").Parent)
	assert.Equal(t, "const answer = 42;", decl.Parent.Text())
}

func TestParse_ClassMembers(t *testing.T) {
	t.Parallel()

	f := parse(t, "c.tsx", "class A extends B {\n  x = 1\n  get y() { return 2 }\n}\n")

	class := f.Root.Find(func(n *tsast.Node) bool { return n.Type == "class_declaration" })
	require.NotNil(t, class)
	assert.Equal(t, "A", class.ChildByField("name").Text())

	body := class.ChildByField("body")
	require.NotNil(t, body)

	method := body.FirstChildOfType("method_definition")
	require.NotNil(t, method)
	assert.True(t, method.HasToken("get"))
	assert.Equal(t, "y", method.ChildByField("name").Text())
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := tsast.Parse(context.Background(), "broken.ts", []byte("class {{{ = ;\n"))
	require.Error(t, err)
	require.ErrorIs(t, err, tsast.ErrSyntax)

	var synErr *tsast.SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, "broken.ts", synErr.File)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	cases := map[string]tsast.Language{
		"":                 tsast.TSX,
		"comp.tsx":         tsast.TSX,
		"comp.ts":          tsast.TypeScript,
		"types.d.ts":       tsast.TypeScript,
		"dir/Widget.vue":   tsast.TSX,
		"module/index.mts": tsast.TypeScript,
	}

	for name, want := range cases {
		assert.Equal(t, want, tsast.DetectLanguage(name, nil), name)
	}
}

func TestIsCandidate(t *testing.T) {
	t.Parallel()

	assert.True(t, tsast.IsCandidate("src/components/Hello.tsx"))
	assert.True(t, tsast.IsCandidate("src/store.ts"))
	assert.False(t, tsast.IsCandidate("src/types.d.ts"))
	assert.False(t, tsast.IsCandidate("node_modules/vue/index.ts"))
	assert.False(t, tsast.IsCandidate("README.md"))
}

func TestStringValueAndPosition(t *testing.T) {
	t.Parallel()

	f := parse(t, "s.ts", "let a = 1;\nlet s = 'héllo';\n")

	str := f.Root.Find(func(n *tsast.Node) bool { return n.Type == "string" })
	require.NotNil(t, str)

	v, ok := str.StringValue()
	require.True(t, ok)
	assert.Equal(t, "héllo", v)

	pos := str.StartPosition()
	assert.Equal(t, 1, pos.Line)
	assert.Equal(t, 8, pos.Column)

	end := str.EndPosition()
	assert.Equal(t, 15, end.Column)
}

func TestUnparenAndAncestor(t *testing.T) {
	t.Parallel()

	f := parse(t, "p.ts", "function f() { const x = ((this)); }\n")

	this := f.Root.Find(func(n *tsast.Node) bool { return n.Type == "this" })
	require.NotNil(t, this)

	outer := this.Parent.Parent
	require.Equal(t, "parenthesized_expression", outer.Type)
	assert.Same(t, this, outer.Unparen())
	assert.Equal(t, "function_declaration", this.Ancestor("function_declaration").Type)
	assert.True(t, f.Root.Contains(this))
	assert.False(t, this.Contains(f.Root))
}
