package mcp_test

import (
	"context"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/vuesetup/pkg/mcp"
)

const component = `import { Component, Vue } from 'vue-property-decorator';

@Component
export default class A extends Vue {
  n = 1;
}
`

func connect(t *testing.T) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerDeps{})

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func textOf(result *mcpsdk.CallToolResult) string {
	var b strings.Builder

	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}

	return b.String()
}

func TestServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{mcp.ToolNameConvert, mcp.ToolNameInspect}, srv.ListToolNames())
}

func TestServer_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"vuesetup_convert", "vuesetup_inspect"}, names)
}

func TestServer_CallConvert(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameConvert,
		Arguments: map[string]any{"code": component, "filename": "A.ts", "import_source": "vue"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(result))

	text := textOf(result)
	assert.Contains(t, text, "const n = ref(1);")
	assert.Contains(t, text, "import { ref } from 'vue';")
}

func TestServer_CallConvertDiff(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameConvert,
		Arguments: map[string]any{"code": component, "filename": "A.ts", "diff": true},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(result))

	text := textOf(result)
	assert.Contains(t, text, `"diff": "--- a/A.ts\n+++ b/A.ts\n`)
	assert.Contains(t, text, `-export default class A extends Vue {`)
}

func TestServer_CallInspect(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameInspect,
		Arguments: map[string]any{"code": component, "language": "ts"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(result))

	assert.Contains(t, textOf(result), `"role": "state"`)
}

func TestServer_CallConvert_Errors(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t)

	tests := []struct {
		args map[string]any
		name string
		want string
	}{
		{name: "empty", args: map[string]any{"code": ""}, want: "required"},
		{name: "language", args: map[string]any{"code": "x", "language": "go"}, want: "ts or tsx"},
		{name: "syntax", args: map[string]any{"code": "class {"}, want: "syntax"},
	}

	for _, tt := range tests {
		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: mcp.ToolNameConvert, Arguments: tt.args})
		require.NoError(t, err, tt.name)
		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, textOf(result), tt.want, tt.name)
	}
}
