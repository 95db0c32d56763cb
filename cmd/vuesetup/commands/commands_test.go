package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
)

const component = `import { Component, Prop, Vue } from 'vue-property-decorator';

@Component
export default class Hello extends Vue {
  @Prop() msg!: string;
  count = 0;
  static version = 1;
  inc() { this.count++; }
}
`

// testConfig writes a config file so runs ignore the developer's own.
func testConfig(t *testing.T, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vuesetup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"+extra), 0o600))

	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "vuesetup "), out)
}

func TestConvertCommand_File(t *testing.T) {
	t.Parallel()

	src := writeSource(t, "Hello.ts", component)

	out, stderr, err := execute(t, "", "--config", testConfig(t, ""), "convert", src)
	require.NoError(t, err)

	assert.Contains(t, out, "const Hello = {")
	assert.Contains(t, out, "const count = ref(0);")
	assert.Contains(t, out, "export default Hello;")
	assert.Contains(t, stderr, "converted Hello (state 1, prop 1, method 1)")
	assert.Contains(t, stderr, "ignored version (static member)")
}

func TestConvertCommand_StdinWithOptions(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, component, "--config", testConfig(t, ""), "-q",
		"convert", "--language", "ts", "--import-source", "vue", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "import { ref } from 'vue';")
}

func TestConvertCommand_Output(t *testing.T) {
	t.Parallel()

	src := writeSource(t, "Hello.ts", component)

	out, _, err := execute(t, "", "--config", testConfig(t, ""), "-q", "convert", "-o", src, src)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "extends Vue")
}

func TestConvertCommand_Diff(t *testing.T) {
	t.Parallel()

	src := writeSource(t, "Hello.ts", component)

	out, _, err := execute(t, "", "--config", testConfig(t, ""), "-q", "convert", "--diff", src)
	require.NoError(t, err)

	assert.Contains(t, out, "+++ b/"+src)
	assert.Contains(t, out, "-export default class Hello extends Vue {")
	assert.Contains(t, out, "+const Hello = {")
}

func TestConvertCommand_Check(t *testing.T) {
	t.Parallel()

	src := writeSource(t, "Hello.ts", component)

	_, stderr, err := execute(t, "", "--config", testConfig(t, ""), "-q", "convert", "--check", src)
	require.ErrorIs(t, err, ErrCheckFailed)
	assert.Contains(t, stderr, "would be converted")

	plain := writeSource(t, "plain.ts", "export const x = 1;\n")

	_, _, err = execute(t, "", "--config", testConfig(t, ""), "-q", "convert", "--check", plain)
	require.NoError(t, err)
}

func TestConvertCommand_Errors(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "")

	_, _, err := execute(t, "", "--config", cfg, "convert", "--language", "js", "-")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, _, err = execute(t, "", "--config", cfg, "convert", t.TempDir())
	require.ErrorIs(t, err, ErrDirectoryPath)

	_, _, err = execute(t, "class {{{ = ;\n", "--config", cfg, "convert", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestConvertCommand_ConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "output:\n  indent: \"    \"\n  runtime_props: true\n")

	out, _, err := execute(t, component, "--config", cfg, "-q", "convert", "--filename", "Hello.ts", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "\n    props: {")
	assert.Contains(t, out, "\n    setup(props")
}

func TestBatchCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "A.ts")
	require.NoError(t, os.WriteFile(a, []byte(component), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.ts"), []byte("export const x = 1;\n"), 0o600))

	cfg := testConfig(t, "")

	_, stderr, err := execute(t, "", "--config", cfg, "batch", "--check", dir)
	require.ErrorIs(t, err, ErrCheckFailed)
	assert.Contains(t, stderr, "1 files would be converted")

	out, _, err := execute(t, "", "--config", cfg, "batch", "--write", "-j", "2", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "A.ts")

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "extends Vue")

	_, _, err = execute(t, "", "--config", cfg, "batch", "--check", dir)
	require.NoError(t, err)
}

func TestRulesCommands(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "", "rules", "dump", "--defaults")
	require.NoError(t, err)

	_, err = rules.Parse([]byte(out))
	require.NoError(t, err)
	assert.Contains(t, out, "lifecycles:")

	out, _, err = execute(t, "", "rules", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	good := writeSource(t, "rules.yaml", "lifecycles: [mounted]\n")
	out, _, err = execute(t, "", "rules", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "rules are valid")

	bad := writeSource(t, "rules.yaml", "unknown_key: 1\n")
	out, _, err = execute(t, "", "rules", "validate", bad)
	require.ErrorIs(t, err, rules.ErrInvalidRules)
	assert.Contains(t, out, "rules validation failed")
}

func TestRulesDump_UsesConfiguredRules(t *testing.T) {
	t.Parallel()

	rulesFile := writeSource(t, "rules.yaml", "lifecycle_renames:\n  beforeDestroy: onBeforeUnmount\n")
	cfg := testConfig(t, "rules: "+rulesFile+"\n")

	out, _, err := execute(t, "", "--config", cfg, "rules", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "onBeforeUnmount")
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	flags := &globalFlags{config: testConfig(t, "server:\n  max_body_size: 2KB\n")}

	rt, err := flags.setup(io.Discard, observability.ModeServe, nil)
	require.NoError(t, err)
	t.Cleanup(rt.close)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})

	srv := httptest.NewServer(newServerMux(rt, metrics))
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data)) //nolint:noctx // Test request.
	require.NoError(t, err)

	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp, out
}

func TestServer_Convert(t *testing.T) {
	t.Parallel()

	srv := testServer(t)

	resp, out := post(t, srv.URL+"/api/convert", ConvertRequest{Code: component, Filename: "Hello.ts", Diff: true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["changed"])
	assert.Contains(t, out["code"], "const Hello = {")
	assert.Contains(t, out["diff"], "+++ b/Hello.ts")
}

func TestServer_Inspect(t *testing.T) {
	t.Parallel()

	srv := testServer(t)

	resp, out := post(t, srv.URL+"/api/inspect", ConvertRequest{Code: component, Filename: "Hello.ts"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	comps, ok := out["components"].([]any)
	require.True(t, ok)
	require.Len(t, comps, 1)
}

func TestServer_Errors(t *testing.T) {
	t.Parallel()

	srv := testServer(t)

	tests := []struct {
		body   any
		name   string
		status int
	}{
		{name: "empty code", body: ConvertRequest{}, status: http.StatusBadRequest},
		{name: "bad language", body: ConvertRequest{Code: "x", Language: "js"}, status: http.StatusBadRequest},
		{name: "syntax", body: ConvertRequest{Code: "class {{{ = ;"}, status: http.StatusUnprocessableEntity},
		{name: "too large", body: ConvertRequest{Code: strings.Repeat("x", 4096)}, status: http.StatusRequestEntityTooLarge},
		{name: "not an object", body: []int{1}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, out := post(t, srv.URL+"/api/convert", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz") //nolint:noctx // Test request.
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics") //nolint:noctx // Test request.
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/convert") //nolint:noctx // Test request.
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
