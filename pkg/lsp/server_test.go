package lsp

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const testURI = "file:///src/Hello.ts"

const component = `import { Component, Prop, Vue } from 'vue-property-decorator';

@Component
export default class Hello extends Vue {
  @Prop() msg!: string;
  static version = 1;
  count = 0;
  inc() { this.count++; }
}
`

// recorder captures notifications sent to the client.
type recorder struct {
	mu     sync.Mutex
	params []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != methodPublishDiagnostics {
				return
			}

			r.mu.Lock()
			defer r.mu.Unlock()

			if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
				r.params = append(r.params, p)
			}
		},
	}
}

func (r *recorder) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.params)

	return r.params[len(r.params)-1]
}

func open(t *testing.T, srv *Server, rec *recorder, uri, text string) {
	t.Helper()

	err := srv.didOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "typescript", Text: text},
	})
	require.NoError(t, err)
}

func TestDocumentStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()
	store.Set(testURI, "a")

	got, ok := store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "a", got)

	store.Delete(testURI)

	_, ok = store.Get(testURI)
	assert.False(t, ok)
}

func TestDocumentStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			uri := fmt.Sprintf("file:///doc%d.ts", i%2)
			for range 100 {
				store.Set(uri, uri)
				store.Get(uri)
			}
		}()
	}

	wg.Wait()

	got, ok := store.Get("file:///doc1.ts")
	require.True(t, ok)
	assert.Equal(t, "file:///doc1.ts", got)
}

func TestServer_Initialize(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)

	out, err := srv.initialize(nil, &protocol.InitializeParams{})
	require.NoError(t, err)

	res, ok := out.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, serverName, res.ServerInfo.Name)
	assert.Equal(t, []string{CommandConvert}, res.Capabilities.ExecuteCommandProvider.Commands)

	syncOpts, ok := res.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, *syncOpts.Change)
}

func TestServer_DiagnosticsOnOpen(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, component)

	pub := rec.last(t)
	assert.Equal(t, testURI, pub.URI)
	require.Len(t, pub.Diagnostics, 2)

	info := pub.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityInformation, *info.Severity)
	assert.Contains(t, info.Message, "Hello")

	warn := pub.Diagnostics[1]
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *warn.Severity)
	assert.Contains(t, warn.Message, "version")
	assert.Contains(t, warn.Message, "static member")
	assert.Equal(t, protocol.UInteger(5), warn.Range.Start.Line)
}

func TestServer_DiagnosticsHint(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, `import { Component, Vue } from 'vue-property-decorator';

@Component
export default class Hello extends Vue {
  mouted() {}
}
`)

	pub := rec.last(t)
	require.Len(t, pub.Diagnostics, 2)
	assert.Equal(t, protocol.DiagnosticSeverityHint, *pub.Diagnostics[1].Severity)
	assert.Contains(t, pub.Diagnostics[1].Message, "mounted")
}

func TestServer_DiagnosticsSyntaxError(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, "class {{{ = ;\n")

	pub := rec.last(t)
	require.Len(t, pub.Diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityError, *pub.Diagnostics[0].Severity)
	assert.Contains(t, pub.Diagnostics[0].Message, "syntax error")
}

func TestServer_PlainFileHasNoDiagnostics(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, "export const x = 1;\n")

	assert.Empty(t, rec.last(t).Diagnostics)
}

func TestServer_DidChangeAndClose(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, "export const x = 1;\n")

	err := srv.didChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: component}},
	})
	require.NoError(t, err)

	text, ok := srv.store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, component, text)
	assert.NotEmpty(t, rec.last(t).Diagnostics)

	require.NoError(t, srv.didClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))

	_, ok = srv.store.Get(testURI)
	assert.False(t, ok)
	assert.Empty(t, rec.last(t).Diagnostics)
}

func TestServer_DidChangeUnknownDocument(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)

	err := srv.didChange((&recorder{}).context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
	})
	require.ErrorIs(t, err, ErrUnknownDocument)
}

func TestServer_CodeAction(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, component)

	out, err := srv.codeAction(nil, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)

	actions, ok := out.([]protocol.CodeAction)
	require.True(t, ok)
	require.Len(t, actions, 1)
	assert.Equal(t, protocol.CodeActionKindRefactorRewrite, *actions[0].Kind)

	edits := actions[0].Edit.Changes[testURI]
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "setup(props")
	assert.NotContains(t, edits[0].NewText, "extends Vue")
	assert.Equal(t, protocol.Position{}, edits[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 9, Character: 0}, edits[0].Range.End)
}

func TestServer_CodeActionNothingToDo(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, "export const x = 1;\n")

	out, err := srv.codeAction(nil, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestServer_ExecuteCommand(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, component)

	var applied *protocol.ApplyWorkspaceEditParams

	ctx := &glsp.Context{
		Call: func(method string, params, result any) {
			if method == methodApplyEdit {
				applied, _ = params.(*protocol.ApplyWorkspaceEditParams)
			}

			if res, ok := result.(*protocol.ApplyWorkspaceEditResponse); ok {
				res.Applied = true
			}
		},
	}

	out, err := srv.executeCommand(ctx, &protocol.ExecuteCommandParams{
		Command:   CommandConvert,
		Arguments: []any{testURI},
	})
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Contains(t, applied.Edit.Changes[testURI][0].NewText, "setup(props")
	assert.Equal(t, protocol.ApplyWorkspaceEditResponse{Applied: true}, out)

	_, err = srv.executeCommand(ctx, &protocol.ExecuteCommandParams{Command: "other"})
	require.ErrorIs(t, err, errUnknownCommand)
}

func TestServer_Hover(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil)
	rec := &recorder{}

	open(t, srv, rec, testURI, component)

	hover, err := srv.hover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 6, Character: 3},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "**count**: state of `Hello`")

	hover, err = srv.hover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestApplyChange_Incremental(t *testing.T) {
	t.Parallel()

	text := "let a = 1;\nlet é = 2;\n"
	change := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 1, Character: 8},
			End:   protocol.Position{Line: 1, Character: 9},
		},
		Text: "3",
	}

	assert.Equal(t, "let a = 1;\nlet é = 3;\n", applyChange(text, change))
	assert.Equal(t, "x", applyChange(text, protocol.TextDocumentContentChangeEventWhole{Text: "x"}))
}

func TestDocumentName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/src/Hello.tsx", documentName("file:///src/Hello.tsx"))
	assert.Equal(t, "untitled", documentName("untitled"))
}
