// Package lsp provides a Language Server Protocol server that reports which
// class components of an open document can be converted and offers the
// conversion as a code action.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
	"github.com/Sumatoshi-tech/vuesetup/pkg/version"
)

const (
	serverName = "vuesetup"
	// CommandConvert converts the document named by its single argument.
	CommandConvert = "vuesetup.convert"

	methodPublishDiagnostics = "textDocument/publishDiagnostics"
	methodApplyEdit          = "workspace/applyEdit"
)

// ErrUnknownDocument is returned for requests on documents that were never opened.
var ErrUnknownDocument = errors.New("unknown document")

// DocumentStore is a thread-safe store for document contents keyed by URI.
type DocumentStore struct {
	documents map[string]string // URI -> content.
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]string),
	}
}

// Set stores document content for the given URI.
func (ds *DocumentStore) Set(uri, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = content
}

// Get retrieves document content by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	content, ok := ds.documents[uri]

	return content, ok
}

// Delete removes document content by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// Server implements the vuesetup language server.
type Server struct {
	store     *DocumentStore
	converter *convert.Converter
	logger    *slog.Logger
	handler   protocol.Handler
}

// NewServer creates a language server backed by conv. A nil converter uses
// the default rules.
func NewServer(conv *convert.Converter, logger *slog.Logger) *Server {
	if conv == nil {
		conv = convert.New(nil)
	}

	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{store: NewDocumentStore(), converter: conv, logger: logger}

	srv.handler = protocol.Handler{
		Initialize:              srv.initialize,
		Initialized:             srv.initialized,
		Shutdown:                srv.shutdown,
		SetTrace:                srv.setTrace,
		TextDocumentDidOpen:     srv.didOpen,
		TextDocumentDidChange:   srv.didChange,
		TextDocumentDidSave:     srv.didSave,
		TextDocumentDidClose:    srv.didClose,
		TextDocumentHover:       srv.hover,
		TextDocumentCodeAction:  srv.codeAction,
		WorkspaceExecuteCommand: srv.executeCommand,
	}

	return srv
}

// Run starts the LSP server on stdio.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	openClose := true
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
	}
	capabilities.CodeActionProvider = &protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindRefactorRewrite},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandConvert},
	}

	ver := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &ver,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	text, ok := srv.store.Get(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}

	for _, change := range params.ContentChanges {
		text = applyChange(text, change)
	}

	srv.store.Set(uri, text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

// hover names the role of the class member under the cursor.
func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil, nil // LSP protocol expects nil hover when no document found.
	}

	reports, err := srv.converter.Inspect(context.Background(), documentName(uri), []byte(text))
	if err != nil {
		return nil, nil //nolint:nilerr // Broken documents have no hover.
	}

	pos := tsast.Position{Line: int(params.Position.Line), Column: int(params.Position.Character)}

	for _, comp := range reports {
		for _, member := range comp.Members {
			if !within(pos, member.Start, member.End) {
				continue
			}

			value := fmt.Sprintf("**%s**: %s of `%s`", member.Name, member.Role, displayName(comp.Name))
			if member.Reason != "" {
				value += " (" + member.Reason + ")"
			}

			rng := toRange(member.Start, member.End)

			return &protocol.Hover{
				Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
				Range:    &rng,
			}, nil
		}
	}

	return nil, nil
}

func (srv *Server) codeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	uri := params.TextDocument.URI

	edit, err := srv.conversionEdit(uri)
	if err != nil || edit == nil {
		return []protocol.CodeAction{}, nil //nolint:nilerr // No action for broken documents.
	}

	kind := protocol.CodeActionKindRefactorRewrite
	preferred := true

	return []protocol.CodeAction{{
		Title:       "Convert class components to setup()",
		Kind:        &kind,
		IsPreferred: &preferred,
		Edit:        edit,
	}}, nil
}

func (srv *Server) executeCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params.Command != CommandConvert {
		return nil, fmt.Errorf("%w: %s", errUnknownCommand, params.Command)
	}

	if len(params.Arguments) != 1 {
		return nil, fmt.Errorf("%w: %s expects a document URI", errUnknownCommand, params.Command)
	}

	uri, ok := params.Arguments[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a document URI", errUnknownCommand, params.Command)
	}

	edit, err := srv.conversionEdit(uri)
	if err != nil {
		return nil, err
	}

	if edit == nil {
		return nil, nil
	}

	label := "vuesetup: convert"

	var result protocol.ApplyWorkspaceEditResponse

	ctx.Call(methodApplyEdit, &protocol.ApplyWorkspaceEditParams{Label: &label, Edit: *edit}, &result)

	return result, nil
}

var errUnknownCommand = errors.New("unknown command")

// conversionEdit returns an edit replacing the whole document with its
// converted text, or nil when nothing would change.
func (srv *Server) conversionEdit(uri string) (*protocol.WorkspaceEdit, error) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}

	res, err := srv.converter.Convert(context.Background(), documentName(uri), []byte(text))
	if err != nil {
		return nil, err
	}

	if !res.Changed {
		return nil, nil
	}

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			uri: {{Range: wholeDocument(text), NewText: res.Code}},
		},
	}, nil
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	text, _ := srv.store.Get(uri)

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: srv.diagnose(uri, text),
	})
}

// diagnose reports every convertible component, ignored members, hints and
// syntax errors.
func (srv *Server) diagnose(uri, text string) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}

	reports, err := srv.converter.Inspect(context.Background(), documentName(uri), []byte(text))
	if err != nil {
		var synErr *tsast.SyntaxError
		if errors.As(err, &synErr) {
			diags = append(diags, diagnostic(
				toRange(synErr.Position, synErr.Position),
				protocol.DiagnosticSeverityError,
				fmt.Sprintf("syntax error near %q", synErr.Snippet),
			))

			return diags
		}

		srv.logger.Warn("lsp inspect failed", "uri", uri, "error", err)

		return diags
	}

	lines := strings.Split(text, "\n")

	for _, comp := range reports {
		end := tsast.Position{Line: comp.Start.Line, Column: utf16Len(lineAt(lines, comp.Start.Line))}

		diags = append(diags, diagnostic(
			toRange(comp.Start, end),
			protocol.DiagnosticSeverityInformation,
			fmt.Sprintf("class component %s can be converted to setup()", displayName(comp.Name)),
		))

		for _, member := range comp.Members {
			switch {
			case member.Role == convert.RoleIgnored:
				diags = append(diags, diagnostic(
					toRange(member.Start, member.End),
					protocol.DiagnosticSeverityWarning,
					fmt.Sprintf("member %s is not converted: %s", member.Name, member.Reason),
				))
			case member.Hint != "":
				diags = append(diags, diagnostic(
					toRange(member.Start, member.End),
					protocol.DiagnosticSeverityHint,
					fmt.Sprintf("method %s: %s", member.Name, member.Hint),
				))
			}
		}
	}

	return diags
}

func diagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := serverName

	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func displayName(name string) string {
	if name == "" {
		return "(anonymous)"
	}

	return name
}

// documentName maps a document URI to the file name used for language
// detection.
func documentName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}

	return u.Path
}

func within(pos, start, end tsast.Position) bool {
	return !less(pos, start) && less(pos, end)
}

func less(a, b tsast.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Column < b.Column
}

func toRange(start, end tsast.Position) protocol.Range {
	return protocol.Range{Start: toPosition(start), End: toPosition(end)}
}

func toPosition(p tsast.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(p.Line, 0)),
		Character: protocol.UInteger(max(p.Column, 0)),
	}
}

func wholeDocument(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1

	return toRange(tsast.Position{}, tsast.Position{Line: last, Column: utf16Len(lines[last])})
}

func lineAt(lines []string, line int) string {
	if line < 0 || line >= len(lines) {
		return ""
	}

	return lines[line]
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}

	return n
}

// applyChange applies one content change. Changes without a range replace
// the whole document.
func applyChange(text string, change any) string {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return c.Text
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			return c.Text
		}

		start := offsetOf(text, c.Range.Start)
		end := max(offsetOf(text, c.Range.End), start)

		return text[:start] + c.Text + text[end:]
	case map[string]any:
		if s, ok := c["text"].(string); ok {
			return s
		}
	}

	return text
}

// offsetOf converts an LSP position, counted in UTF-16 units, to a byte
// offset clamped to the text.
func offsetOf(text string, pos protocol.Position) int {
	off := 0

	for line := protocol.UInteger(0); line < pos.Line; line++ {
		idx := strings.IndexByte(text[off:], '\n')
		if idx < 0 {
			return len(text)
		}

		off += idx + 1
	}

	units := int(pos.Character)

	for off < len(text) && units > 0 && text[off] != '\n' {
		r, size := utf8.DecodeRuneInString(text[off:])
		units -= utf16.RuneLen(r)
		off += size
	}

	return off
}
