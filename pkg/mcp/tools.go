package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/textutil"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// Tool names.
const (
	ToolNameConvert = "vuesetup_convert"
	ToolNameInspect = "vuesetup_inspect"
)

// MaxCodeInputBytes caps inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

const defaultFilename = "component.tsx"

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode           = errors.New("code parameter is required and must not be empty")
	ErrCodeTooLarge        = errors.New("code input exceeds maximum size")
	ErrUnsupportedLanguage = errors.New("language must be ts or tsx")

	errToolFailed = errors.New("tool reported an error")
)

// ConvertInput is the input schema for vuesetup_convert.
type ConvertInput struct {
	Code         string `json:"code"                    jsonschema:"TypeScript or TSX source containing class components"`
	Filename     string `json:"filename,omitempty"      jsonschema:"file name used for grammar detection (default component.tsx)"`
	Language     string `json:"language,omitempty"      jsonschema:"force the grammar: ts or tsx"`
	Indent       string `json:"indent,omitempty"        jsonschema:"indentation unit for generated lines (default: detected)"`
	ImportSource string `json:"import_source,omitempty" jsonschema:"module to import composition helpers from (default: no import)"`
	RuntimeProps bool   `json:"runtime_props,omitempty" jsonschema:"emit a runtime props option from @Prop arguments"`
	Diff         bool   `json:"diff,omitempty"          jsonschema:"also return a unified diff of the input against the output"`
}

// ConvertResult is the vuesetup_convert payload.
type ConvertResult struct {
	*convert.Result

	Diff string `json:"diff,omitempty"`
}

// InspectInput is the input schema for vuesetup_inspect.
type InspectInput struct {
	Code     string `json:"code"               jsonschema:"TypeScript or TSX source containing class components"`
	Filename string `json:"filename,omitempty" jsonschema:"file name used for grammar detection (default component.tsx)"`
	Language string `json:"language,omitempty" jsonschema:"force the grammar: ts or tsx"`
}

// ToolOutput wraps structured tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

const (
	convertToolDescription = "Convert Vue class components (vue-class-component / vue-property-decorator) " +
		"into components with a composition-style setup() function. Returns the rewritten code " +
		"and a per-component summary of member roles."

	inspectToolDescription = "Classify the members of every Vue class component in the given code " +
		"(state, prop, computed, method, lifecycle, emitter, watcher, provider, injector, render, ignored) " +
		"without rewriting it."
)

func (s *Server) handleConvert(ctx context.Context, _ *mcpsdk.CallToolRequest, input ConvertInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	lang, err := validateCodeInput(input.Code, input.Language)
	if err != nil {
		return errorResult(err)
	}

	conv := *s.converter
	conv.Options.Language = lang

	if input.Indent != "" {
		conv.Options.Indent = input.Indent
	}

	if input.ImportSource != "" {
		conv.Options.ImportSource = input.ImportSource
	}

	conv.Options.RuntimeProps = conv.Options.RuntimeProps || input.RuntimeProps

	name := filename(input.Filename)

	res, err := conv.Convert(ctx, name, []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	out := ConvertResult{Result: res}
	if input.Diff {
		out.Diff = textutil.UnifiedDiff(name, input.Code, res.Code, textutil.DefaultContext)
	}

	return jsonResult(out)
}

func (s *Server) handleInspect(ctx context.Context, _ *mcpsdk.CallToolRequest, input InspectInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	lang, err := validateCodeInput(input.Code, input.Language)
	if err != nil {
		return errorResult(err)
	}

	conv := *s.converter
	conv.Options.Language = lang

	reps, err := conv.Inspect(ctx, filename(input.Filename), []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(reps)
}

func filename(name string) string {
	if name == "" {
		return defaultFilename
	}

	return name
}

// validateCodeInput checks the code and resolves the forced grammar, if any.
func validateCodeInput(code, language string) (tsast.Language, error) {
	if code == "" {
		return "", ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	switch language {
	case "":
		return "", nil
	case "ts", "typescript":
		return tsast.TypeScript, nil
	case "tsx":
		return tsast.TSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
