package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed rules-schema.json
var schemaJSON []byte

// Sentinel errors for rule loading.
var (
	ErrInvalidRules = errors.New("invalid rules")
	errReadRules    = errors.New("read rules")
)

// ValidationError carries every schema violation of a rules document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidRules, strings.Join(e.Problems, "; "))
}

// Unwrap exposes ErrInvalidRules to errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRules
}

// Schema returns the JSON schema rule documents are validated against.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// LoadFile reads a YAML rules file. See Parse.
func LoadFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errReadRules, err)
	}

	return Parse(data)
}

// Parse validates a YAML rules document and overlays it on Default.
// Lists in the document replace the default lists; absent keys keep
// their defaults.
func Parse(data []byte) (*Rules, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	r := Default()

	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	return r, nil
}

// Validate checks a YAML rules document against the embedded schema.
func Validate(data []byte) error {
	var doc any

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return &ValidationError{Problems: problems}
}

// Marshal renders the rule set as YAML.
func (r *Rules) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	return buf.Bytes(), nil
}
