// Package schema is the registry of tool parameter schemas. It is built
// once at package init and is read-only afterwards.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	validate "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/tools"
)

// Entry holds the schemas for one tool.
type Entry struct {
	Tool        tools.ID
	Name        string
	Description string

	// Definition is the full parameter schema, profile and history included.
	Definition map[string]any

	// Candidate is the schema sent to the LLM during extraction.
	Candidate *llm.Schema

	full      *validate.Schema
	candidate *validate.Schema
}

// ValidationError lists the fields of a value that failed its schema.
type ValidationError struct {
	Tool   tools.ID
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s parameters invalid (%s): %v", e.Tool, strings.Join(e.Fields, ", "), e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var registry = map[tools.ID]*Entry{}

func init() {
	mustRegister(tools.NoteMaker, "note-maker",
		"Parameters for generating study notes.",
		tools.NoteMakerParams{}, NoteMakerCandidate{})
	mustRegister(tools.FlashcardGenerator, "flashcard-generator",
		"Parameters for generating a flashcard deck.",
		tools.FlashcardParams{}, FlashcardCandidate{})
	mustRegister(tools.ConceptExplainer, "concept-explainer",
		"Parameters for explaining a concept.",
		tools.ConceptExplainerParams{}, ConceptExplainerCandidate{})
}

func mustRegister(id tools.ID, name, desc string, params, candidate any) {
	full, fullDef, err := build(name, params)
	if err != nil {
		panic(fmt.Sprintf("schema: %s: %v", name, err))
	}
	cand, candDef, err := build(name+"-candidate", candidate)
	if err != nil {
		panic(fmt.Sprintf("schema: %s candidate: %v", name, err))
	}

	registry[id] = &Entry{
		Tool:        id,
		Name:        name,
		Description: desc,
		Definition:  fullDef,
		Candidate: &llm.Schema{
			Name:        name + "-candidate",
			Description: "Values the learner stated explicitly for the " + name + " tool.",
			Definition:  candDef,
		},
		full:      full,
		candidate: cand,
	}
}

// build reflects v into a self-contained JSON Schema and compiles it.
func build(name string, v any) (*validate.Schema, map[string]any, error) {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(v)
	s.Version = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reflected schema: %w", err)
	}

	var def map[string]any
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, nil, fmt.Errorf("decode reflected schema: %w", err)
	}

	doc, err := validate.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse reflected schema: %w", err)
	}

	c := validate.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, nil, fmt.Errorf("compile: %w", err)
	}
	return compiled, def, nil
}

// Lookup returns the entry for a tool. NoTool has no entry.
func Lookup(id tools.ID) (*Entry, bool) {
	e, ok := registry[id]
	return e, ok
}

// Entries returns all entries in catalog order.
func Entries() []*Entry {
	out := make([]*Entry, 0, len(tools.Tools))
	for _, id := range tools.Tools {
		if e, ok := registry[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks v against the full parameter schema of tool id.
func Validate(id tools.ID, v any) error {
	e, ok := Lookup(id)
	if !ok {
		return &ValidationError{Tool: id, Err: fmt.Errorf("no schema registered for %s", id)}
	}
	return e.Validate(v)
}

// Validate checks v, any JSON-marshalable value, against the full schema.
func (e *Entry) Validate(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &ValidationError{Tool: e.Tool, Err: fmt.Errorf("marshal parameters: %w", err)}
	}
	return e.check(e.full, raw)
}

// ValidateCandidate checks raw LLM output against the candidate schema.
func (e *Entry) ValidateCandidate(raw json.RawMessage) error {
	return e.check(e.candidate, raw)
}

func (e *Entry) check(s *validate.Schema, raw []byte) error {
	inst, err := validate.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ValidationError{Tool: e.Tool, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := s.Validate(inst); err != nil {
		return &ValidationError{Tool: e.Tool, Fields: failedFields(err), Err: err}
	}
	return nil
}

// failedFields walks a validation error tree and returns the dotted
// instance paths of the offending fields.
func failedFields(err error) []string {
	ve, ok := err.(*validate.ValidationError)
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var walk func(*validate.ValidationError)
	walk = func(e *validate.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}

		switch k := e.ErrorKind.(type) {
		case *kind.Required:
			for _, m := range k.Missing {
				seen[fieldPath(append(append([]string{}, e.InstanceLocation...), m))] = true
			}
		case *kind.AdditionalProperties:
			for _, p := range k.Properties {
				seen[fieldPath(append(append([]string{}, e.InstanceLocation...), p))] = true
			}
		default:
			seen[fieldPath(e.InstanceLocation)] = true
		}
	}
	walk(ve)

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func fieldPath(loc []string) string {
	if len(loc) == 0 {
		return "$"
	}
	return strings.Join(loc, ".")
}
