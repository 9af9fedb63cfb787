package persist

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/feedbackflow/internal/model"
)

//go:embed schema.cue
var schemaCUE string

//go:embed fixtures.yaml
var fixturesYAML []byte

// ErrInvalidDocument is returned when a document does not match the schema.
var ErrInvalidDocument = errors.New("invalid document")

// Document is a full copy of both collections, used for fixtures and backups.
type Document struct {
	Events   []model.Event    `json:"events" yaml:"events"`
	Feedback []model.Feedback `json:"feedback" yaml:"feedback"`
}

// ParseDocument decodes a YAML (or JSON) document and validates it.
// Unknown fields are rejected.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: parse: %v", ErrInvalidDocument, err)
	}
	if err := ValidateDocument(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// EncodeDocument renders doc as YAML.
func EncodeDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateDocument checks doc against the embedded CUE schema and rejects
// duplicate ids within a collection. Feedback referencing an unknown event is
// allowed; the stores tolerate dangling references.
func ValidateDocument(doc Document) error {
	if doc.Events == nil {
		doc.Events = []model.Event{}
	}
	if doc.Feedback == nil {
		doc.Feedback = []model.Feedback{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	def, err := documentSchema()
	if err != nil {
		return err
	}

	ctx := def.Context()
	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, cueerrors.Details(err, nil))
	}

	seen := make(map[string]bool, len(doc.Events))
	for _, e := range doc.Events {
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate event id %q", ErrInvalidDocument, e.ID)
		}
		seen[e.ID] = true
	}
	seen = make(map[string]bool, len(doc.Feedback))
	for _, f := range doc.Feedback {
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate feedback id %q", ErrInvalidDocument, f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// documentSchema compiles the embedded schema and returns #Document.
// A fresh cue.Context is used per call; contexts are not safe to share.
func documentSchema() (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Document"))
	if !def.Exists() {
		return cue.Value{}, errors.New("compile schema: #Document not defined")
	}
	return def, nil
}

// Fixtures returns the embedded seed data.
func Fixtures() (Document, error) {
	doc, err := ParseDocument(fixturesYAML)
	if err != nil {
		return Document{}, fmt.Errorf("fixtures: %w", err)
	}
	return doc, nil
}

// MustFixtures is Fixtures for package initialisation; it panics on a broken
// embedded file.
func MustFixtures() Document {
	doc, err := Fixtures()
	if err != nil {
		panic(err)
	}
	return doc
}
