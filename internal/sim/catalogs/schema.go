package catalogs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/game_data.schema.json
var documentSchemaJSON string

var (
	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		documentSchema, documentSchemaErr = jsonschema.CompileString("game_data.schema.json", documentSchemaJSON)
	})
	return documentSchema, documentSchemaErr
}

// checkEnvelope validates the document's outer shape (meta, balance and the
// table envelopes) before it is decoded. Row contents are not constrained.
func checkEnvelope(raw []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	s, err := compiledDocumentSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return s.Validate(v)
}
