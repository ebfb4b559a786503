package messages

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed execute.schema.json
var executeSchemaSource string

var (
	executeSchemaOnce sync.Once
	executeSchema     *jsonschema.Schema
	executeSchemaErr  error
)

// ValidateExecutePayload checks a raw execute-command payload against the
// embedded JSON Schema before it is decoded. The schema mirrors the analysis
// service's server-side validators, so a payload that fails here would have
// been rejected remotely anyway.
func ValidateExecutePayload(data []byte) error {
	executeSchemaOnce.Do(func() {
		executeSchema, executeSchemaErr = jsonschema.CompileString("execute.schema.json", executeSchemaSource)
	})
	if executeSchemaErr != nil {
		return fmt.Errorf("compile execute schema: %w", executeSchemaErr)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid execute payload: %w", err)
	}
	if err := executeSchema.Validate(v); err != nil {
		return fmt.Errorf("execute payload rejected: %w", err)
	}
	return nil
}
