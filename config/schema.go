package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the indented JSON schema of a scenario file.
func Schema() ([]byte, error) {
	return json.MarshalIndent(jsonschema.Reflect(&Scenario{}), "", "  ")
}
