package provider

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of a profile document.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.DoNotReference = true
	return reflector.Reflect(&Profile{})
}
