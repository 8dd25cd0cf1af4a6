package export

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the JSON form of Document.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&Document{})
	s.Title = "headerdoc report"
	s.Description = "Declarations, doc comments and doc groups extracted from C++ headers"
	return s
}
