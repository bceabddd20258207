package store

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "annotations.schema.json"

// documentSchema describes the persisted file: an object of arrays of ranges.
// Ranges are objects, or [start, end] pairs left behind by early versions.
const documentSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "oneOf": [
        {
          "type": "object",
          "required": ["start_time", "end_time"],
          "properties": {
            "start_time": {"type": "number"},
            "end_time": {"type": "number"}
          }
        },
        {
          "type": "array",
          "items": {"type": "number"},
          "minItems": 2,
          "maxItems": 2
        }
      ]
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}
