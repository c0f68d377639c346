package jobs

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Wire contracts of the job backend.
var (
	startSchema = mustSchema(`{
		"type": "object",
		"required": ["job_id"],
		"properties": {
			"job_id": {"type": "string", "minLength": 1},
			"status": {"type": "string"}
		}
	}`)

	statusSchema = mustSchema(`{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "minLength": 1},
			"payload": {"type": ["object", "string", "null"]}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("jobs: invalid schema: %v", err))
	}
	return schema
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
