// Package lint validates the committed Grafana dashboards so a broken
// export is caught in CI instead of at import time.
package lint

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// dashboardSchema pins the structure Grafana needs to import a
// dashboard. The official schema is huge and unversioned, so only the
// load-bearing shape is checked here.
const dashboardSchema = `{
	"type": "object",
	"required": ["title", "uid", "schemaVersion", "panels"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"uid": {"type": "string", "minLength": 1},
		"schemaVersion": {"type": "integer"},
		"panels": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "type"],
				"properties": {
					"title": {"type": "string"},
					"type": {"type": "string"}
				}
			}
		}
	}
}`

// ValidateDashboard reports whether the dashboard JSON matches the
// expected structure.
func ValidateDashboard(dashboardJSON []byte) (bool, []gojsonschema.ResultError, error) {
	schemaLoader := gojsonschema.NewStringLoader(dashboardSchema)
	documentLoader := gojsonschema.NewBytesLoader(dashboardJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return false, nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	return false, result.Errors(), nil
}
