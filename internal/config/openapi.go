package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// openapiDoc captures only the sliver of an OpenAPI 3 document this runner
// needs: which paths declare a GET operation. Schema-level validation is
// out of scope.
type openapiDoc struct {
	Paths map[string]map[string]json.RawMessage `json:"paths"`
}

// parseOpenAPIGetEndpoints extracts every path with a "get" operation
// (case-insensitive), skipping the root path, and returns them trimmed of
// their leading slash.
func parseOpenAPIGetEndpoints(data []byte) (map[string]struct{}, error) {
	var doc openapiDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing openapi.json: %w", err)
	}

	endpoints := make(map[string]struct{})
	for path, ops := range doc.Paths {
		if path == "/" {
			continue
		}
		if !hasGetOperation(ops) {
			continue
		}
		endpoints[strings.TrimPrefix(path, "/")] = struct{}{}
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("openapi.json declares no GET endpoints")
	}
	return endpoints, nil
}

func hasGetOperation(ops map[string]json.RawMessage) bool {
	for method := range ops {
		if strings.EqualFold(method, "get") {
			return true
		}
	}
	return false
}
