package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabsort/internal/errors"
)

// decode unmarshals MCP request arguments into a typed struct.
// Malformed arguments come back as INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("marshal args: %v", err))
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("unmarshal args: %v", err))
	}
	return result, nil
}

// requireID rejects missing or non-positive ids.
func requireID(field string, id int) error {
	if id <= 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("%s must be a positive integer", field))
	}
	return nil
}
