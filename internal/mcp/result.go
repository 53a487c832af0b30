package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olostep/olostep-mcp-go/internal/olostep"
)

// missingKeyMessage is the uniform error every credentialed tool returns when
// no API key was configured at startup.
const missingKeyMessage = "Error: OLOSTEP_API_KEY is not configured. Set it in the server environment to enable this tool."

// textResult wraps text in a success envelope.
func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult pretty-prints v into a success envelope.
func jsonResult(v any) *mcp.CallToolResultFor[any] {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error: Failed to encode result. %v", err)
	}
	return textResult(string(b))
}

// errorResult wraps a formatted message in an error envelope. Tool failures
// are always reported this way, never as protocol-level faults.
func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

// apiErrorResult maps a client error to an error envelope. API errors carry
// their own "Olostep API Error" prefix; transport errors get a generic
// per-action message.
func apiErrorResult(err error, action string) *mcp.CallToolResultFor[any] {
	var apiErr *olostep.APIError
	if errors.As(err, &apiErr) {
		return errorResult("%v", apiErr)
	}
	return errorResult("Error: Failed to %s. %v", action, err)
}

// requireAPIKey short-circuits credentialed tools when no key is configured.
// Returns nil when the key is present.
func (s *Server) requireAPIKey() *mcp.CallToolResultFor[any] {
	if s.config.API.Key == "" {
		return errorResult("%s", missingKeyMessage)
	}
	return nil
}
