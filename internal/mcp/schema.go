package mcp

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Schema literal helpers.

func f64(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func jsonDefault(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // literals only
	}
	return b
}

func formatEnum() []any {
	return []any{"markdown", "html", "json", "text"}
}

// outputFormatSchema is the shared schema for single-format selection.
func outputFormatSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: `Choose format ("html", "markdown", "json", or "text"). Default: "markdown"`,
		Enum:        formatEnum(),
		Default:     jsonDefault("markdown"),
	}
}

// waitBeforeScrapingSchema bounds the pre-scrape delay in milliseconds.
func waitBeforeScrapingSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: "Wait time in milliseconds before scraping (0-10000). Useful for dynamic content.",
		Minimum:     f64(0),
		Maximum:     f64(10000),
		Default:     jsonDefault(0),
	}
}

func countrySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Optional country code (e.g., US, GB, CA) for location-specific scraping.",
	}
}

func urlSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
		Format:      "uri",
	}
}
