package mcp

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olostep/olostep-mcp-go/internal/olostep"
)

// googleSearchParserID is the remote parser that turns a Google results page
// into structured JSON.
const googleSearchParserID = "@olostep/google-search"

// ScrapeWebsiteParams represents the parameters for scrape_website
type ScrapeWebsiteParams struct {
	URLToScrape        string `json:"url_to_scrape"`
	OutputFormat       string `json:"output_format,omitempty"`
	Country            string `json:"country,omitempty"`
	WaitBeforeScraping int    `json:"wait_before_scraping,omitempty"`
	Parser             string `json:"parser,omitempty"`
}

// GetWebpageContentParams represents the parameters for get_webpage_content
type GetWebpageContentParams struct {
	URLToScrape        string `json:"url_to_scrape"`
	WaitBeforeScraping int    `json:"wait_before_scraping,omitempty"`
	Country            string `json:"country,omitempty"`
}

// SearchParams represents the parameters for google_search and search_web
type SearchParams struct {
	Query   string `json:"query"`
	Country string `json:"country,omitempty"`
}

// registerScrapeTools registers the single-page scrape and search tools.
func (s *Server) registerScrapeTools() {
	scrapeTool := &mcp.Tool{
		Name:        "scrape_website",
		Description: "Extract content from a single URL. Supports multiple formats and JavaScript rendering.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"url_to_scrape":        urlSchema("The URL of the website you want to scrape."),
				"output_format":        outputFormatSchema(),
				"country":              countrySchema(),
				"wait_before_scraping": waitBeforeScrapingSchema(),
				"parser": {
					Type:        "string",
					Description: `Optional parser ID for specialized extraction (e.g., "@olostep/amazon-product").`,
				},
			},
			Required: []string{"url_to_scrape"},
		},
	}
	mcp.AddTool(s.server, scrapeTool, s.handleScrapeWebsite)

	markdownTool := &mcp.Tool{
		Name:        "get_webpage_content",
		Description: "Retrieve content of a webpage in markdown",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"url_to_scrape":        urlSchema("The URL of the webpage to scrape."),
				"wait_before_scraping": waitBeforeScrapingSchema(),
				"country":              countrySchema(),
			},
			Required: []string{"url_to_scrape"},
		},
	}
	mcp.AddTool(s.server, markdownTool, s.handleGetWebpageContent)

	searchSchema := func() *jsonschema.Schema {
		return &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "The search query to perform",
				},
				"country": {
					Type:        "string",
					Description: "Country code for localized results (e.g., US, GB)",
					Default:     jsonDefault("US"),
				},
			},
			Required: []string{"query"},
		}
	}

	googleTool := &mcp.Tool{
		Name:        "google_search",
		Description: "Retrieve structured data from Google search results",
		InputSchema: searchSchema(),
	}
	mcp.AddTool(s.server, googleTool, s.handleGoogleSearch)

	searchWebTool := &mcp.Tool{
		Name:        "search_web",
		Description: "Search the web for a given query and return structured results (non-AI, parser-based).",
		InputSchema: searchSchema(),
	}
	mcp.AddTool(s.server, searchWebTool, s.handleSearchWeb)
}

func (s *Server) handleScrapeWebsite(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[ScrapeWebsiteParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("url", args.URLToScrape).Str("format", args.OutputFormat).Msg("Scraping website")

	if !olostep.ValidURL(args.URLToScrape) {
		return errorResult("Error: url_to_scrape %q is not a valid absolute URL.", args.URLToScrape), nil
	}
	format := args.OutputFormat
	if format == "" {
		format = olostep.FormatMarkdown
	}
	if !olostep.ValidFormat(format) {
		return errorResult("Error: output_format %q is not one of markdown, html, json, text.", format), nil
	}
	if args.WaitBeforeScraping < 0 || args.WaitBeforeScraping > 10000 {
		return errorResult("Error: wait_before_scraping must be between 0 and 10000 milliseconds."), nil
	}

	req := olostep.ScrapeRequest{
		URLToScrape:        args.URLToScrape,
		Formats:            []string{format},
		WaitBeforeScraping: args.WaitBeforeScraping,
		Country:            args.Country,
		ForceConnectionID:  s.client.OrbitKey(),
	}
	if args.Parser != "" {
		req.ParserExtract = &olostep.ParserExtract{ParserID: args.Parser}
	}

	resp, err := s.client.CreateScrape(ctx, req)
	if err != nil {
		return apiErrorResult(err, "scrape website"), nil
	}

	result := resp.Result
	if result == nil {
		result = &olostep.ScrapeResult{}
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetWebpageContent(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GetWebpageContentParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("url", args.URLToScrape).Msg("Fetching webpage markdown")

	if !olostep.ValidURL(args.URLToScrape) {
		return errorResult("Error: url_to_scrape %q is not a valid absolute URL.", args.URLToScrape), nil
	}
	if args.WaitBeforeScraping < 0 || args.WaitBeforeScraping > 10000 {
		return errorResult("Error: wait_before_scraping must be between 0 and 10000 milliseconds."), nil
	}

	resp, err := s.client.CreateScrape(ctx, olostep.ScrapeRequest{
		URLToScrape:        args.URLToScrape,
		Formats:            []string{olostep.FormatMarkdown},
		WaitBeforeScraping: args.WaitBeforeScraping,
		Country:            args.Country,
		ForceConnectionID:  s.client.OrbitKey(),
	})
	if err != nil {
		return apiErrorResult(err, "scrape webpage"), nil
	}

	if resp.Result == nil || resp.Result.MarkdownContent == "" {
		return errorResult("Error: No markdown content found in Olostep API response."), nil
	}
	return textResult(resp.Result.MarkdownContent), nil
}

func (s *Server) handleGoogleSearch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[SearchParams],
) (*mcp.CallToolResultFor[any], error) {
	return s.googleSearch(ctx, params.Arguments)
}

// handleSearchWeb reuses the same underlying Google parser-based search.
func (s *Server) handleSearchWeb(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[SearchParams],
) (*mcp.CallToolResultFor[any], error) {
	return s.googleSearch(ctx, params.Arguments)
}

func (s *Server) googleSearch(ctx context.Context, args SearchParams) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}
	if args.Query == "" {
		return errorResult("Error: query must not be empty."), nil
	}
	country := args.Country
	if country == "" {
		country = "US"
	}

	s.logger.Info().Str("query", args.Query).Str("country", country).Msg("Searching Google")

	searchURL := url.URL{Scheme: "https", Host: "www.google.com", Path: "/search"}
	query := url.Values{}
	query.Set("q", args.Query)
	query.Set("gl", country)
	searchURL.RawQuery = query.Encode()

	resp, err := s.client.CreateScrape(ctx, olostep.ScrapeRequest{
		URLToScrape:        searchURL.String(),
		Formats:            []string{"parser_extract"},
		WaitBeforeScraping: 0,
		ForceConnectionID:  s.client.OrbitKey(),
		ParserExtract:      &olostep.ParserExtract{ParserID: googleSearchParserID},
	})
	if err != nil {
		return apiErrorResult(err, "perform Google search"), nil
	}

	if resp.Result == nil || resp.Result.JSONContent == "" {
		return errorResult("Error: No search results found in Olostep API response."), nil
	}

	// json_content arrives as a string of JSON; re-parse it for readable output.
	var parsed any
	if err := json.Unmarshal([]byte(resp.Result.JSONContent), &parsed); err != nil {
		return errorResult("Error: Failed to perform Google search. %v", err), nil
	}
	return jsonResult(parsed), nil
}
