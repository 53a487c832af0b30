package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olostep/olostep-mcp-go/internal/olostep"
)

// GetWebsiteURLsParams represents the parameters for get_website_urls
type GetWebsiteURLsParams struct {
	URL         string `json:"url"`
	SearchQuery string `json:"search_query"`
}

// CreateMapParams represents the parameters for create_map
type CreateMapParams struct {
	WebsiteURL         string   `json:"website_url"`
	SearchQuery        string   `json:"search_query,omitempty"`
	TopN               int      `json:"top_n,omitempty"`
	IncludeURLPatterns []string `json:"include_url_patterns,omitempty"`
	ExcludeURLPatterns []string `json:"exclude_url_patterns,omitempty"`
}

// CreateCrawlParams represents the parameters for create_crawl
type CreateCrawlParams struct {
	StartURL     string `json:"start_url"`
	MaxPages     int    `json:"max_pages,omitempty"`
	FollowLinks  *bool  `json:"follow_links,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	Country      string `json:"country,omitempty"`
	Parser       string `json:"parser,omitempty"`
}

// AnswersParams represents the parameters for answers
type AnswersParams struct {
	Task string `json:"task"`
	JSON any    `json:"json,omitempty"`
}

// registerSiteTools registers the map, crawl and answers tools.
func (s *Server) registerSiteTools() {
	websiteURLsTool := &mcp.Tool{
		Name:        "get_website_urls",
		Description: "Search and retrieve relevant URLs from a website",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"url": urlSchema("The URL of the website to map."),
				"search_query": {
					Type:        "string",
					Description: "The search query to sort URLs by.",
				},
			},
			Required: []string{"url", "search_query"},
		},
	}
	mcp.AddTool(s.server, websiteURLsTool, s.handleGetWebsiteURLs)

	mapTool := &mcp.Tool{
		Name:        "create_map",
		Description: "Get all URLs on a website. Extract URLs for discovery and site analysis.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"website_url": urlSchema("Website URL to extract links from."),
				"search_query": {
					Type:        "string",
					Description: `Optional search query to filter URLs (e.g., "blog").`,
				},
				"top_n": {
					Type:        "integer",
					Description: "Optional limit for number of URLs returned.",
					Minimum:     f64(1),
				},
				"include_url_patterns": {
					Type:        "array",
					Description: `Optional glob patterns to include (e.g., "/blog/**").`,
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"exclude_url_patterns": {
					Type:        "array",
					Description: `Optional glob patterns to exclude (e.g., "/admin/**").`,
					Items:       &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"website_url"},
		},
	}
	mcp.AddTool(s.server, mapTool, s.handleCreateMap)

	crawlTool := &mcp.Tool{
		Name:        "create_crawl",
		Description: "Autonomously discover and scrape entire websites by following links from a start URL.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"start_url": urlSchema("Starting URL for the crawl."),
				"max_pages": {
					Type:        "integer",
					Description: "Maximum number of pages to crawl.",
					Minimum:     f64(1),
					Default:     jsonDefault(10),
				},
				"follow_links": {
					Type:        "boolean",
					Description: "Whether to follow links found on pages.",
					Default:     jsonDefault(true),
				},
				"output_format": outputFormatSchema(),
				"country":       countrySchema(),
				"parser": {
					Type:        "string",
					Description: "Optional parser ID for specialized content extraction.",
				},
			},
			Required: []string{"start_url"},
		},
	}
	mcp.AddTool(s.server, crawlTool, s.handleCreateCrawl)

	answersTool := &mcp.Tool{
		Name:        "answers",
		Description: "Search the web and return AI-powered answers in the JSON structure you want, with sources and citations.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"task": {
					Type:        "string",
					Description: "Question or task to answer using web data.",
				},
				"json": {
					Description: `Optional JSON schema/object or a short description of the desired output shape. Example object: { "book_title": "", "author": "", "release_date": "" }`,
				},
			},
			Required: []string{"task"},
		},
	}
	mcp.AddTool(s.server, answersTool, s.handleAnswers)
}

func (s *Server) handleGetWebsiteURLs(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GetWebsiteURLsParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("url", args.URL).Str("search_query", args.SearchQuery).Msg("Mapping website")

	if !olostep.ValidURL(args.URL) {
		return errorResult("Error: url %q is not a valid absolute URL.", args.URL), nil
	}

	resp, err := s.client.CreateMap(ctx, olostep.MapRequest{
		URL:         args.URL,
		SearchQuery: args.SearchQuery,
		TopN:        100,
	})
	if err != nil {
		return apiErrorResult(err, "fetch website map"), nil
	}

	if len(resp.URLs) == 0 {
		return textResult("No URLs found matching your search query."), nil
	}
	return textResult(fmt.Sprintf("Found %d URLs matching your query:\n\n%s",
		resp.URLsCount, strings.Join(resp.URLs, "\n"))), nil
}

func (s *Server) handleCreateMap(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[CreateMapParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("url", args.WebsiteURL).Msg("Creating map")

	if !olostep.ValidURL(args.WebsiteURL) {
		return errorResult("Error: website_url %q is not a valid absolute URL.", args.WebsiteURL), nil
	}
	if args.TopN < 0 {
		return errorResult("Error: top_n must be at least 1."), nil
	}

	resp, err := s.client.CreateMap(ctx, olostep.MapRequest{
		URL:                args.WebsiteURL,
		SearchQuery:        args.SearchQuery,
		TopN:               args.TopN,
		IncludeURLPatterns: args.IncludeURLPatterns,
		ExcludeURLPatterns: args.ExcludeURLPatterns,
	})
	if err != nil {
		return apiErrorResult(err, "create map"), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) handleCreateCrawl(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[CreateCrawlParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("start_url", args.StartURL).Int("max_pages", args.MaxPages).Msg("Creating crawl")

	if !olostep.ValidURL(args.StartURL) {
		return errorResult("Error: start_url %q is not a valid absolute URL.", args.StartURL), nil
	}
	maxPages := args.MaxPages
	if maxPages == 0 {
		maxPages = 10
	}
	if maxPages < 1 {
		return errorResult("Error: max_pages must be at least 1."), nil
	}
	followLinks := true
	if args.FollowLinks != nil {
		followLinks = *args.FollowLinks
	}
	format := args.OutputFormat
	if format == "" {
		format = olostep.FormatMarkdown
	}
	if !olostep.ValidFormat(format) {
		return errorResult("Error: output_format %q is not one of markdown, html, json, text.", format), nil
	}

	req := olostep.CrawlRequest{
		StartURL:          args.StartURL,
		MaxPages:          maxPages,
		FollowLinks:       followLinks,
		Formats:           []string{format},
		Country:           args.Country,
		ForceConnectionID: s.client.OrbitKey(),
	}
	if args.Parser != "" {
		req.ParserExtract = &olostep.ParserExtract{ParserID: args.Parser}
	}

	resp, err := s.client.CreateCrawl(ctx, req)
	if err != nil {
		return apiErrorResult(err, "create crawl"), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) handleAnswers(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[AnswersParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("task", args.Task).Msg("Requesting answer")

	if strings.TrimSpace(args.Task) == "" {
		return errorResult("Error: task must not be empty."), nil
	}

	resp, err := s.client.CreateAnswer(ctx, olostep.AnswerRequest{
		Task:       args.Task,
		JSONSchema: args.JSON,
	})
	if err != nil {
		return apiErrorResult(err, "get answer"), nil
	}
	return jsonResult(resp), nil
}
