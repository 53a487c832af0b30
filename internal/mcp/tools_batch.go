package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olostep/olostep-mcp-go/internal/batch"
)

// BatchURLParam is one entry of urls_to_scrape.
type BatchURLParam struct {
	URL      string `json:"url"`
	CustomID string `json:"custom_id,omitempty"`
}

// BatchScrapeParams represents the parameters for batch_scrape_urls
type BatchScrapeParams struct {
	URLsToScrape             []BatchURLParam `json:"urls_to_scrape"`
	OutputFormat             string          `json:"output_format,omitempty"`
	Country                  string          `json:"country,omitempty"`
	WaitBeforeScraping       int             `json:"wait_before_scraping,omitempty"`
	Parser                   string          `json:"parser,omitempty"`
	WaitForCompletionSeconds int             `json:"wait_for_completion_seconds,omitempty"`
}

// BatchResultsParams represents the parameters for get_batch_results
type BatchResultsParams struct {
	BatchID    string   `json:"batch_id"`
	Formats    []string `json:"formats,omitempty"`
	ItemsLimit int      `json:"items_limit,omitempty"`
}

// registerBatchTools registers the batch submission and retrieval tools.
func (s *Server) registerBatchTools() {
	batchScrapeTool := &mcp.Tool{
		Name: "batch_scrape_urls",
		Description: "Scrape up to 10k URLs at the same time. Perfect for large-scale data extraction. " +
			"Returns a batch_id immediately. Use get_batch_results with the batch_id to fetch the scraped content " +
			"once the batch completes (~5-8 min). Set wait_for_completion_seconds to poll automatically.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"urls_to_scrape": {
					Type:        "array",
					Description: `JSON array of objects with "url" and optional "custom_id".`,
					MinItems:    intPtr(1),
					MaxItems:    intPtr(10000),
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"url":       urlSchema("The URL to scrape."),
							"custom_id": {Type: "string", Description: "Optional correlation id echoed back with this URL's result."},
						},
						Required: []string{"url"},
					},
				},
				"output_format":        outputFormatSchema(),
				"country":              countrySchema(),
				"wait_before_scraping": waitBeforeScrapingSchema(),
				"parser": {
					Type:        "string",
					Description: "Optional parser ID for specialized extraction (e.g. @olostep/google-search).",
				},
				"wait_for_completion_seconds": {
					Type: "integer",
					Description: "Seconds to wait for batch completion. If >0, polls every 10s until done or timeout, " +
						"then returns status. Use 0 to return immediately with batch_id (then call get_batch_results later). " +
						"Recommended: 60 for small batches, 0 for large ones.",
					Minimum: f64(0),
					Maximum: f64(300),
					Default: jsonDefault(0),
				},
			},
			Required: []string{"urls_to_scrape"},
		},
	}
	mcp.AddTool(s.server, batchScrapeTool, s.handleBatchScrapeURLs)

	batchResultsTool := &mcp.Tool{
		Name: "get_batch_results",
		Description: "Retrieve the status and scraped content for a batch job. Pass the batch_id returned by " +
			"batch_scrape_urls. If the batch is completed, returns the scraped content for each URL. " +
			"If still in_progress, returns the current status so you can call again later.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"batch_id": {
					Type:        "string",
					Description: "The batch_id (or id) returned from batch_scrape_urls.",
				},
				"formats": {
					Type:        "array",
					Description: `Content formats to retrieve per URL. Default: ["markdown"].`,
					Items:       &jsonschema.Schema{Type: "string", Enum: formatEnum()},
					Default:     jsonDefault([]string{"markdown"}),
				},
				"items_limit": {
					Type:        "integer",
					Description: "Max number of items to retrieve content for (1-100). Default: 20.",
					Minimum:     f64(1),
					Maximum:     f64(100),
					Default:     jsonDefault(20),
				},
			},
			Required: []string{"batch_id"},
		},
	}
	mcp.AddTool(s.server, batchResultsTool, s.handleGetBatchResults)
}

func (s *Server) handleBatchScrapeURLs(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[BatchScrapeParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().
		Int("urls", len(args.URLsToScrape)).
		Int("wait_for_completion_seconds", args.WaitForCompletionSeconds).
		Msg("Batch scrape requested")

	urls := make([]batch.URLEntry, len(args.URLsToScrape))
	for i, entry := range args.URLsToScrape {
		urls[i] = batch.URLEntry{URL: entry.URL, CustomID: entry.CustomID}
	}

	result, err := s.batchService.Submit(ctx, batch.SubmitRequest{
		URLs:                     urls,
		OutputFormat:             args.OutputFormat,
		Country:                  args.Country,
		WaitBeforeScraping:       args.WaitBeforeScraping,
		Parser:                   args.Parser,
		ForceConnectionID:        s.client.OrbitKey(),
		WaitForCompletionSeconds: args.WaitForCompletionSeconds,
	})
	if err != nil {
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			return errorResult("Error: Invalid %s. %s", verr.Field, verr.Reason), nil
		}
		return apiErrorResult(err, "create batch scrape"), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetBatchResults(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[BatchResultsParams],
) (*mcp.CallToolResultFor[any], error) {
	if res := s.requireAPIKey(); res != nil {
		return res, nil
	}

	args := params.Arguments
	s.logger.Info().Str("batch_id", args.BatchID).Int("items_limit", args.ItemsLimit).Msg("Batch results requested")

	result, err := s.batchService.Results(ctx, batch.ResultsRequest{
		BatchID:    args.BatchID,
		Formats:    args.Formats,
		ItemsLimit: args.ItemsLimit,
	})
	if err != nil {
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			return errorResult("Error: Invalid %s. %s", verr.Field, verr.Reason), nil
		}
		return apiErrorResult(err, "get batch results"), nil
	}
	return jsonResult(result), nil
}
