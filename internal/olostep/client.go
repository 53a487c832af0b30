package olostep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production Olostep API endpoint.
const DefaultBaseURL = "https://api.olostep.com/v1"

// Config represents client configuration
type Config struct {
	APIKey   string
	OrbitKey string
	BaseURL  string
	Timeout  time.Duration
}

// Client issues authenticated requests against the Olostep REST API.
type Client struct {
	config Config
	logger zerolog.Logger
	client *http.Client
}

// APIError is a non-success HTTP response from the Olostep API. Details
// carries the remote error body when it was valid JSON.
type APIError struct {
	StatusCode int
	Status     string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	details := "null"
	if len(e.Details) > 0 {
		details = string(e.Details)
	}
	return fmt.Sprintf("Olostep API Error: %s. Details: %s", e.Status, details)
}

// NewClient creates a new Olostep API client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 90 * time.Second
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		},
	}

	return &Client{
		config: config,
		logger: logger.With().Str("component", "olostep").Logger(),
		client: client,
	}
}

// OrbitKey returns the optional routing key forwarded as force_connection_id
// on requests that support it. Empty when not configured.
func (c *Client) OrbitKey() string {
	return c.config.OrbitKey
}

// doJSON performs one authenticated JSON round trip and decodes a 2xx body
// into T. Non-2xx responses become *APIError.
func doJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		body, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	c.logger.Debug().Str("method", method).Str("endpoint", endpoint).Msg("Calling Olostep API")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		if json.Valid(respBody) {
			apiErr.Details = json.RawMessage(respBody)
		}
		return nil, apiErr
	}

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// CreateScrape submits a single-page scrape and returns the scraped content.
func (c *Client) CreateScrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	return doJSON[ScrapeResponse](ctx, c, http.MethodPost, c.config.BaseURL+"/scrapes", req)
}

// CreateBatch submits a batch of scrape requests and returns the created job.
func (c *Client) CreateBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	return doJSON[Batch](ctx, c, http.MethodPost, c.config.BaseURL+"/batches", req)
}

// GetBatch queries the current status of a batch job.
func (c *Client) GetBatch(ctx context.Context, id string) (*Batch, error) {
	return doJSON[Batch](ctx, c, http.MethodGet, c.config.BaseURL+"/batches/"+url.PathEscape(id), nil)
}

// ListBatchItems fetches one cursor-paginated page of a batch's items.
func (c *Client) ListBatchItems(ctx context.Context, id string, cursor, limit int) (*BatchItemsPage, error) {
	endpoint := c.config.BaseURL + "/batches/" + url.PathEscape(id) + "/items?cursor=" +
		strconv.Itoa(cursor) + "&limit=" + strconv.Itoa(limit)
	return doJSON[BatchItemsPage](ctx, c, http.MethodGet, endpoint, nil)
}

// Retrieve resolves one item's content in the requested formats. Formats go
// on the query string as repeated formats[] parameters.
func (c *Client) Retrieve(ctx context.Context, retrieveID string, formats []string) (*RetrievedContent, error) {
	query := url.Values{}
	query.Set("retrieve_id", retrieveID)
	for _, f := range formats {
		query.Add("formats[]", f)
	}
	return doJSON[RetrievedContent](ctx, c, http.MethodGet, c.config.BaseURL+"/retrieve?"+query.Encode(), nil)
}

// CreateMap extracts the URLs of a website.
func (c *Client) CreateMap(ctx context.Context, req MapRequest) (*MapResponse, error) {
	return doJSON[MapResponse](ctx, c, http.MethodPost, c.config.BaseURL+"/maps", req)
}

// CreateCrawl starts a link-following crawl from a start URL.
func (c *Client) CreateCrawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	return doJSON[CrawlResponse](ctx, c, http.MethodPost, c.config.BaseURL+"/crawls", req)
}

// CreateAnswer asks the answers endpoint to research a task on the web.
func (c *Client) CreateAnswer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	return doJSON[AnswerResponse](ctx, c, http.MethodPost, c.config.BaseURL+"/answers", req)
}
