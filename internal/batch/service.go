package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/olostep/olostep-mcp-go/internal/olostep"
)

// Terminal batch statuses. The remote service owns the vocabulary; matching
// is case-insensitive.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// API is the slice of the Olostep client the batch lifecycle needs.
type API interface {
	CreateBatch(ctx context.Context, req olostep.BatchRequest) (*olostep.Batch, error)
	GetBatch(ctx context.Context, id string) (*olostep.Batch, error)
	ListBatchItems(ctx context.Context, id string, cursor, limit int) (*olostep.BatchItemsPage, error)
	Retrieve(ctx context.Context, retrieveID string, formats []string) (*olostep.RetrievedContent, error)
}

// Config represents batch service configuration
type Config struct {
	PollInterval      time.Duration // interval between status polls
	MaxURLs           int           // max URLs per submission
	MaxWaitBeforeMs   int           // max wait_before_scraping in milliseconds
	MaxWaitSeconds    int           // max wait_for_completion budget in seconds
	DefaultItemsLimit int           // items per results page when unspecified
	MaxItemsLimit     int           // hard cap on items per results page
}

// Service manages the lifecycle of remote batch scrape jobs: submission with
// an optional bounded poll loop, and paginated result retrieval. It holds no
// state between calls; the batch identifier is the caller's responsibility.
type Service struct {
	api    API
	config Config
	logger zerolog.Logger
}

// NewService creates a new batch service
func NewService(api API, config Config, logger zerolog.Logger) *Service {
	if config.PollInterval == 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.MaxURLs == 0 {
		config.MaxURLs = 10000
	}
	if config.MaxWaitBeforeMs == 0 {
		config.MaxWaitBeforeMs = 10000
	}
	if config.MaxWaitSeconds == 0 {
		config.MaxWaitSeconds = 300
	}
	if config.DefaultItemsLimit == 0 {
		config.DefaultItemsLimit = 20
	}
	if config.MaxItemsLimit == 0 {
		config.MaxItemsLimit = 100
	}

	return &Service{
		api:    api,
		config: config,
		logger: logger.With().Str("component", "batch").Logger(),
	}
}

// ValidationError rejects caller input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// URLEntry is one caller-supplied URL with an optional correlation id.
type URLEntry struct {
	URL      string
	CustomID string
}

// SubmitRequest carries the validated inputs of a batch submission.
type SubmitRequest struct {
	URLs                     []URLEntry
	OutputFormat             string // defaults to markdown
	Country                  string
	WaitBeforeScraping       int // milliseconds
	Parser                   string
	ForceConnectionID        string
	WaitForCompletionSeconds int // 0 returns immediately after submission
}

// SubmitResult is a batch snapshot plus a caller-facing message. The embedded
// Batch fields marshal at the top level, mirroring the remote payload.
type SubmitResult struct {
	olostep.Batch
	Message string `json:"message"`
}

func (s *Service) validateSubmit(req SubmitRequest) error {
	if n := len(req.URLs); n < 1 || n > s.config.MaxURLs {
		return &ValidationError{
			Field:  "urls_to_scrape",
			Reason: fmt.Sprintf("must contain between 1 and %d URLs, got %d", s.config.MaxURLs, n),
		}
	}
	for i, entry := range req.URLs {
		if !olostep.ValidURL(entry.URL) {
			return &ValidationError{
				Field:  "urls_to_scrape",
				Reason: fmt.Sprintf("entry %d: %q is not a valid absolute URL", i, entry.URL),
			}
		}
	}
	if req.OutputFormat != "" && !olostep.ValidFormat(req.OutputFormat) {
		return &ValidationError{
			Field:  "output_format",
			Reason: fmt.Sprintf("%q is not one of markdown, html, json, text", req.OutputFormat),
		}
	}
	if req.WaitBeforeScraping < 0 || req.WaitBeforeScraping > s.config.MaxWaitBeforeMs {
		return &ValidationError{
			Field:  "wait_before_scraping",
			Reason: fmt.Sprintf("must be between 0 and %d milliseconds", s.config.MaxWaitBeforeMs),
		}
	}
	if req.WaitForCompletionSeconds < 0 || req.WaitForCompletionSeconds > s.config.MaxWaitSeconds {
		return &ValidationError{
			Field:  "wait_for_completion_seconds",
			Reason: fmt.Sprintf("must be between 0 and %d seconds", s.config.MaxWaitSeconds),
		}
	}
	return nil
}

// Submit validates req, creates a remote batch job and, when a completion
// budget was given, polls the job status at a fixed interval until a terminal
// status is observed or the wall-clock deadline passes.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, err
	}

	format := req.OutputFormat
	if format == "" {
		format = olostep.FormatMarkdown
	}

	items := make([]olostep.BatchItemRequest, len(req.URLs))
	for i, entry := range req.URLs {
		items[i] = olostep.BatchItemRequest{URL: entry.URL, CustomID: entry.CustomID}
	}

	apiReq := olostep.BatchRequest{
		Items:              items,
		Formats:            []string{format},
		WaitBeforeScraping: req.WaitBeforeScraping,
		Country:            req.Country,
		ForceConnectionID:  req.ForceConnectionID,
	}
	if req.Parser != "" {
		apiReq.Parser = &olostep.BatchParser{ID: req.Parser}
	}

	s.logger.Info().
		Int("urls", len(items)).
		Str("format", format).
		Int("wait_for_completion_seconds", req.WaitForCompletionSeconds).
		Msg("Submitting batch")

	created, err := s.api.CreateBatch(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	batchID := created.Identifier()

	if req.WaitForCompletionSeconds <= 0 || batchID == "" {
		return &SubmitResult{
			Batch: *created,
			Message: fmt.Sprintf("Batch created. Call get_batch_results with batch_id %q to retrieve results once completed (~5-8 min).",
				batchID),
		}, nil
	}

	if result := s.pollUntilTerminal(ctx, batchID, req.WaitForCompletionSeconds); result != nil {
		return result, nil
	}

	return &SubmitResult{
		Batch: *created,
		Message: fmt.Sprintf("Batch still processing after %ds. Call get_batch_results with batch_id %q to check again later.",
			req.WaitForCompletionSeconds, batchID),
	}, nil
}

// pollUntilTerminal sleeps a fixed interval between status queries until the
// job reaches a terminal status or the budget expires. It returns nil when no
// terminal status was observed; a failed status query aborts the loop rather
// than retrying, so the caller falls back to the submission snapshot.
func (s *Service) pollUntilTerminal(ctx context.Context, batchID string, budgetSeconds int) *SubmitResult {
	deadline := time.Now().Add(time.Duration(budgetSeconds) * time.Second)

	for time.Now().Before(deadline) {
		if err := sleepContext(ctx, s.config.PollInterval); err != nil {
			return nil
		}

		status, err := s.api.GetBatch(ctx, batchID)
		if err != nil {
			s.logger.Warn().Err(err).Str("batch_id", batchID).Msg("Status poll failed, returning submission snapshot")
			return nil
		}

		switch strings.ToLower(status.Status) {
		case statusCompleted:
			return &SubmitResult{
				Batch:   *status,
				Message: "Batch completed. Call get_batch_results with this batch_id to retrieve scraped content.",
			}
		case statusFailed:
			return &SubmitResult{
				Batch:   *status,
				Message: "Batch failed.",
			}
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ResultsRequest carries the inputs of a batch result retrieval.
type ResultsRequest struct {
	BatchID    string
	Formats    []string // defaults to ["markdown"]
	ItemsLimit int      // defaults to 20, capped at 100
}

// ItemResult is one URL's outcome in a results page: either sparse content
// fields, or a per-item error string.
type ItemResult struct {
	CustomID        string          `json:"custom_id,omitempty"`
	URL             string          `json:"url,omitempty"`
	MarkdownContent string          `json:"markdown_content,omitempty"`
	HTMLContent     string          `json:"html_content,omitempty"`
	JSONContent     json.RawMessage `json:"json_content,omitempty"`
	TextContent     string          `json:"text_content,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// ResultsResult is the outcome of a results call. For an incomplete or
// degraded batch only the status fields and Message are set; for a completed
// page ItemsReturned, HasMore and Items are set.
type ResultsResult struct {
	BatchID       string       `json:"batch_id,omitempty"`
	Status        string       `json:"status,omitempty"`
	TotalURLs     *int         `json:"total_urls,omitempty"`
	CompletedURLs *int         `json:"completed_urls,omitempty"`
	ItemsReturned *int         `json:"items_returned,omitempty"`
	HasMore       *bool        `json:"has_more,omitempty"`
	Items         []ItemResult `json:"items,omitempty"`
	Message       string       `json:"message,omitempty"`
}

func (s *Service) validateResults(req ResultsRequest) error {
	if strings.TrimSpace(req.BatchID) == "" {
		return &ValidationError{Field: "batch_id", Reason: "must not be empty"}
	}
	if req.ItemsLimit < 0 || req.ItemsLimit > s.config.MaxItemsLimit {
		return &ValidationError{
			Field:  "items_limit",
			Reason: fmt.Sprintf("must be between 0 and %d (0 uses the default)", s.config.MaxItemsLimit),
		}
	}
	for _, f := range req.Formats {
		if !olostep.ValidFormat(f) {
			return &ValidationError{
				Field:  "formats",
				Reason: fmt.Sprintf("%q is not one of markdown, html, json, text", f),
			}
		}
	}
	return nil
}

// Results reports the current status of a batch job and, once the job is
// completed, fetches one page of items and resolves each item's content
// concurrently. Per-item failures become that item's error field; they never
// fail the call or affect sibling items.
func (s *Service) Results(ctx context.Context, req ResultsRequest) (*ResultsResult, error) {
	if err := s.validateResults(req); err != nil {
		return nil, err
	}

	limit := req.ItemsLimit
	if limit == 0 {
		limit = s.config.DefaultItemsLimit
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{olostep.FormatMarkdown}
	}

	status, err := s.api.GetBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	batchID := status.Identifier()

	if !strings.EqualFold(status.Status, statusCompleted) {
		return &ResultsResult{
			BatchID:       batchID,
			Status:        status.Status,
			TotalURLs:     status.TotalURLs,
			CompletedURLs: status.CompletedURLs,
			Message:       fmt.Sprintf("Batch is still %s. Call get_batch_results again in ~10 seconds.", status.Status),
		}, nil
	}

	page, err := s.api.ListBatchItems(ctx, req.BatchID, 0, limit)
	if err != nil {
		// The job's completion is still reported accurately.
		s.logger.Warn().Err(err).Str("batch_id", batchID).Msg("Failed to fetch batch items")
		return &ResultsResult{
			BatchID: batchID,
			Status:  statusCompleted,
			Message: "Batch completed but failed to fetch items.",
		}, nil
	}

	results := make([]ItemResult, len(page.Items))
	var g errgroup.Group
	for i, item := range page.Items {
		if item.RetrieveID == "" {
			results[i] = ItemResult{CustomID: item.CustomID, URL: item.URL, Error: "No retrieve_id"}
			continue
		}
		i, item := i, item
		g.Go(func() error {
			results[i] = s.retrieveItem(ctx, item, formats)
			return nil
		})
	}
	// Tasks never return errors; per-item failures are recorded in place.
	_ = g.Wait()

	itemsReturned := len(results)
	hasMore := page.Cursor != nil

	s.logger.Info().
		Str("batch_id", batchID).
		Int("items_returned", itemsReturned).
		Bool("has_more", hasMore).
		Msg("Batch results assembled")

	return &ResultsResult{
		BatchID:       batchID,
		Status:        statusCompleted,
		TotalURLs:     status.TotalURLs,
		ItemsReturned: &itemsReturned,
		HasMore:       &hasMore,
		Items:         results,
	}, nil
}

// retrieveItem resolves one item's content, converting any failure into the
// item's error field so the surrounding join never fails.
func (s *Service) retrieveItem(ctx context.Context, item olostep.BatchItem, formats []string) ItemResult {
	result := ItemResult{CustomID: item.CustomID, URL: item.URL}

	content, err := s.api.Retrieve(ctx, item.RetrieveID, formats)
	if err != nil {
		var apiErr *olostep.APIError
		if errors.As(err, &apiErr) {
			result.Error = fmt.Sprintf("Retrieve failed: %d", apiErr.StatusCode)
		} else {
			result.Error = "Retrieve request failed"
		}
		return result
	}

	result.MarkdownContent = content.MarkdownContent
	result.HTMLContent = content.HTMLContent
	result.JSONContent = content.JSONContent
	result.TextContent = content.TextContent
	return result
}
