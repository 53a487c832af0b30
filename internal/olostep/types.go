package olostep

import (
	"encoding/json"
	"net/url"
)

// Output formats supported by the Olostep API.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatText     = "text"
)

// ValidFormat reports whether f is one of the supported output formats.
func ValidFormat(f string) bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatJSON, FormatText:
		return true
	}
	return false
}

// ValidURL reports whether raw parses as an absolute URL with a host.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

// ParserExtract selects a named remote-side extraction strategy on the
// /scrapes and /crawls endpoints.
type ParserExtract struct {
	ParserID string `json:"parser_id"`
}

// ScrapeRequest is the payload for POST /scrapes.
type ScrapeRequest struct {
	URLToScrape        string         `json:"url_to_scrape"`
	Formats            []string       `json:"formats"`
	WaitBeforeScraping int            `json:"wait_before_scraping"`
	Country            string         `json:"country,omitempty"`
	ForceConnectionID  string         `json:"force_connection_id,omitempty"`
	ParserExtract      *ParserExtract `json:"parser_extract,omitempty"`
}

// ScrapeResult is the inner result object of a scrape response. Content
// fields are sparse: the API only sends the formats it produced.
type ScrapeResult struct {
	ID                  string          `json:"id,omitempty"`
	URL                 string          `json:"url,omitempty"`
	MarkdownContent     string          `json:"markdown_content,omitempty"`
	HTMLContent         string          `json:"html_content,omitempty"`
	JSONContent         string          `json:"json_content,omitempty"`
	TextContent         string          `json:"text_content,omitempty"`
	Status              string          `json:"status,omitempty"`
	Timestamp           string          `json:"timestamp,omitempty"`
	ScreenshotHostedURL string          `json:"screenshot_hosted_url,omitempty"`
	PageMetadata        json.RawMessage `json:"page_metadata,omitempty"`
}

// ScrapeResponse is the envelope returned by POST /scrapes.
type ScrapeResponse struct {
	Result *ScrapeResult `json:"result,omitempty"`
}

// BatchItemRequest is one URL entry in a batch submission.
type BatchItemRequest struct {
	URL      string `json:"url"`
	CustomID string `json:"custom_id,omitempty"`
}

// BatchParser selects a named extraction strategy on the /batches endpoint.
// Note the shape differs from ParserExtract; the batch endpoint expects
// parser: {id}.
type BatchParser struct {
	ID string `json:"id"`
}

// BatchRequest is the payload for POST /batches.
type BatchRequest struct {
	Items              []BatchItemRequest `json:"items"`
	Formats            []string           `json:"formats"`
	WaitBeforeScraping int                `json:"wait_before_scraping"`
	Country            string             `json:"country,omitempty"`
	ForceConnectionID  string             `json:"force_connection_id,omitempty"`
	Parser             *BatchParser       `json:"parser,omitempty"`
}

// Batch is a remote batch job snapshot. The API has returned the identifier
// under both "id" and "batch_id" across versions; Identifier coalesces them.
// Status is an opaque remote-owned vocabulary and must be matched
// case-insensitively.
type Batch struct {
	ID            string `json:"id,omitempty"`
	BatchID       string `json:"batch_id,omitempty"`
	Status        string `json:"status,omitempty"`
	TotalURLs     *int   `json:"total_urls,omitempty"`
	CompletedURLs *int   `json:"completed_urls,omitempty"`
}

// Identifier returns the batch identifier regardless of which field the API
// populated.
func (b *Batch) Identifier() string {
	if b.ID != "" {
		return b.ID
	}
	return b.BatchID
}

// BatchItem is one URL's entry in a batch items page. RetrieveID is only
// present once that item's content is ready.
type BatchItem struct {
	CustomID   string `json:"custom_id,omitempty"`
	URL        string `json:"url,omitempty"`
	RetrieveID string `json:"retrieve_id,omitempty"`
}

// BatchItemsPage is one page of GET /batches/{id}/items. A non-nil Cursor
// means more pages remain.
type BatchItemsPage struct {
	Items  []BatchItem `json:"items"`
	Cursor *int        `json:"cursor,omitempty"`
}

// RetrievedContent is the payload of GET /retrieve for one item. Fields are
// sparse: only the formats the API actually returned are set.
type RetrievedContent struct {
	MarkdownContent string          `json:"markdown_content,omitempty"`
	HTMLContent     string          `json:"html_content,omitempty"`
	JSONContent     json.RawMessage `json:"json_content,omitempty"`
	TextContent     string          `json:"text_content,omitempty"`
}

// MapRequest is the payload for POST /maps.
type MapRequest struct {
	URL                string   `json:"url"`
	SearchQuery        string   `json:"search_query,omitempty"`
	TopN               int      `json:"top_n,omitempty"`
	IncludeURLPatterns []string `json:"include_url_patterns,omitempty"`
	ExcludeURLPatterns []string `json:"exclude_url_patterns,omitempty"`
}

// MapResponse is the result of POST /maps.
type MapResponse struct {
	MapID       string   `json:"map_id,omitempty"`
	Object      string   `json:"object,omitempty"`
	URL         string   `json:"url,omitempty"`
	TotalURLs   int      `json:"total_urls,omitempty"`
	URLsCount   int      `json:"urls_count,omitempty"`
	URLs        []string `json:"urls,omitempty"`
	SearchQuery string   `json:"search_query,omitempty"`
	TopN        int      `json:"top_n,omitempty"`
}

// CrawlRequest is the payload for POST /crawls.
type CrawlRequest struct {
	StartURL          string         `json:"start_url"`
	MaxPages          int            `json:"max_pages"`
	FollowLinks       bool           `json:"follow_links"`
	Formats           []string       `json:"formats"`
	Country           string         `json:"country,omitempty"`
	ForceConnectionID string         `json:"force_connection_id,omitempty"`
	ParserExtract     *ParserExtract `json:"parser_extract,omitempty"`
}

// CrawlResponse is the result of POST /crawls.
type CrawlResponse struct {
	CrawlID     string   `json:"crawl_id,omitempty"`
	Object      string   `json:"object,omitempty"`
	Status      string   `json:"status,omitempty"`
	StartURL    string   `json:"start_url,omitempty"`
	MaxPages    int      `json:"max_pages,omitempty"`
	FollowLinks bool     `json:"follow_links,omitempty"`
	Created     string   `json:"created,omitempty"`
	Formats     []string `json:"formats,omitempty"`
	Country     string   `json:"country,omitempty"`
	Parser      string   `json:"parser,omitempty"`
}

// AnswerRequest is the payload for POST /answers. JSONSchema is forwarded
// verbatim; the API accepts either a schema object or a short description of
// the desired output shape.
type AnswerRequest struct {
	Task       string `json:"task"`
	JSONSchema any    `json:"json,omitempty"`
}

// AnswerResponse is the result of POST /answers. Result and Sources are kept
// raw so the exact remote payload reaches the caller unchanged.
type AnswerResponse struct {
	AnswerID string          `json:"answer_id,omitempty"`
	Object   string          `json:"object,omitempty"`
	Task     string          `json:"task,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Sources  json.RawMessage `json:"sources,omitempty"`
	Created  string          `json:"created,omitempty"`
}
