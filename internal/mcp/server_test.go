package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect builds a server against baseURL and returns a connected client
// session over in-memory transports.
func connect(t *testing.T, apiKey, baseURL string) *gomcp.ClientSession {
	t.Helper()

	config := &Config{
		Server: ServerConfig{Name: "olostep", Version: "1.0.0"},
		API:    APIConfig{Key: apiKey, OrbitKey: "orbit-test", BaseURL: baseURL},
	}
	server, err := NewServer(config, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := gomcp.NewInMemoryTransports()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v1"}, nil)
	session, err := client.Connect(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callTool(t *testing.T, session *gomcp.ClientSession, name string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *gomcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestListToolsExposesFullCatalog(t *testing.T) {
	session := connect(t, "", "http://unused.invalid")

	res, err := session.ListTools(context.Background(), &gomcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	expected := []string{
		"scrape_website",
		"get_webpage_content",
		"get_website_urls",
		"create_map",
		"create_crawl",
		"google_search",
		"search_web",
		"answers",
		"batch_scrape_urls",
		"get_batch_results",
	}
	for _, name := range expected {
		assert.Contains(t, names, name)
	}
	assert.Len(t, res.Tools, len(expected))
}

func TestMissingAPIKeyShortCircuitsEveryTool(t *testing.T) {
	var backendCalls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
	}))
	defer backend.Close()

	session := connect(t, "", backend.URL)

	calls := []struct {
		tool string
		args map[string]any
	}{
		{"scrape_website", map[string]any{"url_to_scrape": "https://example.com"}},
		{"get_webpage_content", map[string]any{"url_to_scrape": "https://example.com"}},
		{"get_website_urls", map[string]any{"url": "https://example.com", "search_query": "blog"}},
		{"create_map", map[string]any{"website_url": "https://example.com"}},
		{"create_crawl", map[string]any{"start_url": "https://example.com"}},
		{"google_search", map[string]any{"query": "golang"}},
		{"search_web", map[string]any{"query": "golang"}},
		{"answers", map[string]any{"task": "who wrote Go?"}},
		{"batch_scrape_urls", map[string]any{"urls_to_scrape": []map[string]any{{"url": "https://example.com"}}}},
		{"get_batch_results", map[string]any{"batch_id": "batch_abc"}},
	}
	for _, call := range calls {
		t.Run(call.tool, func(t *testing.T) {
			res := callTool(t, session, call.tool, call.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), "OLOSTEP_API_KEY is not configured")
		})
	}
	assert.Zero(t, backendCalls.Load(), "credential short-circuit must not touch the network")
}

func TestBatchScrapeCreatesWithoutPolling(t *testing.T) {
	var statusCalls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/batches":
			_, _ = w.Write([]byte(`{"id":"batch_test_1","status":"in_progress"}`))
		case r.Method == http.MethodGet:
			statusCalls.Add(1)
			_, _ = w.Write([]byte(`{"id":"batch_test_1","status":"in_progress"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "batch_scrape_urls", map[string]any{
		"urls_to_scrape":              []map[string]any{{"url": "https://example.com"}},
		"output_format":               "markdown",
		"wait_for_completion_seconds": 0,
	})

	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, `"batch_test_1"`)
	assert.Contains(t, text, "Batch created")
	assert.Zero(t, statusCalls.Load(), "budget 0 must not issue status polls")
}

func TestBatchScrapeRejectsInvalidInput(t *testing.T) {
	var backendCalls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "batch_scrape_urls", map[string]any{
		"urls_to_scrape": []map[string]any{{"url": "not a valid url"}},
	})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "urls_to_scrape")
	assert.Zero(t, backendCalls.Load())
}

func TestGetBatchResultsEndToEnd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/batches/batch_done":
			_, _ = w.Write([]byte(`{"id":"batch_done","status":"completed","total_urls":2,"completed_urls":2}`))
		case "/batches/batch_done/items":
			_, _ = w.Write([]byte(`{"items":[{"custom_id":"a","url":"https://example.com/a","retrieve_id":"ret_a"},{"custom_id":"b","url":"https://example.com/b"}]}`))
		case "/retrieve":
			assert.Equal(t, "ret_a", r.URL.Query().Get("retrieve_id"))
			_, _ = w.Write([]byte(`{"markdown_content":"# page a"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "get_batch_results", map[string]any{"batch_id": "batch_done"})
	assert.False(t, res.IsError)

	var payload struct {
		BatchID       string `json:"batch_id"`
		Status        string `json:"status"`
		ItemsReturned int    `json:"items_returned"`
		HasMore       bool   `json:"has_more"`
		Items         []struct {
			CustomID        string `json:"custom_id"`
			MarkdownContent string `json:"markdown_content"`
			Error           string `json:"error"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))

	assert.Equal(t, "batch_done", payload.BatchID)
	assert.Equal(t, "completed", payload.Status)
	assert.Equal(t, 2, payload.ItemsReturned)
	assert.False(t, payload.HasMore)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, "# page a", payload.Items[0].MarkdownContent)
	assert.Empty(t, payload.Items[0].Error)
	assert.Equal(t, "No retrieve_id", payload.Items[1].Error)
}

func TestGetBatchResultsReportsPendingStatus(t *testing.T) {
	var itemCalls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/batches/batch_wip":
			_, _ = w.Write([]byte(`{"id":"batch_wip","status":"in_progress","total_urls":5,"completed_urls":1}`))
		default:
			itemCalls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "get_batch_results", map[string]any{"batch_id": "batch_wip"})
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Batch is still in_progress")
	assert.Contains(t, text, `"total_urls": 5`)
	assert.Zero(t, itemCalls.Load(), "pending batches must not trigger item fetches")
}

func TestScrapeWebsiteReturnsResultObject(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/scrapes", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com", body["url_to_scrape"])
		assert.Equal(t, "orbit-test", body["force_connection_id"])
		_, _ = w.Write([]byte(`{"result":{"id":"scrape_7","url":"https://example.com","markdown_content":"# hi","status":"completed"}}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "scrape_website", map[string]any{"url_to_scrape": "https://example.com"})
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, `"id": "scrape_7"`)
	assert.Contains(t, text, `"markdown_content": "# hi"`)
}

func TestGetWebpageContentReturnsRawMarkdown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"markdown_content":"# Title\n\nBody text."}}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "get_webpage_content", map[string]any{"url_to_scrape": "https://example.com"})
	assert.False(t, res.IsError)
	assert.Equal(t, "# Title\n\nBody text.", resultText(t, res))
}

func TestGetWebpageContentErrorsWithoutMarkdown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "get_webpage_content", map[string]any{"url_to_scrape": "https://example.com"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "No markdown content")
}

func TestGoogleSearchParsesJSONContent(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"parser_extract"}, body["formats"])
		assert.Equal(t, map[string]any{"parser_id": "@olostep/google-search"}, body["parser_extract"])
		target, ok := body["url_to_scrape"].(string)
		require.True(t, ok)
		assert.Contains(t, target, "www.google.com/search")
		assert.Contains(t, target, "q=golang+testing")
		assert.Contains(t, target, "gl=GB")
		_, _ = w.Write([]byte(`{"result":{"json_content":"{\"organic\":[{\"title\":\"Go\"}]}"}}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "google_search", map[string]any{"query": "golang testing", "country": "GB"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"title": "Go"`)
}

func TestGetWebsiteURLsFormatsMatches(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/maps", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(100), body["top_n"])
		_, _ = w.Write([]byte(`{"urls_count":2,"urls":["https://example.com/blog/1","https://example.com/blog/2"]}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "get_website_urls", map[string]any{"url": "https://example.com", "search_query": "blog"})
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Found 2 URLs matching your query:")
	assert.Contains(t, text, "https://example.com/blog/2")
}

func TestToolErrorSurfacesAPIError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer backend.Close()

	session := connect(t, "test-key", backend.URL)

	res := callTool(t, session, "scrape_website", map[string]any{"url_to_scrape": "https://example.com"})
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Olostep API Error: 429")
	assert.Contains(t, text, "rate limited")
}
