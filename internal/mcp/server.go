package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/olostep/olostep-mcp-go/internal/batch"
	"github.com/olostep/olostep-mcp-go/internal/olostep"
)

// Config represents the server configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
}

// ServerConfig represents server-specific configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents Olostep API credentials and tuning
type APIConfig struct {
	Key      string        `yaml:"key"`
	OrbitKey string        `yaml:"orbitKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Server represents the MCP server using the official SDK
type Server struct {
	config       *Config
	logger       zerolog.Logger
	server       *mcp.Server
	client       *olostep.Client
	batchService *batch.Service
}

// NewServer creates a new MCP server instance using the official SDK
func NewServer(config *Config, logger zerolog.Logger) (*Server, error) {
	impl := &mcp.Implementation{
		Name:    config.Server.Name,
		Version: config.Server.Version,
	}
	mcpServer := mcp.NewServer(impl, &mcp.ServerOptions{})

	client := olostep.NewClient(olostep.Config{
		APIKey:   config.API.Key,
		OrbitKey: config.API.OrbitKey,
		BaseURL:  config.API.BaseURL,
		Timeout:  config.API.Timeout,
	}, logger)

	batchService := batch.NewService(client, batch.Config{}, logger)

	s := &Server{
		config:       config,
		logger:       logger,
		server:       mcpServer,
		client:       client,
		batchService: batchService,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available tools with the MCP server
func (s *Server) registerTools() {
	s.registerScrapeTools()
	s.registerSiteTools()
	s.registerBatchTools()
}

// Run serves MCP requests over the given transport until the client
// disconnects. Used directly by tests and cmd/tools-list.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// Start starts the MCP server using stdio transport (standard for MCP)
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().
		Str("name", s.config.Server.Name).
		Str("version", s.config.Server.Version).
		Bool("api_key_configured", s.config.API.Key != "").
		Msg("Starting MCP server")

	return s.Run(ctx, mcp.NewStdioTransport())
}
