package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/olostep/olostep-mcp-go/internal/mcp"
)

func main() {
	// Stdout carries the MCP protocol; everything else goes to stderr.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Optional .env file; real deployments configure the key in the MCP
	// client config (e.g. claude_desktop_config.json).
	_ = godotenv.Load()

	apiKey := os.Getenv("OLOSTEP_API_KEY")
	if apiKey == "" {
		logger.Warn().Msg("OLOSTEP_API_KEY is not set; tool calls will return a configuration error")
	}

	config := &mcp.Config{
		Server: mcp.ServerConfig{
			Name:    "olostep",
			Version: "1.0.0",
		},
		API: mcp.APIConfig{
			Key:      apiKey,
			OrbitKey: os.Getenv("OLOSTEP_ORBIT_KEY"),
			Timeout:  90 * time.Second,
		},
	}

	server, err := mcp.NewServer(config, logger)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if err := server.Start(context.Background()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
