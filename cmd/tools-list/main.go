package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/olostep/olostep-mcp-go/internal/mcp"
)

// Prints the registered tool catalog by running the server over in-memory
// transports. Works without an API key: listing is never credentialed.
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	config := &mcp.Config{
		Server: mcp.ServerConfig{Name: "olostep", Version: "1.0.0"},
		API:    mcp.APIConfig{Key: os.Getenv("OLOSTEP_API_KEY")},
	}
	server, err := mcp.NewServer(config, logger)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	clientTransport, serverTransport := gomcp.NewInMemoryTransports()
	go func() {
		if err := server.Run(ctx, serverTransport); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	client := gomcp.NewClient(&gomcp.Implementation{Name: "tools-list-client", Version: "v1"}, nil)
	session, err := client.Connect(ctx, clientTransport)
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, &gomcp.ListToolsParams{})
	if err != nil {
		log.Fatalf("list tools failed: %v", err)
	}

	fmt.Printf("Tools (%d)\n", len(res.Tools))
	for _, t := range res.Tools {
		fmt.Printf("- %s: %s\n", t.Name, t.Description)
		if t.InputSchema != nil {
			b, err := json.MarshalIndent(t.InputSchema, "  ", "  ")
			if err != nil {
				fmt.Printf("  Input schema: <failed to marshal: %v>\n", err)
			} else {
				fmt.Printf("  Input schema:\n%s\n", string(b))
			}
		} else {
			fmt.Println("  Input schema: <none>")
		}
	}
}
