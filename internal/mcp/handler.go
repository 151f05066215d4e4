package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
)

// Handler exposes the MCP server over streamable HTTP. userID extracts the
// authenticated user resolved by the surrounding HTTP middleware, so MCP
// calls are scoped exactly like REST calls.
func Handler(s *server.MCPServer, userID func(*http.Request) int) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithUserID(ctx, userID(r))
		}),
	)
}
