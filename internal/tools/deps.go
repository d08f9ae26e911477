// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/raphaelgruber/fieldlog/internal/service"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Store  store.Store
	Agent  *service.AgentService
	Logger *slog.Logger
}
