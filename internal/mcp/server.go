package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"council_advisors": {
		def:     advisorsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdvisors },
	},
	"council_submit": {
		def:     submitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmit },
	},
	"council_toggle": {
		def:     toggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleToggle },
	},
	"council_begin": {
		def:     beginToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBegin },
	},
	"council_follow_up": {
		def:     followUpToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFollowUp },
	},
	"council_adjust": {
		def:     adjustToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdjust },
	},
	"council_reset": {
		def:     resetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"council_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"council_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"council_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"council_open": {
		def:     openToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpen },
	},
	"council_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"council_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"council_archive_export": {
		def:     archiveExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveExport },
	},
	"council_archive_import": {
		def:     archiveImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveImport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the council tools registered.
// Tools listed in cfg.DisabledTools are excluded.
func NewServer(ctrl *ops.Controller, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"council",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(ctrl)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the council tools over stdio.
func Run(ctrl *ops.Controller, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(ctrl, cfg, version))
}
