package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ctrl *ops.Controller
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctrl *ops.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// Request types for each tool

// SubmitRequest represents the arguments for council_submit.
type SubmitRequest struct {
	Problem string `json:"problem"`
	Wait    *bool  `json:"wait,omitempty"`
}

// ToggleRequest represents the arguments for council_toggle.
type ToggleRequest struct {
	PersonaID string `json:"persona_id"`
}

// FollowUpRequest represents the arguments for council_follow_up.
type FollowUpRequest struct {
	Question string `json:"question"`
}

// HistoryRequest represents the arguments for council_history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SessionRequest identifies an archived session for council_open and council_delete.
type SessionRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for council_export.
type ExportRequest struct {
	Format string `json:"format,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ArchiveExportRequest represents the arguments for council_archive_export.
type ArchiveExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for council_archive_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// HandleAdvisors handles the council_advisors tool call.
func (h *Handlers) HandleAdvisors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.ctrl.Advisors(ctx))
}

// HandleSubmit handles the council_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	view, err := h.ctrl.SubmitProblem(ctx, ops.SubmitInput{Problem: input.Problem})
	if err != nil {
		return errorResult(err), nil
	}
	if input.Wait != nil && !*input.Wait {
		return successResult(view)
	}

	if err := h.ctrl.WaitRecommendation(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.ctrl.Status(ctx))
}

// HandleToggle handles the council_toggle tool call.
func (h *Handlers) HandleToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ctrl.Toggle(ctx, ops.ToggleInput{PersonaID: input.PersonaID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBegin handles the council_begin tool call.
func (h *Handlers) HandleBegin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return viewResult(h.ctrl.BeginRoundTable(ctx))
}

// HandleFollowUp handles the council_follow_up tool call.
func (h *Handlers) HandleFollowUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FollowUpRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return viewResult(h.ctrl.FollowUp(ctx, ops.FollowUpInput{Question: input.Question}))
}

// HandleAdjust handles the council_adjust tool call.
func (h *Handlers) HandleAdjust(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return viewResult(h.ctrl.AdjustPanel(ctx))
}

// HandleReset handles the council_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.ctrl.Reset(ctx))
}

// HandleClear handles the council_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return viewResult(h.ctrl.ClearTranscript(ctx))
}

// HandleStatus handles the council_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.ctrl.Status(ctx))
}

// HandleHistory handles the council_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return successResult(h.ctrl.History(ctx, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	}))
}

// HandleOpen handles the council_open tool call.
func (h *Handlers) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return viewResult(h.ctrl.OpenSession(ctx, ops.OpenInput{ID: input.ID}))
}

// HandleDelete handles the council_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ctrl.DeleteSession(ctx, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the council_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ctrl.ExportTranscript(ctx, ops.ExportInput{
		Format: input.Format,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleArchiveExport handles the council_archive_export tool call.
func (h *Handlers) HandleArchiveExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ctrl.ExportArchive(ctx, ops.ArchiveExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleArchiveImport handles the council_archive_import tool call.
func (h *Handlers) HandleArchiveImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ctrl.ImportArchive(ctx, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

func viewResult(view *ops.View, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(view)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.CouncilError
	if stderrors.As(err, &cErr) {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		if cErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
