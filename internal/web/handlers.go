package web

import (
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/ops"
)

// Handlers contains HTTP route handlers for the council API.
type Handlers struct {
	ctrl   *ops.Controller
	logger *zap.Logger
}

type submitBody struct {
	Problem string `json:"problem"`
	Wait    bool   `json:"wait,omitempty"`
}

type followUpBody struct {
	Question string `json:"question"`
}

// HandleStatus handles GET /api/session.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.ctrl.Status(r.Context()))
}

// HandleSubmit handles POST /api/session/problem. The recommendation runs in
// the background; poll /api/session for analyzing=false, or pass
// "wait": true (or ?wait=1) to block on it.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[submitBody](w, r)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	view, err := h.ctrl.SubmitProblem(r.Context(), ops.SubmitInput{Problem: body.Problem})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	if !body.Wait && !parseBoolParam(r, "wait") {
		renderJSON(w, http.StatusAccepted, view)
		return
	}
	if err := h.ctrl.WaitRecommendation(r.Context()); err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, h.ctrl.Status(r.Context()))
}

// HandleToggle handles POST /api/session/toggle/{id}.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.Toggle(r.Context(), ops.ToggleInput{PersonaID: r.PathValue("id")})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleBegin handles POST /api/session/begin. It responds once every
// panel member has answered or timed out.
func (h *Handlers) HandleBegin(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.BeginRoundTable(r.Context())
	h.renderView(w, view, err)
}

// HandleFollowUp handles POST /api/session/follow-up.
func (h *Handlers) HandleFollowUp(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[followUpBody](w, r)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	view, err := h.ctrl.FollowUp(r.Context(), ops.FollowUpInput{Question: body.Question})
	h.renderView(w, view, err)
}

// HandleAdjust handles POST /api/session/adjust.
func (h *Handlers) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.AdjustPanel(r.Context())
	h.renderView(w, view, err)
}

// HandleReset handles POST /api/session/reset.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.ctrl.Reset(r.Context()))
}

// HandleClear handles POST /api/session/clear.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.ClearTranscript(r.Context())
	h.renderView(w, view, err)
}

// HandleExport returns a handler that downloads the active transcript.
func (h *Handlers) HandleExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.ctrl.RenderTranscript(r.Context(), format)
		if err != nil {
			renderError(w, h.logger, err)
			return
		}

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Body)
	}
}

// HandleAdvisors handles GET /api/advisors.
func (h *Handlers) HandleAdvisors(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.ctrl.Advisors(r.Context()))
}

// HandleHistory handles GET /api/history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.ctrl.History(r.Context(), ops.HistoryInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	}))
}

// HandleOpen handles POST /api/history/{id}/open.
func (h *Handlers) HandleOpen(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.OpenSession(r.Context(), ops.OpenInput{ID: r.PathValue("id")})
	h.renderView(w, view, err)
}

// HandleDelete handles DELETE /api/history/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.DeleteSession(r.Context(), ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

func (h *Handlers) renderView(w http.ResponseWriter, view *ops.View, err error) {
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, view)
}
