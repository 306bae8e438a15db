package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/council/internal/errors"
)

// maxBodyBytes bounds request bodies; problems and questions are short text.
const maxBodyBytes = 1 << 20

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes a structured JSON error. Internal error messages are
// logged and replaced with a generic one.
func renderError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var cErr *errors.CouncilError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}

	message := cErr.Message
	if cErr.Code == errors.ErrInternal {
		logger.Error("request failed", zap.Error(err))
		message = "an internal error occurred"
	}

	errorObj := map[string]any{
		"code":    string(cErr.Code),
		"message": message,
		"status":  cErr.Status,
	}
	if cErr.Code != errors.ErrInternal && cErr.Details != nil {
		errorObj["details"] = cErr.Details
	}
	renderJSON(w, cErr.Status, map[string]any{"error": errorObj})
}

// decodeBody decodes a JSON request body into T. An empty body yields the zero value.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil && !stderrors.Is(err, io.EOF) {
		return v, errors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return v, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
