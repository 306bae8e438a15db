package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision or bad line (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeSkip    ImportMode = "skip"    // keep the existing session on collision
)

// maxImportLine bounds a single JSONL line; one line holds a whole transcript.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the ImportArchive operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the ImportArchive operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line int
	sess session.Session
}

// ImportArchive merges sessions from a JSONL archive export into the archive.
// The merged archive is ordered by UpdatedAt, newest first.
func (c *Controller) ImportArchive(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}

	if err := checkFilePath(input.Path, accessRead, ExtJSONL, c.cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.CouncilError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseArchive(file)

	c.mu.Lock()
	defer c.mu.Unlock()

	out := &ImportOutput{Errors: []ImportError{}}
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		out.Errors = parseErrors
		return out, nil
	}
	out.Errors = append(out.Errors, parseErrors...)
	out.Skipped = len(parseErrors)

	merged := make([]session.Session, len(c.archive))
	copy(merged, c.archive)

	for _, rec := range records {
		idx := slices.IndexFunc(merged, func(s session.Session) bool { return s.ID == rec.sess.ID })
		if idx < 0 {
			merged = append(merged, rec.sess)
			out.Imported++
			continue
		}

		switch input.Mode {
		case ImportModeError:
			// Abort on first collision; nothing is written
			return &ImportOutput{
				Errors: []ImportError{{
					Line:    rec.line,
					ID:      rec.sess.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("session with id %q already exists", rec.sess.ID),
				}},
			}, nil
		case ImportModeReplace:
			merged[idx] = rec.sess
			out.Imported++
		case ImportModeSkip:
			out.Skipped++
		}
	}

	if out.Imported == 0 {
		return out, nil
	}

	slices.SortStableFunc(merged, func(a, b session.Session) int {
		switch {
		case a.UpdatedAt > b.UpdatedAt:
			return -1
		case a.UpdatedAt < b.UpdatedAt:
			return 1
		}
		return 0
	})

	if err := c.store.SaveArchive(ctx, merged); err != nil {
		return nil, err
	}
	c.archive = merged
	return out, nil
}

// parseArchive reads a JSONL archive export. Invalid lines and repeated ids
// are reported rather than returned.
func parseArchive(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec archiveRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		// Skip header line
		if rec.CouncilExport {
			continue
		}

		if rec.Session == nil || rec.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}

		sess := *rec.Session
		if err := sess.Validate(); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      sess.ID,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}

		if seen[sess.ID] {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      sess.ID,
				Code:    "DUPLICATE_ID",
				Message: fmt.Sprintf("session %q appears more than once in the file", sess.ID),
			})
			continue
		}
		seen[sess.ID] = true

		if sess.SelectedIDs == nil {
			sess.SelectedIDs = []string{}
		}
		records = append(records, importRecord{line: lineNum, sess: sess})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}
