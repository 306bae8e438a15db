package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// Transcript export formats.
const (
	FormatText = "text"
	FormatHTML = "html"
)

// ExportInput contains parameters for the ExportTranscript operation.
type ExportInput struct {
	Format string // "text" (default) or "html"
	Path   string // optional, default: ~/.council/exports/council-<session>-<timestamp>.<ext>
}

// ExportOutput contains the result of the ExportTranscript operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Messages   int    `json:"messages"`
	ExportedAt int64  `json:"exported_at"`
}

// Rendered is a transcript document held in memory.
type Rendered struct {
	Format      string
	ContentType string
	Filename    string
	Body        []byte
	Messages    int
}

// RenderTranscript formats the active transcript without touching the disk.
func (c *Controller) RenderTranscript(ctx context.Context, format string) (*Rendered, error) {
	format, ext, contentType, err := resolveFormat(format)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	problem := c.slot.Problem()
	transcript := c.slot.Transcript()
	sessionID := c.slot.SessionID()
	c.mu.Unlock()

	if len(transcript) == 0 {
		return nil, errors.NewInvalidRequest("transcript is empty; nothing to export")
	}

	now := c.now()
	var body string
	switch format {
	case FormatHTML:
		body, err = renderTranscriptHTML(problem, transcript, c.registry.Name, now)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
	default:
		body = session.FormatText(problem, transcript, c.registry.Name, now)
	}

	return &Rendered{
		Format:      format,
		ContentType: contentType,
		Filename:    exportFilename(sessionID, now, ext),
		Body:        []byte(body),
		Messages:    len(transcript),
	}, nil
}

// ExportTranscript writes the active transcript to a file.
func (c *Controller) ExportTranscript(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	doc, err := c.RenderTranscript(ctx, input.Format)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		dir, err := exportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, doc.Filename)
	}

	// Validate ALL paths (both user-provided and default)
	if err := checkFilePath(exportPath, accessWrite, filepath.Ext(doc.Filename), c.cfg); err != nil {
		return nil, err
	}

	if err := writeFileAtomic(exportPath, func(w io.Writer) error {
		_, err := w.Write(doc.Body)
		return err
	}); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Format:     doc.Format,
		Messages:   doc.Messages,
		ExportedAt: c.now().Unix(),
	}, nil
}

func resolveFormat(format string) (name, ext, contentType string, err error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText, "txt":
		return FormatText, ExtText, "text/plain; charset=utf-8", nil
	case FormatHTML:
		return FormatHTML, ExtHTML, "text/html; charset=utf-8", nil
	default:
		return "", "", "", errors.NewInvalidRequest(fmt.Sprintf("format must be one of: %s, %s", FormatText, FormatHTML))
	}
}

// exportFilename builds council-<session>-<timestamp><ext>. The session id is
// sanitized even though ULIDs are filename-safe, since restored ids come from disk.
func exportFilename(sessionID string, now time.Time, ext string) string {
	name := "council"
	if sessionID != "" {
		name += "-" + safeFilePart(sessionID)
	}
	return fmt.Sprintf("%s-%s%s", name, now.Format("2006-01-02T150405"), ext)
}

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so an existing file is preserved if anything fails.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		if _, ok := err.(*errors.CouncilError); ok {
			return err
		}
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
