package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/hpungsan/council/internal/errors"
	"github.com/hpungsan/council/internal/session"
)

// ArchiveSchemaVersion is written into the header line of archive exports.
const ArchiveSchemaVersion = "1.0"

// archiveRecord is one line of an archive export. The header line sets
// CouncilExport and leaves the session fields empty.
type archiveRecord struct {
	CouncilExport bool   `json:"_council_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`
	Count         int    `json:"count,omitempty"`

	*session.Session
}

// ArchiveExportInput contains parameters for the ExportArchive operation.
type ArchiveExportInput struct {
	Path string // optional, default: ~/.council/exports/council-archive-<timestamp>.jsonl
}

// ArchiveExportOutput contains the result of the ExportArchive operation.
type ArchiveExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportArchive writes every archived session to a JSONL file, newest first.
func (c *Controller) ExportArchive(ctx context.Context, input ArchiveExportInput) (*ArchiveExportOutput, error) {
	c.mu.Lock()
	archive := make([]session.Session, len(c.archive))
	for i, s := range c.archive {
		archive[i] = s.Clone()
	}
	c.mu.Unlock()

	now := c.now()
	exportPath := input.Path
	if exportPath == "" {
		dir, err := exportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, "council-archive-"+now.Format("2006-01-02T150405")+ExtJSONL)
	}

	if err := checkFilePath(exportPath, accessWrite, ExtJSONL, c.cfg); err != nil {
		return nil, err
	}

	err := writeFileAtomic(exportPath, func(w io.Writer) error {
		return writeArchive(w, archive, now.Unix())
	})
	if err != nil {
		return nil, err
	}

	return &ArchiveExportOutput{
		Path:       exportPath,
		Count:      len(archive),
		ExportedAt: now.Unix(),
	}, nil
}

func writeArchive(w io.Writer, archive []session.Session, exportedAt int64) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	header := archiveRecord{
		CouncilExport: true,
		SchemaVersion: ArchiveSchemaVersion,
		ExportedAt:    exportedAt,
		Count:         len(archive),
	}
	if err := enc.Encode(header); err != nil {
		return errors.NewInternal(err)
	}
	for i := range archive {
		if err := enc.Encode(&archive[i]); err != nil {
			return errors.NewInternal(err)
		}
	}
	return bw.Flush()
}
