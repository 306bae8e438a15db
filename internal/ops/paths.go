package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/errors"
)

// Extensions of the files the controller writes and reads.
const (
	ExtText  = ".txt"
	ExtHTML  = ".html"
	ExtJSONL = ".jsonl"
)

// access says whether a checked path is about to be written or read.
type access int

const (
	accessWrite access = iota // transcript export, archive export
	accessRead                // archive import
)

// exportsDir returns ~/.council/exports, where files go when no path is given.
func exportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".council", "exports"), nil
}

// exportRoots lists the directories a file may sit in: the exports directory
// plus every absolute allowed_paths entry. Symlinked roots are resolved.
func exportRoots(cfg *config.Config) ([]string, error) {
	def, err := exportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{def}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		root := filepath.Clean(c)
		if isSymlink(root) {
			resolved, err := filepath.EvalSymlinks(root)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", root, err))
			}
			root = resolved
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// checkFilePath vets a caller-supplied export or import path. The file must
// carry ext, contain no ".." element, and must not be a symlink. Unless
// allow_unsafe_paths is set it must also sit directly inside an export root,
// never in a subdirectory, so only the last element is left for O_NOFOLLOW.
func checkFilePath(path string, acc access, ext string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if hasDotDot(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if !strings.EqualFold(filepath.Ext(abs), ext) {
		return errors.NewInvalidRequest(fmt.Sprintf("path must have %s extension", ext))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkRoot(abs, cfg); err != nil {
			return err
		}
	}

	if acc == accessRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

func checkRoot(abs string, cfg *config.Config) error {
	roots, err := exportRoots(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if !slices.Contains(roots, dir) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", roots))
	}
	if isSymlink(dir) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasDotDot reports a ".." element, splitting on both separators so
// Windows-style input is caught everywhere.
func hasDotDot(path string) bool {
	elems := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(elems, "..")
}

// safeFilePart makes s usable inside a generated file name.
func safeFilePart(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '-'
		case r < 32 || r == 127:
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "..", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
