//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/council/internal/errors"
)

// openFileNoFollow opens path for writing. Windows has no O_NOFOLLOW;
// checkFilePath rejects symlinks before this runs.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens an archive file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
