package helpers

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// LocalPath maps a repository path onto saveDir. The path is cleaned as if
// rooted, so ".." segments cannot climb out of saveDir.
func LocalPath(saveDir, repoPath string) (string, error) {
	rel := filepath.FromSlash(path.Clean("/" + repoPath))[1:]
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing to write %q outside %s", repoPath, saveDir)
	}
	return filepath.Join(saveDir, rel), nil
}

// EnsureParentDir creates the directory that will hold filePath.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("error creating output folder for %s: %w", filePath, err)
	}
	return nil
}

// WriteFileAtomic streams r into a temporary file next to dst and renames it
// into place once the copy completes. On failure the temporary file is
// removed and dst is left untouched.
func WriteFileAtomic(dst string, r io.Reader) (int64, error) {
	if err := EnsureParentDir(dst); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("error creating temp file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("error closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("error setting mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("error saving file %s: %w", dst, err)
	}

	return n, nil
}
