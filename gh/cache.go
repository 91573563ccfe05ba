package gh

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dirpack/helpers"
)

var errBlobMismatch = errors.New("content does not match blob sha")

// BlobCache stores downloaded files keyed by their git blob SHA so repeated
// runs can skip the network. Entries are copied, never linked, so editing a
// downloaded file cannot corrupt the cache.
type BlobCache struct {
	dir string
}

func NewBlobCache(dir string) (*BlobCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob cache %s: %w", dir, err)
	}
	return &BlobCache{dir: dir}, nil
}

// Get copies the cached blob to destPath when present.
func (c *BlobCache) Get(sha, destPath string) (bool, int64, error) {
	cachePath, ok := c.cachePath(sha)
	if !ok {
		return false, 0, nil
	}

	f, err := os.Open(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer f.Close()

	n, err := helpers.WriteFileAtomic(destPath, f)
	if err != nil {
		return false, 0, err
	}
	return true, n, nil
}

// Put stores sourcePath under sha once its content is verified to hash to
// that blob SHA. LFS objects never match their pointer SHA and are skipped.
func (c *BlobCache) Put(sha, sourcePath string) error {
	cachePath, ok := c.cachePath(sha)
	if !ok {
		return fmt.Errorf("malformed blob sha %q", sha)
	}
	if _, err := os.Stat(cachePath); err == nil {
		return nil
	}

	got, err := GitBlobSHA(sourcePath)
	if err != nil {
		return err
	}
	if got != strings.ToLower(sha) {
		return fmt.Errorf("%w: %s", errBlobMismatch, sourcePath)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = helpers.WriteFileAtomic(cachePath, f)
	return err
}

func (c *BlobCache) cachePath(sha string) (string, bool) {
	sha = strings.ToLower(sha)
	if len(sha) < 4 {
		return "", false
	}
	if _, err := hex.DecodeString(sha); err != nil {
		return "", false
	}
	return filepath.Join(c.dir, sha[:2], sha[2:4], sha), true
}

// GitBlobSHA computes the object id git assigns to the file's content.
func GitBlobSHA(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", info.Size())
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
