package gh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dirpack/helpers"
	"dirpack/model"
)

const (
	lfsPointerPrefix = "version https://git-lfs.github.com/spec/v1"
	// lfsPointerMaxSize is the largest pointer file git-lfs itself parses.
	lfsPointerMaxSize = 1024
)

// Fetch downloads task.RemoteURL into task.LocalPath. The body is written to
// a temporary file that replaces LocalPath only after the copy completes.
// Git LFS pointer files are swapped for the object behind task.LFSURL.
func (c *Client) Fetch(ctx context.Context, task model.DownloadTask) (int64, error) {
	if c.cache != nil && task.SHA != "" {
		hit, n, err := c.cache.Get(task.SHA, task.LocalPath)
		if err != nil {
			c.logger.Debug("blob cache lookup failed", "path", task.Path, "error", err)
		} else if hit {
			c.logger.Debug("served from blob cache", "path", task.Path, "sha", task.SHA)
			return n, nil
		}
	}

	resp, err := c.get(ctx, task.Path, task.RemoteURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body := bufio.NewReader(resp.Body)
	if task.LFSURL != "" && isLfsPointer(resp.ContentLength, body) {
		c.logger.Debug("resolving Git LFS pointer", "path", task.Path)
		lfsResp, err := c.get(ctx, task.Path, task.LFSURL)
		if err != nil {
			return 0, err
		}
		defer lfsResp.Body.Close()
		body = bufio.NewReader(lfsResp.Body)
	}

	src := &trackedReader{r: body}
	n, err := helpers.WriteFileAtomic(task.LocalPath, src)
	if err != nil {
		if src.err != nil {
			return n, classifyTransportError(ctx, task.Path, src.err)
		}
		return n, model.NewTaskError(model.KindIO, task.Path, err)
	}

	if c.cache != nil && task.SHA != "" {
		if err := c.cache.Put(task.SHA, task.LocalPath); err != nil {
			c.logger.Debug("not caching blob", "path", task.Path, "error", err)
		}
	}

	return n, nil
}

func (c *Client) get(ctx context.Context, filePath, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewTaskError(model.KindNetwork, filePath, fmt.Errorf("creating request: %w", err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, filePath, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, model.NewTaskError(model.KindNetwork, filePath, fmt.Errorf("HTTP %s", resp.Status))
	}
	return resp, nil
}

// isLfsPointer peeks at the body without consuming it. A pointer is at most
// lfsPointerMaxSize bytes and starts with the LFS spec line. When the length
// is unknown, as with a body the transport decompressed, the peeked bytes
// decide.
func isLfsPointer(contentLength int64, body *bufio.Reader) bool {
	if contentLength > lfsPointerMaxSize {
		return false
	}
	head, err := body.Peek(lfsPointerMaxSize + 1)
	if !errors.Is(err, io.EOF) {
		// nil means the body is larger than any pointer.
		return false
	}
	return strings.HasPrefix(string(head), lfsPointerPrefix)
}

func classifyTransportError(ctx context.Context, filePath string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return model.NewTaskError(model.KindTimeout, filePath, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return model.NewTaskError(model.KindCancelled, filePath, err)
	default:
		return model.NewTaskError(model.KindNetwork, filePath, err)
	}
}

// trackedReader remembers read errors so they can be told apart from
// errors writing to disk.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
