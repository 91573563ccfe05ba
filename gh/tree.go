package gh

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"

	"dirpack/model"
)

// PathPolicy controls how tree entries are matched against the target path.
type PathPolicy string

const (
	// SegmentMatch keeps entries equal to the target or below target + "/".
	SegmentMatch PathPolicy = "segment"
	// LiteralMatch keeps entries whose path starts with the target string, so
	// "audio" also keeps "audio2/x".
	LiteralMatch PathPolicy = "literal"
)

const (
	entryBlob   = "blob"
	entryTree   = "tree"
	entryCommit = "commit"
)

// Listing is the filtered result of a recursive tree request.
type Listing struct {
	Entries []model.TreeEntry
	// Truncated is set when the API cut the recursive listing short; files
	// may be missing from Entries.
	Truncated bool
}

// ListFiles fetches the recursive tree of ref.Branch and returns the files
// under ref.TargetPath. A tree with no matching files yields an empty
// listing, not an error.
func (c *Client) ListFiles(ctx context.Context, ref model.RepositoryReference, policy PathPolicy) (*Listing, error) {
	if !ref.Resolved() {
		return nil, fmt.Errorf("%w: branch of %s is not resolved", model.ErrTreeUnavailable, ref.FullName())
	}

	tree, _, err := c.api.Git.GetTree(ctx, ref.Owner, ref.Repository, escapeRef(ref.Branch), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s@%s: %w", model.ErrTreeUnavailable, ref.FullName(), ref.Branch, err)
	}
	if tree == nil || tree.Entries == nil {
		return nil, fmt.Errorf("%w: %s@%s: %w", model.ErrTreeUnavailable, ref.FullName(), ref.Branch, errors.New("response has no tree"))
	}

	listing := &Listing{
		Entries:   c.filterEntries(ref, tree.Entries, policy),
		Truncated: tree.GetTruncated(),
	}
	if listing.Truncated {
		c.logger.Warn("tree listing was truncated by the API; some files may be missing",
			"repo", ref.FullName(), "branch", ref.Branch, "matched", len(listing.Entries))
	}
	c.logger.Debug("listed tree", "repo", ref.FullName(), "entries", len(tree.Entries), "matched", len(listing.Entries))

	return listing, nil
}

func (c *Client) filterEntries(ref model.RepositoryReference, entries []*github.TreeEntry, policy PathPolicy) []model.TreeEntry {
	files := []model.TreeEntry{}
	for _, e := range entries {
		if e == nil {
			continue
		}
		p := e.GetPath()

		switch e.GetType() {
		case entryBlob:
		case entryTree:
			continue
		case entryCommit:
			c.logger.Debug("skipping submodule", "path", p)
			continue
		default:
			c.logger.Warn("skipping tree entry with unexpected type", "path", p, "type", e.GetType())
			continue
		}

		if p == "" {
			c.logger.Warn("skipping tree entry without a path", "sha", e.GetSHA())
			continue
		}
		if !MatchesTarget(p, ref.TargetPath, policy) {
			continue
		}

		files = append(files, model.TreeEntry{
			Path:      p,
			Kind:      model.KindFile,
			RemoteURL: c.RawURL(ref, p),
			LFSURL:    c.MediaURL(ref, p),
			SHA:       e.GetSHA(),
			Size:      int64(e.GetSize()),
		})
	}
	return files
}

// escapeRef escapes each segment of a branch name. go-github formats the ref
// into the request path verbatim, so "#" or "?" would otherwise cut it short.
func escapeRef(ref string) string {
	segments := strings.Split(ref, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// MatchesTarget reports whether the repository path p falls under target.
// An empty target matches everything.
func MatchesTarget(p, target string, policy PathPolicy) bool {
	target = strings.TrimSuffix(target, "/")
	if target == "" {
		return true
	}
	if policy == LiteralMatch {
		return strings.HasPrefix(p, target)
	}
	return hasPathPrefix(p, target)
}
