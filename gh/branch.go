package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"dirpack/model"
)

// BranchPolicy selects among several branch names that all prefix a path.
type BranchPolicy string

const (
	// LongestMatch picks the longest matching name, so "release/2.0" wins
	// over "release" for "release/2.0/docs".
	LongestMatch BranchPolicy = "longest"
	// FirstMatch picks the first matching name in API order.
	FirstMatch BranchPolicy = "first"
)

const (
	blobMarker = "blob"
	treeMarker = "tree"
)

// BranchLister returns the branch names of a repository.
type BranchLister interface {
	Branches(ctx context.Context, owner, repo string) ([]string, error)
}

type ResolveOptions struct {
	DefaultBranch string
	Policy        BranchPolicy
	Logger        hclog.Logger
}

// ResolveBranch fills in Branch, TargetPath and IsFile on ref. An empty
// sub-path resolves to the default branch without any API call; otherwise
// the branch list is fetched once and matched against the path.
func ResolveBranch(ctx context.Context, lister BranchLister, ref *model.RepositoryReference, opts ResolveOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	rest, isFile := stripMarker(ref.RawPath)
	if rest == "" {
		ref.Branch = opts.DefaultBranch
		ref.TargetPath = ""
		ref.IsFile = false
		logger.Debug("no sub-path, using default branch", "branch", ref.Branch)
		return nil
	}

	branches, err := lister.Branches(ctx, ref.Owner, ref.Repository)
	if err != nil {
		return fmt.Errorf("%w: listing branches of %s: %w", model.ErrBranchNotFound, ref.FullName(), err)
	}

	branch, ok := MatchBranch(rest, branches, opts.Policy)
	if !ok {
		return fmt.Errorf("%w: no branch of %s matches %q", model.ErrBranchNotFound, ref.FullName(), rest)
	}

	ref.Branch = branch
	ref.TargetPath = strings.TrimPrefix(strings.TrimPrefix(rest, branch), "/")
	ref.IsFile = isFile && ref.TargetPath != ""
	logger.Debug("resolved branch", "branch", ref.Branch, "target", ref.TargetPath, "file", ref.IsFile)
	return nil
}

// MatchBranch returns the branch that names the leading segments of p.
// A branch matches when p equals it or continues with "/" after it.
func MatchBranch(p string, branches []string, policy BranchPolicy) (string, bool) {
	best, found := "", false
	for _, b := range branches {
		if b == "" || !hasPathPrefix(p, b) {
			continue
		}
		if policy == FirstMatch {
			return b, true
		}
		if !found || len(b) > len(best) {
			best, found = b, true
		}
	}
	return best, found
}

// stripMarker removes a leading "blob/" or "tree/" and reports whether it
// was "blob/". A path with no marker is treated as a directory.
func stripMarker(raw string) (string, bool) {
	head, rest, _ := strings.Cut(raw, "/")
	switch head {
	case blobMarker:
		return rest, true
	case treeMarker:
		return rest, false
	default:
		return raw, false
	}
}

func hasPathPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
