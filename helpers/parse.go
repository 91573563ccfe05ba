package helpers

import (
	"fmt"
	"net/url"
	"strings"

	"dirpack/model"
)

var webHosts = map[string]bool{
	"github.com":     true,
	"www.github.com": true,
}

// ParseRepoURL splits a GitHub web URL into owner, repository and the raw
// sub-path that follows them. The branch is left unresolved.
func ParseRepoURL(urlStr string) (model.RepositoryReference, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return model.RepositoryReference{}, fmt.Errorf("%w: empty URL", model.ErrInvalidReference)
	}
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return model.RepositoryReference{}, fmt.Errorf("%w: %s: %v", model.ErrInvalidReference, urlStr, err)
	}

	host := strings.ToLower(parsedURL.Hostname())
	if !webHosts[host] {
		return model.RepositoryReference{}, fmt.Errorf(
			"%w: unsupported host %q\nExpected formats:\n"+
				"  Directory: https://github.com/owner/repo/tree/branch/path/to/dir\n"+
				"  File:      https://github.com/owner/repo/blob/branch/path/to/file.ext",
			model.ErrInvalidReference, host,
		)
	}

	segments := splitPath(parsedURL.Path)
	if len(segments) < 2 {
		return model.RepositoryReference{}, fmt.Errorf("%w: missing owner or repository in %s", model.ErrInvalidReference, urlStr)
	}

	repo := segments[1]
	rest := segments[2:]
	if len(rest) == 0 {
		repo = strings.TrimSuffix(repo, ".git")
		if repo == "" {
			return model.RepositoryReference{}, fmt.Errorf("%w: missing repository in %s", model.ErrInvalidReference, urlStr)
		}
	}

	return model.RepositoryReference{
		Owner:      segments[0],
		Repository: repo,
		RawPath:    strings.Join(rest, "/"),
	}, nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
