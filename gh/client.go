// Package gh talks to GitHub: the REST API for branch and tree metadata,
// and the raw and media content hosts for file bodies.
package gh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/hashicorp/go-hclog"

	"dirpack/model"
)

// branchPageSize is the largest page the branches endpoint serves. Only one
// page is requested.
const branchPageSize = 100

type ClientOptions struct {
	APIHost   string
	RawHost   string
	MediaHost string
	UserAgent string
	// Retries is the number of extra attempts made for API calls that fail
	// with a transient error. Content downloads are never retried.
	Retries    int
	HTTPClient *http.Client
	Cache      *BlobCache
	Logger     hclog.Logger
}

// Client wraps the GitHub REST client together with the raw content hosts.
type Client struct {
	api       *github.Client
	http      *http.Client
	rawHost   string
	mediaHost string
	userAgent string
	cache     *BlobCache
	logger    hclog.Logger
}

func NewClient(opts ClientOptions) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	for name, host := range map[string]string{"raw host": opts.RawHost, "media host": opts.MediaHost} {
		if host == "" {
			continue
		}
		if _, err := url.Parse(host); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, host, err)
		}
	}

	apiHTTP := &http.Client{
		Transport: newRetryTransport(base.Transport, opts.Retries, logger.Named("retry")),
		Timeout:   base.Timeout,
	}
	api := github.NewClient(apiHTTP)
	if opts.APIHost != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.APIHost, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API host %q: %w", opts.APIHost, err)
		}
		api.BaseURL = baseURL
	}
	if opts.UserAgent != "" {
		api.UserAgent = opts.UserAgent
	}

	rawHost := opts.RawHost
	if rawHost == "" {
		rawHost = "https://raw.githubusercontent.com"
	}
	mediaHost := opts.MediaHost
	if mediaHost == "" {
		mediaHost = "https://media.githubusercontent.com"
	}

	return &Client{
		api:       api,
		http:      base,
		rawHost:   rawHost,
		mediaHost: mediaHost,
		userAgent: opts.UserAgent,
		cache:     opts.Cache,
		logger:    logger,
	}, nil
}

// Branches returns the branch names of owner/repo in API order.
func (c *Client) Branches(ctx context.Context, owner, repo string) ([]string, error) {
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: branchPageSize}}
	branches, resp, err := c.api.Repositories.ListBranches(ctx, owner, repo, opts)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.NextPage != 0 {
		c.logger.Warn("branch list has more pages; only the first is used", "repo", owner+"/"+repo, "count", len(branches))
	}

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		name := b.GetName()
		if name == "" {
			c.logger.Warn("skipping branch without a name", "repo", owner+"/"+repo)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// RawURL is the address of a file body on the raw content host.
func (c *Client) RawURL(ref model.RepositoryReference, filePath string) string {
	return joinURL(c.rawHost, ref.Owner, ref.Repository, ref.Branch, filePath)
}

// MediaURL is the address of a Git LFS object behind a pointer file.
func (c *Client) MediaURL(ref model.RepositoryReference, filePath string) string {
	return joinURL(c.mediaHost, "media", ref.Owner, ref.Repository, ref.Branch, filePath)
}

func joinURL(host string, elems ...string) string {
	u, err := url.JoinPath(host, elems...)
	if err != nil {
		// Hosts are validated in NewClient.
		return strings.TrimSuffix(host, "/") + "/" + strings.Join(elems, "/")
	}
	return u
}
