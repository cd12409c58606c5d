package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/maypok86/otter"
)

var (
	// ErrNotAFile indicates the path names a directory or other non-file entry.
	ErrNotAFile = errors.New("path is not a file")

	// ErrUnexpectedEncoding indicates the contents API returned something other than base64.
	ErrUnexpectedEncoding = errors.New("unexpected file encoding")

	// ErrInvalidRepo indicates a repository name not in "owner/name" form.
	ErrInvalidRepo = errors.New("invalid repository")
)

// Fetcher retrieves the contents of a file from a remote source host.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// GitHubConfig configures a GitHubFetcher.
type GitHubConfig struct {
	// Repo in "owner/name" form, e.g. "llvm/llvm-project".
	Repo string

	// Ref is a branch, tag or commit. Empty uses the default branch.
	Ref string

	// Token is sent as a bearer token.
	Token string

	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string

	// CacheSize bounds the number of files kept in memory. Zero disables caching.
	CacheSize int

	// Timeout for each request. Zero uses 30s.
	Timeout time.Duration
}

// GitHubFetcher downloads single files through the GitHub REST contents API.
type GitHubFetcher struct {
	client *github.Client
	owner  string
	name   string
	ref    string
	cache  *otter.Cache[string, []byte]
}

// NewGitHubFetcher creates a fetcher for cfg.Repo.
func NewGitHubFetcher(cfg GitHubConfig) (*GitHubFetcher, error) {
	owner, name, err := ParseRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := github.NewClient(&http.Client{Timeout: timeout})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}

	f := &GitHubFetcher{
		client: client,
		owner:  owner,
		name:   name,
		ref:    cfg.Ref,
	}

	if cfg.CacheSize > 0 {
		cache, err := otter.MustBuilder[string, []byte](cfg.CacheSize).
			Cost(func(key string, value []byte) uint32 { return 1 }).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch cache: %w", err)
		}
		f.cache = &cache
	}

	return f, nil
}

// Fetch downloads path and returns its decoded contents.
func (f *GitHubFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	key := f.cacheKey(path)

	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			return data, nil
		}
	}

	var opts *github.RepositoryContentGetOptions
	if f.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: f.ref}
	}

	file, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.name, path, opts)
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w", path, err)
	}
	if file == nil || file.GetType() != "file" {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	var data []byte
	switch enc := file.GetEncoding(); enc {
	case "base64":
		content, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		data = []byte(content)
	case "none":
		// Files over 1MB come back without inline content.
		data, err = f.download(ctx, path, opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w %q for %s", ErrUnexpectedEncoding, enc, path)
	}

	if f.cache != nil {
		f.cache.Set(key, data)
	}
	return data, nil
}

func (f *GitHubFetcher) download(ctx context.Context, path string, opts *github.RepositoryContentGetOptions) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.name, path, opts)
	if err != nil {
		return nil, fmt.Errorf("raw download of %s failed: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Repo returns the repository in "owner/name" form.
func (f *GitHubFetcher) Repo() string {
	return f.owner + "/" + f.name
}

// Close releases the cache.
func (f *GitHubFetcher) Close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

func (f *GitHubFetcher) cacheKey(path string) string {
	return fmt.Sprintf("%s/%s@%s:%s", f.owner, f.name, f.ref, path)
}

// ParseRepo splits "owner/name".
func ParseRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q (expected owner/name)", ErrInvalidRepo, repo)
	}
	return owner, name, nil
}
