package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

// Resolver locates the descriptor file of an artifact.
type Resolver interface {
	Resolve(ctx context.Context, coords Coordinates, repos []Repository) (string, error)
}

var ErrNotInRepositories = errors.New("model: descriptor not found in repositories")

// RepositoryResolver looks up descriptors in a local repository and downloads
// missing ones from the declared remote repositories into it.
type RepositoryResolver struct {
	local  string
	client *http.Client
	logger opts.Logger
}

type ResolverOption func(*RepositoryResolver)

func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *RepositoryResolver) {
		r.client = client
	}
}

func WithResolverLogger(logger opts.Logger) ResolverOption {
	return func(r *RepositoryResolver) {
		r.logger = logger
	}
}

func NewRepositoryResolver(local string, options ...ResolverOption) *RepositoryResolver {
	r := &RepositoryResolver{local: local}
	for _, option := range options {
		option(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: 30 * time.Second}
	}
	r.logger = opts.LoggerOrNop(r.logger)
	return r
}

// DefaultLocalRepository returns ~/.m2/repository.
func DefaultLocalRepository() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".m2", "repository")
	}
	return filepath.Join(home, ".m2", "repository")
}

func (r *RepositoryResolver) Resolve(ctx context.Context, coords Coordinates, repos []Repository) (string, error) {
	if !coords.Complete() {
		return "", fmt.Errorf("model: incomplete coordinates %s", coords)
	}
	target := filepath.Join(r.local, filepath.FromSlash(coords.Path()))
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	var errs []error
	for _, repo := range repos {
		if repo.URL == "" {
			continue
		}
		url := strings.TrimSuffix(repo.URL, "/") + "/" + coords.Path()
		found, err := r.download(ctx, url, target)
		if err != nil {
			r.logger.Debug("descriptor download failed", "repository", repo.ID, "url", url, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", repo.ID, err))
			continue
		}
		if found {
			r.logger.Debug("descriptor downloaded", "repository", repo.ID, "coordinates", coords.String())
			return target, nil
		}
	}
	return "", errors.Join(append([]error{fmt.Errorf("%w: %s", ErrNotInRepositories, coords)}, errs...)...)
}

// download fetches url into target. A 404 is reported as not found rather
// than as an error.
func (r *RepositoryResolver) download(ctx context.Context, url, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	return true, os.Rename(tmp.Name(), target)
}
