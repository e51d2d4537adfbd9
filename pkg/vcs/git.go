package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

// GitProvider reads facts by running "git -C <dir> ...".
type GitProvider struct {
	dir    string
	binary string
}

// NewGitProvider targets the repository containing dir.
func NewGitProvider(dir string) *GitProvider {
	return &GitProvider{dir: dir, binary: "git"}
}

// Dir returns the repository directory.
func (p *GitProvider) Dir() string {
	return p.dir
}

// Run executes a git command and returns trimmed stdout. Stderr is included
// in the error on failure.
func (p *GitProvider) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", p.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, p.binary, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), p.dir, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Facts collects what git knows about the checkout. Individual lookups that
// fail leave their field empty; an error is returned only when none succeed.
func (p *GitProvider) Facts(ctx context.Context) (opts.Facts, error) {
	var facts opts.Facts
	var firstErr error
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if ref, err := p.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD"); err != nil {
		record(err)
	} else if ref != "HEAD" {
		facts.RefName = NormalizeRef(ref)
	}
	if commit, err := p.Run(ctx, "rev-parse", "HEAD"); err != nil {
		record(err)
	} else {
		facts.CommitID = commit
	}
	if remote, err := p.Run(ctx, "config", "--get", "remote.origin.url"); err != nil {
		record(err)
	} else {
		facts.RemoteURL = remote
	}

	if facts == (opts.Facts{}) && firstErr != nil {
		return facts, firstErr
	}
	return facts, nil
}

// NormalizeRef strips refs/heads/, refs/tags/, refs/remotes/<remote>/ and
// origin/ prefixes from a ref name.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		return strings.TrimPrefix(ref, "refs/heads/")
	case strings.HasPrefix(ref, "refs/tags/"):
		return strings.TrimPrefix(ref, "refs/tags/")
	case strings.HasPrefix(ref, "refs/remotes/"):
		rest := strings.TrimPrefix(ref, "refs/remotes/")
		if _, branch, ok := strings.Cut(rest, "/"); ok {
			return branch
		}
		return rest
	case strings.HasPrefix(ref, "origin/"):
		return strings.TrimPrefix(ref, "origin/")
	default:
		return ref
	}
}
