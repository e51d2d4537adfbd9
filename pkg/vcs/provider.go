package vcs

import (
	"context"
	"errors"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

// Provider resolves VCS facts.
type Provider interface {
	Facts(ctx context.Context) (opts.Facts, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (opts.Facts, error)

func (f ProviderFunc) Facts(ctx context.Context) (opts.Facts, error) {
	if f == nil {
		return opts.Facts{}, nil
	}
	return f(ctx)
}

// Static returns a provider yielding fixed facts.
func Static(facts opts.Facts) Provider {
	return ProviderFunc(func(context.Context) (opts.Facts, error) { return facts, nil })
}

// Chain asks providers in order and keeps, per field, the first non-empty
// value. Errors are joined and returned only when every field stays empty.
type Chain []Provider

func (c Chain) Facts(ctx context.Context) (opts.Facts, error) {
	var facts opts.Facts
	var errs []error
	for _, provider := range c {
		if provider == nil {
			continue
		}
		found, err := provider.Facts(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if facts.RefName == "" {
			facts.RefName = found.RefName
		}
		if facts.CommitID == "" {
			facts.CommitID = found.CommitID
		}
		if facts.RemoteURL == "" {
			facts.RemoteURL = found.RemoteURL
		}
	}
	if facts == (opts.Facts{}) && len(errs) > 0 {
		return facts, errors.Join(errs...)
	}
	return facts, nil
}

// Default chains the CI environment ahead of git in dir.
func Default(environ []string, dir string) Provider {
	return Chain{NewEnvProvider(environ), NewGitProvider(dir)}
}
