package vcs

import (
	"context"
	"strings"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

var (
	refVariables = []string{
		"CI_OPT_GIT_REF_NAME",
		"GITHUB_HEAD_REF",
		"GITHUB_REF_NAME",
		"CI_COMMIT_REF_NAME",
		"TRAVIS_BRANCH",
		"BRANCH_NAME",
		"GIT_BRANCH",
	}
	commitVariables = []string{
		"CI_OPT_GIT_COMMIT_ID",
		"GITHUB_SHA",
		"CI_COMMIT_SHA",
		"TRAVIS_COMMIT",
		"GIT_COMMIT",
	}
	remoteVariables = []string{
		"CI_OPT_GIT_REMOTE_URL",
		"CI_REPOSITORY_URL",
		"GIT_URL",
	}
)

// EnvProvider reads facts from CI environment variables.
type EnvProvider struct {
	env map[string]string
}

// NewEnvProvider uses environ (KEY=VALUE pairs, as os.Environ returns).
func NewEnvProvider(environ []string) *EnvProvider {
	env := make(map[string]string, len(environ))
	for _, pair := range environ {
		if key, value, ok := strings.Cut(pair, "="); ok {
			env[key] = value
		}
	}
	return &EnvProvider{env: env}
}

func (p *EnvProvider) Facts(context.Context) (opts.Facts, error) {
	facts := opts.Facts{
		RefName:   NormalizeRef(p.first(refVariables)),
		CommitID:  p.first(commitVariables),
		RemoteURL: p.first(remoteVariables),
	}
	if facts.RemoteURL == "" {
		server, repository := p.env["GITHUB_SERVER_URL"], p.env["GITHUB_REPOSITORY"]
		if server != "" && repository != "" {
			facts.RemoteURL = strings.TrimSuffix(server, "/") + "/" + repository + ".git"
		}
	}
	return facts, nil
}

func (p *EnvProvider) first(keys []string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(p.env[key]); value != "" {
			return value
		}
	}
	return ""
}
