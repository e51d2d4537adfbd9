package cioption

import (
	"net/url"
	"strings"
)

// Remote is a parsed git remote URL.
type Remote struct {
	Host  string
	Owner string
	Repo  string
}

// ParseRemote understands scp-like (git@host:owner/repo.git) and URL forms
// (https://host/owner/repo.git, ssh://git@host/owner/repo).
func ParseRemote(raw string) (Remote, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Remote{}, false
	}
	var host, path string
	if !strings.Contains(raw, "://") {
		at := strings.LastIndex(raw, "@")
		rest := raw[at+1:]
		var ok bool
		host, path, ok = strings.Cut(rest, ":")
		if !ok {
			return Remote{}, false
		}
	} else {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return Remote{}, false
		}
		host, path = parsed.Hostname(), parsed.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	remote := Remote{Host: strings.ToLower(host)}
	if len(segments) >= 2 {
		remote.Owner = segments[len(segments)-2]
		remote.Repo = strings.TrimSuffix(segments[len(segments)-1], ".git")
	}
	return remote, remote.Host != ""
}

// RegistryHost extracts the host[:port] of a docker registry URL. Bare hosts
// are returned unchanged.
func RegistryHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		host, _, _ := strings.Cut(raw, "/")
		return strings.ToLower(host)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
