package cioption

import (
	"slices"
	"strings"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

// Group origins, in resolution order.
const (
	OriginInfra      = "infra"
	OriginCI         = "ci"
	OriginDocker     = "docker"
	OriginGitHub     = "github"
	OriginCredential = "credential"
	OriginBuild      = "build"
)

// Infrastructure values.
const (
	InfrastructureOpenSource = "opensource"
	InfrastructurePrivate    = "private"
)

var publicGitHosts = []string{"github.com", "gitlab.com", "bitbucket.org"}

// dockerHubHosts are the implicit default registry; a registry naming one of
// them is equivalent to no registry at all.
var dockerHubHosts = []string{"docker.io", "index.docker.io", "registry-1.docker.io", "hub.docker.com"}

// Infrastructure selects the namespace infrastructure-specific values live in.
var Infrastructure = &opts.Spec{
	Symbol:      "INFRASTRUCTURE",
	Property:    "infrastructure",
	Description: "infrastructure the build runs against; calculated from the git remote host",
	Calculate: func(ctx *opts.Context) (string, bool) {
		remote, ok := ParseRemote(ctx.Facts.RemoteURL)
		if !ok {
			return "", false
		}
		if slices.Contains(publicGitHosts, remote.Host) {
			return InfrastructureOpenSource, true
		}
		return InfrastructurePrivate, true
	},
}

var (
	GitRefName = &opts.Spec{
		Symbol:      "GIT_REF_NAME",
		Property:    "git.ref.name",
		Description: "branch or tag being built",
		Calculate: func(ctx *opts.Context) (string, bool) {
			return present(ctx.Facts.RefName)
		},
	}
	GitCommitID = &opts.Spec{
		Symbol:   "GIT_COMMIT_ID",
		Property: "git.commit.id",
		Calculate: func(ctx *opts.Context) (string, bool) {
			return present(ctx.Facts.CommitID)
		},
	}
	GitRemoteURL = &opts.Spec{
		Symbol:   "GIT_REMOTE_URL",
		Property: "git.remote.url",
		Calculate: func(ctx *opts.Context) (string, bool) {
			return present(ctx.Facts.RemoteURL)
		},
	}
	PublishChannel = &opts.Spec{
		Symbol:      "PUBLISH_CHANNEL",
		Property:    "publish.channel",
		Description: "snapshot or release; calculated from the ref name",
		Calculate: func(ctx *opts.Context) (string, bool) {
			ref, ok := GitRefName.GetValue(ctx)
			if !ok {
				return "", false
			}
			return ChannelOf(ref)
		},
	}
	CheckProjectVersion = &opts.Spec{
		Symbol:      "CHECK_PROJECT_VERSION",
		Property:    "check.project.version",
		Description: "validate the project version against the branch naming rules",
		Calculate: func(ctx *opts.Context) (string, bool) {
			ref, ok := GitRefName.GetValue(ctx)
			if !ok {
				return "", false
			}
			return boolString(KindOf(ref).constrained()), true
		},
	}
	Fast = &opts.Spec{Symbol: "FAST", Property: "fast", Default: opts.Literal("false")}
	Site = &opts.Spec{Symbol: "SITE", Property: "site", Default: opts.Literal("false")}
)

var (
	DockerRegistryURL = &opts.Spec{
		Symbol:      "DOCKER_REGISTRY_URL",
		Property:    "docker.registry.url",
		Description: "docker registry API endpoint; calculated from docker.registry",
		Calculate: func(ctx *opts.Context) (string, bool) {
			registry, ok := explicit(ctx, "docker.registry")
			if !ok || isDockerHub(registry) {
				return "", false
			}
			return "https://" + registry + "/v2/", true
		},
	}
	DockerRegistry = &opts.Spec{
		Symbol:      "DOCKER_REGISTRY",
		Property:    "docker.registry",
		Description: "docker registry host; empty for the implicit docker.io",
		Calculate: func(ctx *opts.Context) (string, bool) {
			endpoint, ok := DockerRegistryURL.GetValue(ctx)
			if !ok {
				return "", false
			}
			return present(RegistryHost(endpoint))
		},
		Adjust: func(_ *opts.Context, value string, ok bool) (string, bool) {
			if !ok || isDockerHub(value) {
				return "", false
			}
			return value, true
		},
	}
	DockerImagePrefix = &opts.Spec{
		Symbol:   "DOCKER_IMAGE_PREFIX",
		Property: "docker.image.prefix",
		Calculate: func(ctx *opts.Context) (string, bool) {
			registry, ok := DockerRegistry.GetValue(ctx)
			if !ok {
				return "", false
			}
			return registry + "/", true
		},
	}
)

var (
	GitHubGlobalRepositoryOwner = githubOption("GITHUB_GLOBAL_REPOSITORY_OWNER", "github.global.repository.owner",
		func(remote Remote) string { return remote.Owner })
	GitHubSiteRepoName = githubOption("GITHUB_SITE_REPO_NAME", "github.site.repo.name",
		func(remote Remote) string { return remote.Repo })
)

var (
	DockerRegistryUser = credential("DOCKER_REGISTRY_USER", "docker.registry.user", false)
	DockerRegistryPass = credential("DOCKER_REGISTRY_PASS", "docker.registry.pass", true)
	GPGKeyName         = credential("GPG_KEYNAME", "gpg.keyname", true)
	GPGPassphrase      = credential("GPG_PASSPHRASE", "gpg.passphrase", true)
	MavenCentralUser   = credential("MAVEN_CENTRAL_USER", "maven.central.user", false)
	MavenCentralPass   = credential("MAVEN_CENTRAL_PASS", "maven.central.pass", true)
	SonarToken         = credential("SONAR_TOKEN", "sonar.token", true)
)

var (
	DependencyCheck = &opts.Spec{
		Symbol:   "DEPENDENCY_CHECK",
		Property: "dependency.check",
		Calculate: func(ctx *opts.Context) (string, bool) {
			return boolString(!opts.ParseBool(Fast.GetValue(ctx))), true
		},
	}
	MavenOpts = &opts.Spec{Symbol: "MAVEN_OPTS", Property: "maven.opts"}
	Sonar     = &opts.Spec{
		Symbol:   "SONAR",
		Property: "sonar",
		Calculate: func(ctx *opts.Context) (string, bool) {
			_, ok := SonarToken.GetValue(ctx)
			return boolString(ok), true
		},
	}
)

// Groups returns the catalog in resolution order.
func Groups() []opts.Group {
	return []opts.Group{
		{Origin: OriginInfra, Options: []opts.Option{Infrastructure}},
		{Origin: OriginCI, Options: []opts.Option{GitRefName, GitCommitID, GitRemoteURL, PublishChannel, CheckProjectVersion, Fast, Site}},
		{Origin: OriginDocker, Options: []opts.Option{DockerRegistryURL, DockerRegistry, DockerImagePrefix}},
		{Origin: OriginGitHub, Options: []opts.Option{GitHubGlobalRepositoryOwner, GitHubSiteRepoName}},
		{Origin: OriginCredential, Options: []opts.Option{DockerRegistryUser, DockerRegistryPass, GPGKeyName, GPGPassphrase, MavenCentralUser, MavenCentralPass, SonarToken}},
		{Origin: OriginBuild, Options: []opts.Option{DependencyCheck, MavenOpts, Sonar}},
	}
}

// NewRegistry returns a registry over the full catalog.
func NewRegistry() *opts.Registry {
	return opts.NewRegistry(Groups()...)
}

// InfrastructureKey namespaces property under infra: "<infra>.<property>".
func InfrastructureKey(infra, property string) string {
	return infra + "." + property
}

// githubOption builds an option calculated from the infrastructure hint left
// by a previous session, falling back to the github.com remote URL. Once
// written, the value is recorded as a hint in the system scope.
func githubOption(symbol, property string, fromRemote func(Remote) string) *opts.Spec {
	return &opts.Spec{
		Symbol:      symbol,
		Property:    property,
		Description: "calculated from the <infrastructure>." + property + " hint or the github remote",
		Calculate: func(ctx *opts.Context) (string, bool) {
			if infra, ok := Infrastructure.GetValue(ctx); ok {
				if hint, ok := ctx.System.Get(InfrastructureKey(infra, property)); ok && hint != "" {
					return hint, true
				}
			}
			remote, ok := ParseRemote(ctx.Facts.RemoteURL)
			if !ok || remote.Host != "github.com" {
				return "", false
			}
			return present(fromRemote(remote))
		},
		AfterSet: func(ctx *opts.Context, value string) {
			infra, ok := Infrastructure.GetValue(ctx)
			if !ok {
				return
			}
			key := InfrastructureKey(infra, property)
			if added := ctx.System.FillAbsent(map[string]string{key: value}); len(added) > 0 {
				ctx.Logger().Debug("infrastructure hint recorded", "key", key, "value", value)
			}
		},
	}
}

// credential builds an option that falls back to the user property
// "<infrastructure>.<property>" so one settings file can carry credentials for
// several infrastructures.
func credential(symbol, property string, secret bool) *opts.Spec {
	return &opts.Spec{
		Symbol:   symbol,
		Property: property,
		Secret:   secret,
		Calculate: func(ctx *opts.Context) (string, bool) {
			infra, ok := Infrastructure.GetValue(ctx)
			if !ok {
				return "", false
			}
			return ctx.User.Get(InfrastructureKey(infra, property))
		},
	}
}

// explicit reads property from the system or user scope only.
func explicit(ctx *opts.Context, property string) (string, bool) {
	name := opts.DeriveName(property)
	if value, ok := ctx.System.Get(opts.SystemPropertyName(name)); ok {
		return value, true
	}
	return ctx.User.Get(property)
}

func isDockerHub(registry string) bool {
	host := RegistryHost(registry)
	return host == "" || slices.Contains(dockerHubHosts, host)
}

func present(value string) (string, bool) {
	value = strings.TrimSpace(value)
	return value, value != ""
}

func boolString(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
