package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activation"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/cioption"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/state"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/vcs"
)

const rootPOM = `<project>
  <groupId>org.acme</groupId>
  <artifactId>root</artifactId>
  <version>%s</version>
  <packaging>pom</packaging>
  <modules>
    <module>app</module>
    <module>lib</module>
    <module>ghost</module>
  </modules>
  <profiles>
    <profile>
      <id>docker</id>
      <activation><property><name>ci.activation.dockerfile</name></property></activation>
    </profile>
  </profiles>
</project>`

const appPOM = `<project>
  <parent>
    <groupId>org.acme</groupId>
    <artifactId>root</artifactId>
    <version>%s</version>
  </parent>
  <artifactId>app</artifactId>
  <profiles>
    <profile>
      <id>docker</id>
      <activation><property><name>ci.activation.dockerfile</name></property></activation>
    </profile>
    <profile>
      <id>snapshots</id>
      <activation><property><name>ci.activation.expr</name><value>properties["publish.channel"] == "snapshot"</value></property></activation>
    </profile>
  </profiles>
</project>`

const libPOM = `<project>
  <parent>
    <groupId>org.acme</groupId>
    <artifactId>root</artifactId>
    <version>%s</version>
  </parent>
  <artifactId>lib</artifactId>
  <profiles>
    <profile>
      <id>docker</id>
      <activation><property><name>ci.activation.dockerfile</name></property></activation>
    </profile>
    <profile>
      <id>webapp</id>
      <activation><property><name>ci.activation.packaging</name><value>war</value></property></activation>
    </profile>
  </profiles>
</project>`

type recordingLogger struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (l *recordingLogger) record(level string, msg interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.messages == nil {
		l.messages = map[string][]string{}
	}
	l.messages[level] = append(l.messages[level], fmt.Sprint(msg))
}

func (l *recordingLogger) Debug(msg interface{}, _ ...interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg interface{}, _ ...interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg interface{}, _ ...interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg interface{}, _ ...interface{}) { l.record("error", msg) }

func (l *recordingLogger) at(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages[level]...)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func reactor(t *testing.T, version string) string {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "pom.xml"), fmt.Sprintf(rootPOM, version))
	write(t, filepath.Join(root, "Dockerfile"), "FROM scratch\n")
	write(t, filepath.Join(root, "app", "pom.xml"), fmt.Sprintf(appPOM, version))
	write(t, filepath.Join(root, "app", "Dockerfile"), "FROM scratch\n")
	write(t, filepath.Join(root, "lib", "pom.xml"), fmt.Sprintf(libPOM, version))
	return root
}

var developFacts = opts.Facts{
	RefName:   "develop",
	CommitID:  "0123abcd",
	RemoteURL: "git@github.com:acme/widget.git",
}

func newSession(t *testing.T, cfg Config, options ...Option) *Session {
	t.Helper()
	s, err := New(cfg, options...)
	require.NoError(t, err)
	return s
}

func TestPrepareResolvesCatalog(t *testing.T) {
	root := reactor(t, "1.0.0-SNAPSHOT")
	collector := &activity.Collector{}
	s := newSession(t, Config{
		ProjectDir: root,
		Facts:      vcs.Static(developFacts),
		Hooks:      activity.Hooks{collector},
	})

	result, err := s.Prepare(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.VersionErr)

	assert.Equal(t, "develop", result.Properties["git.ref.name"])
	assert.Equal(t, "snapshot", result.Properties["publish.channel"])
	assert.Equal(t, "true", result.Properties["check.project.version"])
	assert.Equal(t, cioption.InfrastructureOpenSource, result.Properties["infrastructure"])
	assert.Equal(t, "acme", result.Properties["github.global.repository.owner"])
	assert.Equal(t, "widget", result.Properties["github.site.repo.name"])
	assert.Equal(t, "true", result.Properties["dependency.check"])
	assert.Contains(t, result.Absent, "docker.registry")
	assert.NotContains(t, result.Absent, "git.ref.name")

	user, ok := s.Context().User.Get("publish.channel")
	assert.True(t, ok)
	assert.Equal(t, "snapshot", user)

	events := collector.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, activity.VerbOptionsResolved, last.Verb)
	assert.Equal(t, s.ID(), last.ActorID)
	assert.Equal(t, len(result.Properties), last.Metadata["resolved"])
}

func TestPrepareWarnsWithoutRef(t *testing.T) {
	logger := &recordingLogger{}
	s := newSession(t, Config{
		ProjectDir: t.TempDir(),
		Facts: vcs.ProviderFunc(func(context.Context) (opts.Facts, error) {
			return opts.Facts{}, errors.New("not a git checkout")
		}),
	}, WithLogger(logger))

	result, err := s.Prepare(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, result.Properties, "git.ref.name")
	assert.NotContains(t, result.Properties, "check.project.version")
	assert.Contains(t, logger.at("warn"), "vcs facts unavailable")
	assert.Contains(t, logger.at("warn"), "git ref name unresolved; ref based options stay absent")
}

func TestPrepareRecordsAndReusesHints(t *testing.T) {
	store := state.NewMemoryStore()
	root := reactor(t, "1.0.0-SNAPSHOT")

	first := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts), StateStore: store})
	result, err := first.Prepare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Hints)
	assert.Equal(t, []string{
		"opensource.github.global.repository.owner",
		"opensource.github.site.repo.name",
	}, result.Persisted)

	snapshot, _, ok, err := store.Load(context.Background(), state.Ref{
		Domain: DefaultHintDomain,
		Scope:  state.ProjectScope("github.com/acme/widget"),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "widget", snapshot["opensource.github.site.repo.name"])

	second := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts), StateStore: store})
	result, err = second.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"opensource.github.global.repository.owner",
		"opensource.github.site.repo.name",
	}, result.Hints)
	assert.Empty(t, result.Persisted)
}

func TestPrepareHintWinsOverRemote(t *testing.T) {
	store := state.NewMemoryStore()
	_, err := store.Save(context.Background(), state.Ref{
		Domain: DefaultHintDomain,
		Scope:  state.ProjectScope("github.com/acme/widget"),
	}, state.Snapshot{"opensource.github.site.repo.name": "widget-site"}, state.Meta{})
	require.NoError(t, err)

	s := newSession(t, Config{ProjectDir: t.TempDir(), Facts: vcs.Static(developFacts), StateStore: store})
	result, err := s.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "widget-site", result.Properties["github.site.repo.name"])
	assert.Equal(t, []string{"opensource.github.global.repository.owner"}, result.Persisted)
}

func TestPrepareVersionCheck(t *testing.T) {
	root := reactor(t, "1.0.0")

	collector := &activity.Collector{}
	lenient := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts), Hooks: activity.Hooks{collector}})
	result, err := lenient.Prepare(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, result.VersionErr, cioption.ErrVersionMismatch)
	problems := collector.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, activity.VerbVersionRejected, problems[0].Verb)
	assert.Equal(t, activity.SeverityWarning, problems[0].Severity)

	strict := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts), Strict: true})
	_, err = strict.Prepare(context.Background())
	var versionErr *cioption.VersionError
	require.ErrorAs(t, err, &versionErr)
	assert.Equal(t, "1.0.0", versionErr.Version)
}

func TestPrepareSkipsVersionCheckWhenDisabled(t *testing.T) {
	root := reactor(t, "1.0.0")
	s := newSession(t, Config{
		ProjectDir:     root,
		Facts:          vcs.Static(developFacts),
		Strict:         true,
		UserProperties: map[string]string{"check.project.version": "false"},
	})
	result, err := s.Prepare(context.Background())
	require.NoError(t, err)
	assert.NoError(t, result.VersionErr)
}

func TestNewRejectsCatalogDefects(t *testing.T) {
	registry := opts.NewRegistry(opts.Group{
		Origin:  "broken",
		Options: []opts.Option{&opts.Spec{Symbol: "FOO", Property: "bar"}},
	})
	_, err := New(Config{ProjectDir: t.TempDir()}, WithRegistry(registry))
	require.ErrorIs(t, err, opts.ErrNameMismatch)
}

func TestDiscoverReactor(t *testing.T) {
	root := reactor(t, "1.0.0-SNAPSHOT")
	dirs, err := DiscoverReactor(root)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "app"), filepath.Join(root, "lib")}, dirs)

	_, err = DiscoverReactor(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestActivateReactor(t *testing.T) {
	root := reactor(t, "1.0.0-SNAPSHOT")
	s := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts)})
	_, err := s.Prepare(context.Background())
	require.NoError(t, err)

	dirs, err := DiscoverReactor(root)
	require.NoError(t, err)
	dirs = append(dirs, filepath.Join(root, "ghost"))

	active, err := s.ActivateReactor(context.Background(), dirs)
	require.NoError(t, err)
	assert.Empty(t, active[root], "aggregators never build images")
	assert.Equal(t, []string{"docker", "snapshots"}, active[filepath.Join(root, "app")])
	assert.Empty(t, active[filepath.Join(root, "lib")])
	assert.Contains(t, active, filepath.Join(root, "ghost"))
	assert.Len(t, s.Activators(), 3)
}

func TestActivateReactorJoinsActivationErrors(t *testing.T) {
	root := reactor(t, "1.0.0-SNAPSHOT")
	write(t, filepath.Join(root, "odd", "pom.xml"), `<project>
  <groupId>org.acme</groupId><artifactId>odd</artifactId><version>1</version>
  <profiles>
    <profile>
      <id>odd</id>
      <activation><property><name>ci.activation.expr</name><value>project.artifactId</value></property></activation>
    </profile>
  </profiles>
</project>`)
	collector := &activity.Collector{}
	s := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts), Hooks: activity.Hooks{collector}})

	active, err := s.ActivateReactor(context.Background(), []string{filepath.Join(root, "odd"), filepath.Join(root, "app")})
	var activationErr *activation.ActivationError
	require.ErrorAs(t, err, &activationErr)
	assert.Equal(t, "odd", activationErr.Profile)
	assert.Equal(t, []string{"docker"}, active[filepath.Join(root, "app")])

	problems := collector.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, activity.VerbActivationFailed, problems[0].Verb)
}

func TestActivateReactorIsolatesBrokenDescriptor(t *testing.T) {
	root := reactor(t, "1.0.0-SNAPSHOT")
	broken := filepath.Join(root, "broken")
	write(t, filepath.Join(broken, "pom.xml"), `<project><artifactId>broken</artifactId>`)
	s := newSession(t, Config{ProjectDir: root, Facts: vcs.Static(developFacts)})
	_, err := s.Prepare(context.Background())
	require.NoError(t, err)
	app := filepath.Join(root, "app")

	active, err := s.ActivateReactor(context.Background(), []string{root, broken, app})
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken)
	assert.Contains(t, active, broken)
	assert.Empty(t, active[broken])
	assert.Equal(t, []string{"docker", "snapshots"}, active[app])

	active, err = s.ActivateReactor(context.Background(), []string{app})
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "snapshots"}, active[app])
}

func TestExplainUsesPreparedInputs(t *testing.T) {
	s := newSession(t, Config{
		ProjectDir:     t.TempDir(),
		Facts:          vcs.Static(developFacts),
		Environ:        []string{"CI_OPT_PUBLISH_CHANNEL=release"},
		UserProperties: map[string]string{"publish.channel": "snapshot"},
	})
	result, err := s.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "release", result.Properties["publish.channel"])

	trace, err := s.Explain("publish.channel")
	require.NoError(t, err)
	winner, ok := trace.Winner()
	require.True(t, ok)
	assert.Equal(t, "env.CI_OPT_PUBLISH_CHANNEL", winner.Key)
	assert.Equal(t, "release", trace.Value)

	trace, err = s.Explain("git.ref.name")
	require.NoError(t, err)
	winner, ok = trace.Winner()
	require.True(t, ok)
	assert.Equal(t, "develop", winner.Value)
	assert.Empty(t, winner.Key, "calculated from facts, not read from the user scope")

	_, err = s.Explain("no.such.option")
	require.ErrorIs(t, err, ErrUnknownOption)
}
