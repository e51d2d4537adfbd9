package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const widgetPOM = `<project>
  <groupId>org.acme</groupId>
  <artifactId>widget</artifactId>
  <version>%VERSION%</version>
  <profiles>
    <profile>
      <id>docker</id>
      <activation><property><name>ci.activation.dockerfile</name></property></activation>
    </profile>
    <profile>
      <id>fast</id>
      <activation><property><name>ci.activation.expr</name><value>properties["fast"] == "true"</value></property></activation>
    </profile>
  </profiles>
</project>`

// project writes a checkout-less project and pins the VCS facts through the
// CI_OPT_* overrides the environment provider reads.
func project(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()
	pom := bytes.ReplaceAll([]byte(widgetPOM), []byte("%VERSION%"), []byte(version))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pom.xml"), pom, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	t.Setenv("CI_OPT_GIT_REF_NAME", "develop")
	t.Setenv("CI_OPT_GIT_REMOTE_URL", "https://github.com/acme/widget.git")
	t.Setenv("CIOPT_STATE_FILE", filepath.Join(t.TempDir(), "state.yaml"))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"resolve", "activate", "check-version", "options"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
		assert.NotEmpty(t, found.Short, name)
	}
}

func TestResolveCmd(t *testing.T) {
	dir := project(t, "1.0.0-SNAPSHOT")
	out, err := run(t, "resolve", "--dir", dir, "--offline", "-D", "docker.registry.pass=hunter2", "-D", "fast")
	require.NoError(t, err)
	assert.Contains(t, out, "git.ref.name=develop\n")
	assert.Contains(t, out, "publish.channel=snapshot\n")
	assert.Contains(t, out, "fast=true\n")
	assert.Contains(t, out, "dependency.check=false\n")
	assert.Contains(t, out, "docker.registry.pass=[secure]\n")
	assert.NotContains(t, out, "hunter2")
}

func TestResolveCmdSettingsFile(t *testing.T) {
	dir := project(t, "1.0.0-SNAPSHOT")
	settingsFile := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settingsFile, []byte("output: json\nproperties:\n  site: \"true\"\n"), 0o644))

	out, err := run(t, "resolve", "--dir", dir, "--offline", "--settings", settingsFile)
	require.NoError(t, err)
	assert.Contains(t, out, `"site": "true"`)
}

func TestActivateCmd(t *testing.T) {
	dir := project(t, "1.0.0-SNAPSHOT")
	out, err := run(t, "activate", "--dir", dir, "--offline", "-o", "yaml", "-D", "fast=true")
	require.NoError(t, err)

	var report map[string][]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, map[string][]string{".": {"docker", "fast"}}, report)
}

func TestCheckVersionCmd(t *testing.T) {
	dir := project(t, "1.0.0-SNAPSHOT")
	out, err := run(t, "check-version", "--dir", dir, "--offline")
	require.NoError(t, err)
	assert.Equal(t, "version ok on develop\n", out)

	bad := project(t, "1.0.0")
	_, err = run(t, "check-version", "--dir", bad, "--offline")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitVersionMismatch, exitErr.Code)
}

func TestOptionsCmd(t *testing.T) {
	out, err := run(t, "options")
	require.NoError(t, err)
	assert.Contains(t, out, "ORIGIN")
	assert.Contains(t, out, "CI_OPT_DOCKER_REGISTRY_URL")

	out, err = run(t, "options", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"property_name": "publish.channel"`)
}

func TestInvalidDefine(t *testing.T) {
	_, err := run(t, "resolve", "-D", "=oops")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConfigError, exitErr.Code)
}

func TestResolveCmdExplain(t *testing.T) {
	dir := project(t, "1.0.0-SNAPSHOT")
	out, err := run(t, "resolve", "--dir", dir, "--offline", "--explain", "publish.channel", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"property": "publish.channel"`)
	assert.Contains(t, out, `"value": "snapshot"`)

	_, err = run(t, "resolve", "--dir", dir, "--offline", "--explain", "nope")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConfigError, exitErr.Code)
}
