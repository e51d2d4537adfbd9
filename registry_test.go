package opts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	NopLogger
	infos []string
}

func (l *recordingLogger) Info(msg interface{}, keyvals ...interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		if keyvals[i] == "property" {
			l.infos = append(l.infos, keyvals[i+1].(string))
		}
	}
}

func TestRegistryResolveMergesIntoTargets(t *testing.T) {
	registry := NewRegistry(
		Group{Origin: "ci", Options: []Option{
			&Spec{Symbol: "SITE", Property: "site", Default: Literal("false")},
			&Spec{Symbol: "FAST", Property: "fast", Default: Literal("true")},
		}},
	)
	logger := &recordingLogger{}
	ctx := NewContext(nil, map[string]string{"site": "true"}, WithLogger(logger))
	target := NewProperties(map[string]string{"fast": "false", "unrelated": "kept"})

	merged, err := registry.Resolve(ctx, target, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"fast": "true", "site": "true"}, merged.Map())
	assert.Equal(t, map[string]string{"fast": "true", "site": "true", "unrelated": "kept"}, target.Map())
	assert.Equal(t, []string{"fast", "site"}, logger.infos, "options run in name order within a group")
}

func TestRegistryAbortsOnNameMismatch(t *testing.T) {
	var evaluated bool
	registry := NewRegistry(
		Group{Origin: "ci", Options: []Option{
			&Spec{Symbol: "FAST", Property: "fast", Calculate: func(*Context) (string, bool) {
				evaluated = true
				return "true", true
			}},
		}},
		Group{Origin: "broken", Options: []Option{
			&Spec{Symbol: "DOCKER_REGISTRY", Property: "docker.registry.url"},
		}},
	)
	target := &Properties{}

	_, err := registry.Resolve(NewContext(nil, nil), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameMismatch))

	var mismatch *NameMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "DOCKER_REGISTRY", mismatch.Name)
	assert.Equal(t, "DOCKER_REGISTRY_URL", mismatch.Expected)
	assert.Equal(t, "broken", mismatch.Origin)
	assert.False(t, evaluated, "no option runs once the catalog is invalid")
	assert.Zero(t, target.Len())

	assert.Panics(t, func() { registry.MustResolve(NewContext(nil, nil)) })
}

func TestRegistryDescribeAndLookup(t *testing.T) {
	registry := NewRegistry(Group{Origin: "credential", Options: []Option{
		&Spec{Symbol: "GPG_PASSPHRASE", Property: "gpg.passphrase", Secret: true},
		&Spec{Symbol: "DOCKER_REGISTRY_USER", Property: "docker.registry.user", Description: "registry login"},
	}})

	described := registry.Describe()
	require.Len(t, described, 2)
	assert.Equal(t, "DOCKER_REGISTRY_USER", described[0].Name)
	assert.Equal(t, "registry login", described[0].Description)
	assert.Equal(t, "env.CI_OPT_GPG_PASSPHRASE", described[1].SystemPropertyName)
	assert.True(t, described[1].Secret)

	option, ok := registry.Lookup("GPG_PASSPHRASE")
	require.True(t, ok)
	assert.Equal(t, "gpg.passphrase", option.PropertyName())
	_, ok = registry.Lookup("MISSING")
	assert.False(t, ok)
}
