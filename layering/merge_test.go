package layering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLayersStrongestWins(t *testing.T) {
	merged := MergeLayers(
		map[string]string{"docker.registry.url": "https://docker.io/v2/"},
		nil,
		map[string]string{"docker.registry.url": "https://mirror.local/v2/", "fast": "true"},
	)

	assert.Equal(t, map[string]string{
		"docker.registry.url": "https://docker.io/v2/",
		"fast":                "true",
	}, merged)
}

func TestMergeLayersZeroInput(t *testing.T) {
	assert.Empty(t, MergeLayers())
}

func TestFillAbsentNeverOverwrites(t *testing.T) {
	dst := map[string]string{"a": "1"}
	added := FillAbsent(dst, map[string]string{"a": "2", "c": "3", "b": "4"})

	assert.Equal(t, []string{"b", "c"}, added)
	assert.Equal(t, "1", dst["a"])
	assert.Equal(t, "3", dst["c"])
}

func TestShadowedReportsLosingValues(t *testing.T) {
	shadowed := Shadowed(
		map[string]string{"a": "strong", "b": "same"},
		map[string]string{"a": "weak", "b": "same", "c": "only-weak"},
	)
	assert.Equal(t, map[string]string{"a": "weak"}, shadowed)
}
