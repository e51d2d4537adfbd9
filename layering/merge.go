package layering

import "sort"

// MergeLayers composes property layers ordered from strongest to weakest,
// returning a new map that keeps values from stronger layers and fills missing
// keys from weaker ones. Nil layers are skipped.
func MergeLayers(layers ...map[string]string) map[string]string {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}
	merged := make(map[string]string, size)
	for i := len(layers) - 1; i >= 0; i-- {
		for key, value := range layers[i] {
			merged[key] = value
		}
	}
	return merged
}

// FillAbsent copies entries from src into dst for keys dst does not hold yet.
// Existing keys are never overwritten. The added keys are returned sorted.
func FillAbsent(dst, src map[string]string) []string {
	if dst == nil || len(src) == 0 {
		return nil
	}
	var added []string
	for key, value := range src {
		if _, exists := dst[key]; exists {
			continue
		}
		dst[key] = value
		added = append(added, key)
	}
	sort.Strings(added)
	return added
}

// Shadowed reports, for every key of strong that also exists in weak with a
// different value, the weak value that lost.
func Shadowed(strong, weak map[string]string) map[string]string {
	out := map[string]string{}
	for key, value := range strong {
		if previous, ok := weak[key]; ok && previous != value {
			out[key] = previous
		}
	}
	return out
}
