package opts

import (
	"sort"

	"github.com/ci-and-cd/topinfra-maven-sub001/layering"
)

// Properties is an insertion-ordered string map. Keys are unique; setting an
// existing key keeps its original position.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties copies entries into a new Properties value. Keys are inserted
// in sorted order so the result does not depend on map iteration.
func NewProperties(entries map[string]string) *Properties {
	p := &Properties{values: make(map[string]string, len(entries))}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p.Set(key, entries[key])
	}
	return p
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	value, ok := p.values[key]
	return value, ok
}

// Set stores value under key.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = map[string]string{}
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Delete removes key, reporting whether it was present.
func (p *Properties) Delete(key string) bool {
	if p == nil {
		return false
	}
	if _, exists := p.values[key]; !exists {
		return false
	}
	delete(p.values, key)
	for i, existing := range p.keys {
		if existing == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of entries.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Map returns a detached copy of the entries.
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, p.Len())
	if p == nil {
		return out
	}
	for key, value := range p.values {
		out[key] = value
	}
	return out
}

// Clone returns a deep copy preserving key order.
func (p *Properties) Clone() *Properties {
	clone := &Properties{values: make(map[string]string, p.Len())}
	if p == nil {
		return clone
	}
	for _, key := range p.keys {
		clone.Set(key, p.values[key])
	}
	return clone
}

// FillAbsent adds the entries of src whose keys are missing and returns the
// added keys. It is the only batch operation allowed to grow the system scope.
func (p *Properties) FillAbsent(src map[string]string) []string {
	current := p.Map()
	added := layering.FillAbsent(current, src)
	for _, key := range added {
		p.Set(key, current[key])
	}
	return added
}

// Merge stores every entry of src, overwriting existing keys.
func (p *Properties) Merge(src map[string]string) {
	keys := make([]string, 0, len(src))
	for key := range src {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p.Set(key, src[key])
	}
}
