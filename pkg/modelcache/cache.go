// Package modelcache memoises descriptor builds and activation results for
// the lifetime of one build session.
package modelcache

import (
	"path/filepath"
	"strings"
	"sync"
)

type kind uint8

const (
	kindArtifact kind = iota + 1
	kindProfile
	kindFile
)

// Key identifies a cache entry. Keys are comparable and safe to use as map
// keys; build them with ArtifactKey or ProfileKey.
type Key struct {
	kind kind
	a, b string
	c, d string
}

// ArtifactKey identifies a descriptor by coordinates. tag separates variants
// of the same artifact, e.g. "raw" and "effective".
func ArtifactKey(groupID, artifactID, version, tag string) Key {
	return Key{
		kind: kindArtifact,
		a:    strings.TrimSpace(groupID),
		b:    strings.TrimSpace(artifactID),
		c:    strings.TrimSpace(version),
		d:    tag,
	}
}

// ProfileKey identifies a result computed for a profile against a descriptor
// file. An empty path is kept as is; other paths are cleaned.
func ProfileKey(profileID, descriptorPath string) Key {
	if descriptorPath != "" {
		descriptorPath = filepath.Clean(descriptorPath)
	}
	return Key{kind: kindProfile, a: profileID, b: descriptorPath}
}

// FileKey identifies a result derived from a file before its coordinates are
// known.
func FileKey(path, tag string) Key {
	return Key{kind: kindFile, a: filepath.Clean(path), d: tag}
}

func (k Key) String() string {
	switch k.kind {
	case kindArtifact:
		s := k.a + ":" + k.b + ":" + k.c
		if k.d != "" {
			s += "#" + k.d
		}
		return s
	case kindProfile:
		return "profile[" + k.a + "]@" + k.b
	case kindFile:
		return k.a + "#" + k.d
	default:
		return "<zero>"
	}
}

type notFound struct{}

func (notFound) String() string { return "<not found>" }

// NotFound records that a lookup was attempted and came back empty.
var NotFound any = notFound{}

// IsNotFound reports whether v is the NotFound sentinel.
func IsNotFound(v any) bool {
	_, ok := v.(notFound)
	return ok
}

// Cache is a concurrent insert-if-absent table. The zero value is ready to
// use. Entries are never evicted.
type Cache struct {
	entries sync.Map
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key Key) (any, bool) {
	return c.entries.Load(key)
}

// Put stores value unless key is already present and returns the value that
// is stored after the call. Concurrent writers for one key agree on the first.
func (c *Cache) Put(key Key, value any) any {
	actual, _ := c.entries.LoadOrStore(key, value)
	return actual
}

// Release removes key only while it still maps to value, so a claim can be
// dropped without discarding an entry stored by someone else.
func (c *Cache) Release(key Key, value any) bool {
	return c.entries.CompareAndDelete(key, value)
}

func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
