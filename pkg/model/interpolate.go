package model

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// maxInterpolationDepth bounds nested expansion; self-referencing properties
// stay unexpanded once it is reached.
const maxInterpolationDepth = 10

// interpolator expands ${...} references. Lookup order: project.* model
// fields, env.* system keys, user properties, model properties, system
// properties.
type interpolator struct {
	d      *Descriptor
	system map[string]string
	user   map[string]string
}

func (in interpolator) lookup(key string) (string, bool) {
	if field, ok := strings.CutPrefix(key, "project."); ok {
		return in.projectField(field)
	}
	if field, ok := strings.CutPrefix(key, "pom."); ok {
		return in.projectField(field)
	}
	if strings.HasPrefix(key, "env.") {
		value, ok := in.system[key]
		return value, ok
	}
	if value, ok := in.user[key]; ok {
		return value, true
	}
	if value, ok := in.d.Properties.Get(key); ok {
		return value, true
	}
	value, ok := in.system[key]
	return value, ok
}

func (in interpolator) projectField(field string) (string, bool) {
	d := in.d
	switch field {
	case "groupId":
		return d.GroupID, true
	case "artifactId":
		return d.ArtifactID, true
	case "version":
		return d.Version, true
	case "packaging":
		return d.Packaging, true
	case "name":
		return d.Name, true
	case "basedir":
		return d.Basedir(), d.File != ""
	case "parent.groupId":
		if d.Parent != nil {
			return d.Parent.GroupID, true
		}
	case "parent.artifactId":
		if d.Parent != nil {
			return d.Parent.ArtifactID, true
		}
	case "parent.version":
		if d.Parent != nil {
			return d.Parent.Version, true
		}
	}
	return "", false
}

func (in interpolator) expand(value string) string {
	for range maxInterpolationDepth {
		if !strings.Contains(value, "${") {
			return value
		}
		next := placeholder.ReplaceAllStringFunc(value, func(match string) string {
			key := match[2 : len(match)-1]
			if resolved, ok := in.lookup(key); ok {
				return resolved
			}
			return match
		})
		if next == value {
			return value
		}
		value = next
	}
	return value
}

// apply interpolates d in place.
func (in interpolator) apply() {
	d := in.d
	for _, key := range d.Properties.Keys() {
		value, _ := d.Properties.Get(key)
		d.Properties.Set(key, in.expand(value))
	}
	d.GroupID = in.expand(d.GroupID)
	d.Version = in.expand(d.Version)
	d.Name = in.expand(d.Name)
	d.Packaging = in.expand(d.Packaging)
	for i, module := range d.Modules {
		d.Modules[i] = in.expand(module)
	}
	for i := range d.Repositories {
		d.Repositories[i].URL = in.expand(d.Repositories[i].URL)
	}
	for _, profile := range d.Profiles {
		for _, key := range profile.Properties.Keys() {
			value, _ := profile.Properties.Get(key)
			profile.Properties.Set(key, in.expand(value))
		}
	}
}
