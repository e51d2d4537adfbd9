// Package model reads project descriptors (pom.xml) and assembles effective
// descriptors from their parent chain.
package model

import (
	"path"
	"path/filepath"
	"strings"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

const (
	// DescriptorFile is the conventional descriptor name inside a project
	// directory.
	DescriptorFile   = "pom.xml"
	DefaultPackaging = "jar"

	// PomSource marks profiles declared in a descriptor file.
	PomSource = "pom"
	// InlineSource marks profiles that exist only in memory, e.g. from
	// settings or the command line. They never have a descriptor of their own.
	InlineSource = "inline"
)

// Coordinates identify an artifact.
type Coordinates struct {
	GroupID    string `json:"group_id" yaml:"group_id"`
	ArtifactID string `json:"artifact_id" yaml:"artifact_id"`
	Version    string `json:"version" yaml:"version"`
}

func (c Coordinates) String() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Version
}

// Complete reports whether every coordinate is set.
func (c Coordinates) Complete() bool {
	return c.GroupID != "" && c.ArtifactID != "" && c.Version != ""
}

// Path is the slash-separated repository layout path of the artifact's
// descriptor: org/acme/widget/1.0/widget-1.0.pom.
func (c Coordinates) Path() string {
	return path.Join(
		strings.ReplaceAll(c.GroupID, ".", "/"),
		c.ArtifactID,
		c.Version,
		c.ArtifactID+"-"+c.Version+".pom",
	)
}

type Parent struct {
	Coordinates
	RelativePath string
}

type Repository struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

type PropertyActivation struct {
	Name  string
	Value string
}

type FileActivation struct {
	Exists  string
	Missing string
}

// Activation is the declarative activation block of a profile. Custom
// activators recognise their marker by the property name.
type Activation struct {
	ActiveByDefault bool
	Property        *PropertyActivation
	File            *FileActivation
}

// PropertyName returns the activation property name, or "".
func (a Activation) PropertyName() string {
	if a.Property == nil {
		return ""
	}
	return a.Property.Name
}

type Profile struct {
	ID         string
	Source     string
	Activation Activation
	Properties *opts.Properties
}

// Identity is stable for the session and unique across sources.
func (p *Profile) Identity() string {
	source := p.Source
	if source == "" {
		source = PomSource
	}
	return source + ":" + p.ID
}

// Inline reports whether the profile has no descriptor of its own.
func (p *Profile) Inline() bool {
	return p.Source == InlineSource
}

// Descriptor is a raw or effective project descriptor.
type Descriptor struct {
	Coordinates
	Packaging    string
	Name         string
	Parent       *Parent
	Properties   *opts.Properties
	Modules      []string
	Profiles     []*Profile
	Repositories []Repository
	// File is the absolute path the descriptor was read from.
	File string
}

// Basedir is the directory holding the descriptor file.
func (d *Descriptor) Basedir() string {
	if d.File == "" {
		return ""
	}
	return filepath.Dir(d.File)
}

// DisplayName is groupId:artifactId, falling back to the base directory name.
func (d *Descriptor) DisplayName() string {
	if d.GroupID != "" && d.ArtifactID != "" {
		return d.GroupID + ":" + d.ArtifactID
	}
	if dir := d.Basedir(); dir != "" {
		return filepath.Base(dir)
	}
	return d.ArtifactID
}

// Profile returns the profile declared with id.
func (d *Descriptor) Profile(id string) (*Profile, bool) {
	for _, profile := range d.Profiles {
		if profile.ID == id {
			return profile, true
		}
	}
	return nil, false
}

func (d *Descriptor) clone() *Descriptor {
	out := *d
	if d.Parent != nil {
		parent := *d.Parent
		out.Parent = &parent
	}
	out.Properties = d.Properties.Clone()
	out.Modules = append([]string(nil), d.Modules...)
	out.Repositories = append([]Repository(nil), d.Repositories...)
	out.Profiles = make([]*Profile, 0, len(d.Profiles))
	for _, profile := range d.Profiles {
		p := *profile
		p.Properties = profile.Properties.Clone()
		out.Profiles = append(out.Profiles, &p)
	}
	return &out
}
