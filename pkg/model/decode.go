package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
)

type pomXML struct {
	XMLName      xml.Name        `xml:"project"`
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Packaging    string          `xml:"packaging"`
	Name         string          `xml:"name"`
	Parent       *parentXML      `xml:"parent"`
	Properties   propertiesXML   `xml:"properties"`
	Modules      []string        `xml:"modules>module"`
	Profiles     []profileXML    `xml:"profiles>profile"`
	Repositories []repositoryXML `xml:"repositories>repository"`
}

type parentXML struct {
	GroupID      string  `xml:"groupId"`
	ArtifactID   string  `xml:"artifactId"`
	Version      string  `xml:"version"`
	RelativePath *string `xml:"relativePath"`
}

type propertiesXML struct {
	Entries []propertyXML `xml:",any"`
}

type propertyXML struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type profileXML struct {
	ID         string         `xml:"id"`
	Activation *activationXML `xml:"activation"`
	Properties propertiesXML  `xml:"properties"`
}

type activationXML struct {
	ActiveByDefault bool `xml:"activeByDefault"`
	Property        *struct {
		Name  string `xml:"name"`
		Value string `xml:"value"`
	} `xml:"property"`
	File *struct {
		Exists  string `xml:"exists"`
		Missing string `xml:"missing"`
	} `xml:"file"`
}

type repositoryXML struct {
	ID  string `xml:"id"`
	URL string `xml:"url"`
}

// ReadFile parses the descriptor at file. The returned descriptor is raw:
// nothing is inherited or interpolated.
func ReadFile(file string) (*Descriptor, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("model: parse %s: %w", abs, err)
	}
	d.File = abs
	return d, nil
}

// Decode parses a descriptor document.
func Decode(r io.Reader) (*Descriptor, error) {
	var doc pomXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	d := &Descriptor{
		Coordinates: Coordinates{
			GroupID:    strings.TrimSpace(doc.GroupID),
			ArtifactID: strings.TrimSpace(doc.ArtifactID),
			Version:    strings.TrimSpace(doc.Version),
		},
		Packaging:  strings.TrimSpace(doc.Packaging),
		Name:       strings.TrimSpace(doc.Name),
		Properties: doc.Properties.toProperties(),
	}
	if doc.Parent != nil {
		parent := &Parent{Coordinates: Coordinates{
			GroupID:    strings.TrimSpace(doc.Parent.GroupID),
			ArtifactID: strings.TrimSpace(doc.Parent.ArtifactID),
			Version:    strings.TrimSpace(doc.Parent.Version),
		}}
		if doc.Parent.RelativePath != nil {
			parent.RelativePath = strings.TrimSpace(*doc.Parent.RelativePath)
		} else {
			parent.RelativePath = "../" + DescriptorFile
		}
		d.Parent = parent
	}
	for _, module := range doc.Modules {
		d.Modules = append(d.Modules, strings.TrimSpace(module))
	}
	for _, repo := range doc.Repositories {
		d.Repositories = append(d.Repositories, Repository{
			ID:  strings.TrimSpace(repo.ID),
			URL: strings.TrimSpace(repo.URL),
		})
	}
	for _, p := range doc.Profiles {
		profile := &Profile{
			ID:         strings.TrimSpace(p.ID),
			Source:     PomSource,
			Properties: p.Properties.toProperties(),
		}
		if a := p.Activation; a != nil {
			profile.Activation.ActiveByDefault = a.ActiveByDefault
			if a.Property != nil {
				profile.Activation.Property = &PropertyActivation{
					Name:  strings.TrimSpace(a.Property.Name),
					Value: strings.TrimSpace(a.Property.Value),
				}
			}
			if a.File != nil {
				profile.Activation.File = &FileActivation{
					Exists:  strings.TrimSpace(a.File.Exists),
					Missing: strings.TrimSpace(a.File.Missing),
				}
			}
		}
		d.Profiles = append(d.Profiles, profile)
	}
	return d, nil
}

func (p propertiesXML) toProperties() *opts.Properties {
	props := &opts.Properties{}
	for _, entry := range p.Entries {
		props.Set(entry.XMLName.Local, strings.TrimSpace(entry.Value))
	}
	return props
}
