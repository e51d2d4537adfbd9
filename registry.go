package opts

import (
	"fmt"
	"sort"
)

// Group is an ordered set of options sharing an origin (catalog category).
type Group struct {
	Origin  string
	Options []Option
}

// Registry resolves option groups in a fixed order. Evaluation is sequential:
// options with side effects depend on options resolved before them.
type Registry struct {
	groups []Group
}

// NewRegistry keeps groups in the given order.
func NewRegistry(groups ...Group) *Registry {
	copied := make([]Group, len(groups))
	for i, group := range groups {
		copied[i] = Group{
			Origin:  group.Origin,
			Options: append([]Option(nil), group.Options...),
		}
	}
	return &Registry{groups: copied}
}

// Groups returns the groups in resolution order, options in canonical order.
func (r *Registry) Groups() []Group {
	if r == nil {
		return nil
	}
	out := make([]Group, len(r.groups))
	for i, group := range r.groups {
		out[i] = Group{Origin: group.Origin, Options: sortedOptions(group.Options)}
	}
	return out
}

// Lookup finds an option by symbolic name.
func (r *Registry) Lookup(name string) (Option, bool) {
	for _, group := range r.Groups() {
		for _, option := range group.Options {
			if option.Name() == name {
				return option, true
			}
		}
	}
	return nil, false
}

// Validate checks the name invariant of every option.
func (r *Registry) Validate() error {
	for _, group := range r.Groups() {
		for _, option := range group.Options {
			if err := CheckName(group.Origin, option); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resolve runs SetProperties for every option and returns the merged result,
// which is also merged into each target with its values winning on key
// collision. A name invariant violation aborts the batch before any option is
// evaluated.
func (r *Registry) Resolve(ctx *Context, targets ...*Properties) (*Properties, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	logger := ctx.Logger()
	merged := &Properties{}
	for _, group := range r.Groups() {
		for _, option := range group.Options {
			value, ok := option.SetProperties(ctx, merged)
			if !ok {
				logger.Debug("option absent", "origin", group.Origin, "option", option.Name())
				continue
			}
			logger.Info("option resolved",
				"origin", group.Origin,
				"property", option.PropertyName(),
				"value", displayValue(option, value),
			)
		}
	}
	for _, target := range targets {
		if target == nil {
			continue
		}
		target.Merge(merged.Map())
	}
	return merged, nil
}

// MustResolve is Resolve for callers treating catalog defects as fatal.
func (r *Registry) MustResolve(ctx *Context, targets ...*Properties) *Properties {
	merged, err := r.Resolve(ctx, targets...)
	if err != nil {
		panic(fmt.Sprintf("opts: resolve options: %v", err))
	}
	return merged
}

// OptionDescriptor is the self-description of a cataloged option.
type OptionDescriptor struct {
	Origin                  string `json:"origin" yaml:"origin"`
	Name                    string `json:"name" yaml:"name"`
	PropertyName            string `json:"property_name" yaml:"property_name"`
	EnvironmentVariableName string `json:"environment_variable" yaml:"environment_variable"`
	SystemPropertyName      string `json:"system_property" yaml:"system_property"`
	DefaultValue            string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Secret                  bool   `json:"secret,omitempty" yaml:"secret,omitempty"`
	Description             string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Describe lists every option in resolution order.
func (r *Registry) Describe() []OptionDescriptor {
	var out []OptionDescriptor
	for _, group := range r.Groups() {
		for _, option := range group.Options {
			descriptor := OptionDescriptor{
				Origin:                  group.Origin,
				Name:                    option.Name(),
				PropertyName:            option.PropertyName(),
				EnvironmentVariableName: option.EnvironmentVariableName(),
				SystemPropertyName:      option.SystemPropertyName(),
				Secret:                  isSecret(option),
			}
			if value, ok := option.DefaultValue(); ok {
				descriptor.DefaultValue = value
			}
			if described, ok := option.(interface{ Describe() string }); ok {
				descriptor.Description = described.Describe()
			} else if spec, ok := option.(*Spec); ok {
				descriptor.Description = spec.Description
			}
			out = append(out, descriptor)
		}
	}
	return out
}

func sortedOptions(options []Option) []Option {
	sorted := make([]Option, 0, len(options))
	for _, option := range options {
		if option != nil {
			sorted = append(sorted, option)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})
	return sorted
}

func isSecret(option Option) bool {
	if secret, ok := option.(interface{ IsSecret() bool }); ok {
		return secret.IsSecret()
	}
	return IsSecretKey(option.PropertyName())
}

func displayValue(option Option, value string) string {
	if isSecret(option) {
		return MaskValue(value)
	}
	return value
}
