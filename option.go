package opts

import "strings"

const (
	// EnvPrefix marks environment variables carrying option values.
	EnvPrefix = "CI_OPT_"
	// SystemPrefix marks system scope keys mirroring environment variables.
	SystemPrefix = "env."
)

// DeriveName maps a dotted property name onto its symbolic option name:
// uppercase with '-' and '.' replaced by '_'.
func DeriveName(propertyName string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToUpper(propertyName))
}

// EnvironmentVariableName returns the environment variable for a symbolic
// option name, adding EnvPrefix unless already present.
func EnvironmentVariableName(name string) string {
	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, EnvPrefix) {
		return upper
	}
	return EnvPrefix + upper
}

// SystemPropertyName returns the system scope key for a symbolic option name.
func SystemPropertyName(name string) string {
	return SystemPrefix + EnvironmentVariableName(name)
}

// Option is a named configuration item resolved from a Context with layered
// fallback: system scope, user scope, calculated value, default.
type Option interface {
	Name() string
	PropertyName() string
	EnvironmentVariableName() string
	SystemPropertyName() string
	DefaultValue() (string, bool)
	CalculateValue(ctx *Context) (string, bool)
	GetValue(ctx *Context) (string, bool)
	SetProperties(ctx *Context, target *Properties) (string, bool)
}

// Spec is the strategy object behind every cataloged option. Hooks are
// optional; a Spec with none of them resolves explicit values and its default.
type Spec struct {
	Symbol      string
	Property    string
	Default     *string
	Secret      bool
	Description string

	// Calculate derives a value when neither scope holds one. It must be a
	// pure function of the context.
	Calculate func(ctx *Context) (string, bool)
	// Adjust post-processes the resolved value, explicit or not. Returning
	// false drops the value.
	Adjust func(ctx *Context, value string, ok bool) (string, bool)
	// AfterSet runs once SetProperties has written value.
	AfterSet func(ctx *Context, value string)
}

// Literal returns a pointer to value, for Spec.Default.
func Literal(value string) *string {
	return &value
}

func (s *Spec) Name() string { return s.Symbol }

func (s *Spec) PropertyName() string { return s.Property }

func (s *Spec) EnvironmentVariableName() string { return EnvironmentVariableName(s.Symbol) }

func (s *Spec) SystemPropertyName() string { return SystemPropertyName(s.Symbol) }

// IsSecret reports whether values of this option are masked in logs.
func (s *Spec) IsSecret() bool { return s.Secret || IsSecretKey(s.Property) }

func (s *Spec) String() string { return s.Symbol }

func (s *Spec) DefaultValue() (string, bool) {
	if s.Default == nil {
		return "", false
	}
	return *s.Default, true
}

func (s *Spec) CalculateValue(ctx *Context) (string, bool) {
	if s.Calculate == nil {
		return "", false
	}
	return s.Calculate(ctx)
}

func (s *Spec) GetValue(ctx *Context) (string, bool) {
	value, ok := s.lookup(ctx)
	if s.Adjust != nil {
		return s.Adjust(ctx, value, ok)
	}
	return value, ok
}

func (s *Spec) lookup(ctx *Context) (string, bool) {
	if value, ok := s.explicit(ctx); ok {
		return value, true
	}
	if value, ok := s.CalculateValue(ctx); ok {
		return value, true
	}
	return s.DefaultValue()
}

func (s *Spec) explicit(ctx *Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.System.Get(s.SystemPropertyName()); ok {
		return value, true
	}
	return ctx.User.Get(s.Property)
}

// SetProperties writes the resolved value into target under PropertyName.
// An explicit value replaced by Adjust is reported as an override; nothing is
// written when the option resolves to absent.
func (s *Spec) SetProperties(ctx *Context, target *Properties) (string, bool) {
	found, explicit := s.explicit(ctx)
	value, ok := s.GetValue(ctx)
	logger := ctx.Logger()
	if !ok {
		if explicit {
			logger.Debug("option value dropped", "option", s.Symbol, "found", s.mask(found))
		}
		return "", false
	}
	if explicit && found != value {
		logger.Debug("option value overridden", "option", s.Symbol, "found", s.mask(found), "value", s.mask(value))
	}
	target.Set(s.Property, value)
	if s.AfterSet != nil {
		s.AfterSet(ctx, value)
	}
	return value, true
}

func (s *Spec) mask(value string) string {
	if s.IsSecret() {
		return MaskValue(value)
	}
	return value
}
