package opts

import (
	"strconv"
	"strings"
)

// Facts are the read-only VCS and CI environment inputs calculated options
// derive values from. Empty fields mean the fact could not be resolved.
type Facts struct {
	RefName   string `json:"ref_name,omitempty" yaml:"ref_name,omitempty"`
	CommitID  string `json:"commit_id,omitempty" yaml:"commit_id,omitempty"`
	RemoteURL string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
}

// Context is the property store options resolve against. System holds
// externally injected values and is read before User. A Context is owned by
// the build session; options only borrow it.
type Context struct {
	System *Properties
	User   *Properties
	Facts  Facts

	logger Logger
}

// ContextOption configures a Context on creation.
type ContextOption func(*Context)

// WithFacts attaches VCS facts to the context.
func WithFacts(facts Facts) ContextOption {
	return func(ctx *Context) {
		ctx.Facts = facts
	}
}

// WithLogger sets the logger options report overrides and side effects to.
func WithLogger(logger Logger) ContextOption {
	return func(ctx *Context) {
		ctx.logger = logger
	}
}

// NewContext builds a Context holding copies of system and user.
func NewContext(system, user map[string]string, opts ...ContextOption) *Context {
	ctx := &Context{
		System: NewProperties(system),
		User:   NewProperties(user),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ctx)
		}
	}
	return ctx
}

// Logger returns the configured logger or a no-op logger.
func (c *Context) Logger() Logger {
	if c == nil || c.logger == nil {
		return NopLogger{}
	}
	return c.logger
}

// SystemEnvironment converts KEY=VALUE pairs into system scope entries keyed
// as env.KEY.
func SystemEnvironment(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		out[SystemPrefix+key] = value
	}
	return out
}

// ParseBool interprets an option value. Absent or unparseable values are false.
func ParseBool(value string, ok bool) bool {
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return parsed
}
