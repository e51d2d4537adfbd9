package predicate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

// Function is a callable exposed to expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores functions by name. Names are case sensitive.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register stores fn under name guarding against duplicates and names that
// shadow a binding.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("predicate: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("predicate: function name must not be empty")
	}
	for _, binding := range bindingNames {
		if name == binding {
			return fmt.Errorf("predicate: function %q shadows a binding", name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("predicate: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("predicate: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("predicate: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFunctions returns the builtins. Relative paths given to fileExists
// are resolved against basedir.
//
//	fileExists(path)               bool
//	regexMatch(value, pattern)     bool, RE2 syntax
//	hasAnyPrefix(value, prefix...) bool
//	semverAtLeast(version, min)    bool, Maven -SNAPSHOT and missing v prefix accepted
func DefaultFunctions(basedir string) *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("fileExists", func(args ...any) (any, error) {
		path, err := stringArgs("fileExists", args, 1)
		if err != nil {
			return nil, err
		}
		target := path[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(basedir, target)
		}
		_, statErr := os.Stat(target)
		return statErr == nil, nil
	})
	_ = r.Register("regexMatch", func(args ...any) (any, error) {
		values, err := stringArgs("regexMatch", args, 2)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(values[1])
		if err != nil {
			return nil, fmt.Errorf("predicate: regexMatch: %w", err)
		}
		return re.MatchString(values[0]), nil
	})
	_ = r.Register("hasAnyPrefix", func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("predicate: hasAnyPrefix expects at least 2 arguments, got %d", len(args))
		}
		values, err := stringArgs("hasAnyPrefix", args, len(args))
		if err != nil {
			return nil, err
		}
		for _, prefix := range values[1:] {
			if strings.HasPrefix(values[0], prefix) {
				return true, nil
			}
		}
		return false, nil
	})
	_ = r.Register("semverAtLeast", func(args ...any) (any, error) {
		values, err := stringArgs("semverAtLeast", args, 2)
		if err != nil {
			return nil, err
		}
		version, minimum := canonicalVersion(values[0]), canonicalVersion(values[1])
		if !semver.IsValid(version) || !semver.IsValid(minimum) {
			return nil, fmt.Errorf("predicate: semverAtLeast: invalid version %q or %q", values[0], values[1])
		}
		return semver.Compare(version, minimum) >= 0, nil
	})
	return r
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func stringArgs(name string, args []any, n int) ([]string, error) {
	if len(args) != n {
		return nil, fmt.Errorf("predicate: %s expects %d arguments, got %d", name, n, len(args))
	}
	out := make([]string, n)
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("predicate: %s argument %d must be a string, got %T", name, i+1, arg)
		}
		out[i] = s
	}
	return out, nil
}
