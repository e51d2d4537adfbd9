package opts

import (
	"errors"
	"fmt"
)

// ErrNameMismatch indicates an option whose symbolic name does not derive from
// its property name. It is a defect in an option catalog.
var ErrNameMismatch = errors.New("opts: option name does not match property name")

// NameMismatchError identifies the offending option.
type NameMismatchError struct {
	Origin   string
	Name     string
	Property string
	Expected string
}

func (e *NameMismatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("opts: option %s in group %q has property %q which derives %s", e.Name, e.Origin, e.Property, e.Expected)
}

func (e *NameMismatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return ErrNameMismatch
}

// CheckName verifies DeriveName(option.PropertyName()) == option.Name().
func CheckName(origin string, option Option) error {
	expected := DeriveName(option.PropertyName())
	if expected == option.Name() {
		return nil
	}
	return &NameMismatchError{
		Origin:   origin,
		Name:     option.Name(),
		Property: option.PropertyName(),
		Expected: expected,
	}
}
