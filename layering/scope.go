package layering

import "slices"

// Level identifies the precedence of a property layer. Higher levels override
// lower levels when an option is resolved.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelDefault is the option's static default value.
	LevelDefault
	// LevelCalculated is a value derived from other options or VCS facts.
	LevelCalculated
	// LevelUser holds explicitly user-supplied properties.
	LevelUser
	// LevelSystem holds externally injected, environment-derived properties.
	LevelSystem
)

func (l Level) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelCalculated:
		return "calculated"
	case LevelUser:
		return "user"
	case LevelSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch value {
	case "default", "DEFAULT":
		return LevelDefault
	case "calculated", "CALCULATED":
		return LevelCalculated
	case "user", "USER":
		return LevelUser
	case "system", "SYSTEM":
		return LevelSystem
	default:
		return LevelUnknown
	}
}

// Chain describes the ordered lookup sequence from strongest to weakest.
type Chain struct {
	ordered []Level
}

// NewChain deduplicates levels, drops LevelUnknown and orders the rest from
// strongest to weakest.
func NewChain(levels ...Level) Chain {
	filtered := make([]Level, 0, len(levels))
	for _, level := range levels {
		if level == LevelUnknown || slices.Contains(filtered, level) {
			continue
		}
		filtered = append(filtered, level)
	}
	slices.SortFunc(filtered, func(a, b Level) int { return int(b) - int(a) })
	return Chain{ordered: filtered}
}

// OptionChain is the lookup order every option follows.
func OptionChain() Chain {
	return NewChain(LevelSystem, LevelUser, LevelCalculated, LevelDefault)
}

// Ordered returns the sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Level {
	return slices.Clone(c.ordered)
}

// Strongest returns the first level in the chain (LevelUnknown if empty).
func (c Chain) Strongest() Level {
	if len(c.ordered) == 0 {
		return LevelUnknown
	}
	return c.ordered[0]
}

// Weakest returns the final level in the chain (LevelUnknown if empty).
func (c Chain) Weakest() Level {
	if len(c.ordered) == 0 {
		return LevelUnknown
	}
	return c.ordered[len(c.ordered)-1]
}
