package opts

import (
	"encoding/json"

	"github.com/ci-and-cd/topinfra-maven-sub001/layering"
)

// Trace captures how each layer contributed to an option's resolved value.
type Trace struct {
	Option   string       `json:"option"`
	Property string       `json:"property"`
	Value    string       `json:"value,omitempty"`
	Found    bool         `json:"found"`
	Layers   []Provenance `json:"layers"`
}

// Provenance details one layer of the lookup chain.
type Provenance struct {
	Scope string `json:"scope"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
	// Shadowed marks a layer whose value lost to a stronger layer holding a
	// different value.
	Shadowed bool `json:"shadowed,omitempty"`
}

// Winner returns the strongest layer that held a value.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// Masked returns a copy with every value masked.
func (t Trace) Masked() Trace {
	out := t
	out.Value = MaskValue(t.Value)
	out.Layers = make([]Provenance, len(t.Layers))
	for i, layer := range t.Layers {
		layer.Value = MaskValue(layer.Value)
		out.Layers[i] = layer
	}
	return out
}

// ToJSON serialises the trace for logging.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// ResolveWithTrace resolves option and records every layer it consulted. The
// returned value is the option's GetValue result, so adjustments that differ
// from the winning layer are visible by comparing the two.
func ResolveWithTrace(option Option, ctx *Context) (string, bool, Trace) {
	trace := Trace{Option: option.Name(), Property: option.PropertyName()}
	for _, level := range layering.OptionChain().Ordered() {
		entry := Provenance{Scope: level.String()}
		switch level {
		case layering.LevelSystem:
			entry.Key = option.SystemPropertyName()
			entry.Value, entry.Found = ctx.System.Get(entry.Key)
		case layering.LevelUser:
			entry.Key = option.PropertyName()
			entry.Value, entry.Found = ctx.User.Get(entry.Key)
		case layering.LevelCalculated:
			entry.Value, entry.Found = option.CalculateValue(ctx)
		case layering.LevelDefault:
			entry.Value, entry.Found = option.DefaultValue()
		}
		trace.Layers = append(trace.Layers, entry)
	}
	markShadowed(trace.Layers)
	value, ok := option.GetValue(ctx)
	trace.Value, trace.Found = value, ok
	if isSecret(option) {
		trace = trace.Masked()
	}
	return value, ok, trace
}

func markShadowed(layers []Provenance) {
	winner := -1
	for i := range layers {
		if !layers[i].Found {
			continue
		}
		if winner < 0 {
			winner = i
			continue
		}
		strong := map[string]string{"value": layers[winner].Value}
		weak := map[string]string{"value": layers[i].Value}
		layers[i].Shadowed = len(layering.Shadowed(strong, weak)) > 0
	}
}
