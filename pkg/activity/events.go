package activity

import (
	"strings"
	"time"
)

// Verbs emitted by a build session.
const (
	VerbActivationFailed = "profile.activation.failed"
	VerbProfileActivated = "profile.activated"
	VerbOptionsResolved  = "options.resolved"
	VerbVersionRejected  = "project.version.rejected"
)

// ActivationEventInput identifies one profile evaluation.
type ActivationEventInput struct {
	ProfileID  string
	Activator  string
	Project    string
	Descriptor string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildActivationFailedEvent describes a predicate that raised an error.
func BuildActivationFailedEvent(input ActivationEventInput) Event {
	event := activationEvent(VerbActivationFailed, input)
	event.Severity = SeverityError
	if input.Err != nil {
		event.Message = input.Err.Error()
	}
	return event
}

// BuildProfileActivatedEvent describes a profile found active.
func BuildProfileActivatedEvent(input ActivationEventInput) Event {
	return activationEvent(VerbProfileActivated, input)
}

func activationEvent(verb string, input ActivationEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = setIfPresent(metadata, "activator", input.Activator)
	metadata = setIfPresent(metadata, "project", input.Project)
	metadata = setIfPresent(metadata, "descriptor", input.Descriptor)
	return Event{
		Verb:       verb,
		ObjectType: "profile",
		ObjectID:   strings.TrimSpace(input.ProfileID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildOptionsResolvedEvent summarises a batch option pass of session.
func BuildOptionsResolvedEvent(session string, resolved int, absent []string) Event {
	metadata := map[string]any{"resolved": resolved}
	if len(absent) > 0 {
		metadata["absent"] = append([]string(nil), absent...)
	}
	return Event{
		Verb:       VerbOptionsResolved,
		ObjectType: "session",
		ObjectID:   session,
		Metadata:   metadata,
	}
}

// BuildVersionRejectedEvent describes a project version that breaks the
// branch naming rules. strict selects the error severity.
func BuildVersionRejectedEvent(project, ref, version string, err error, strict bool) Event {
	severity := SeverityWarning
	if strict {
		severity = SeverityError
	}
	event := Event{
		Verb:       VerbVersionRejected,
		ObjectType: "project",
		ObjectID:   project,
		Severity:   severity,
		Metadata:   map[string]any{"ref": ref, "version": version},
	}
	if err != nil {
		event.Message = err.Error()
	}
	return event
}

func setIfPresent(meta map[string]any, key, value string) map[string]any {
	value = strings.TrimSpace(value)
	if value == "" {
		return meta
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta[key] = value
	return meta
}
