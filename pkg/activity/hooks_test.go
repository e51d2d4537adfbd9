package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " profile.activated ",
		ActorID:    " session ",
		ObjectType: " profile ",
		ObjectID:   " pom:docker ",
		Channel:    " ciopt ",
		Severity:   " Warning ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "profile.activated" || got.ObjectType != "profile" || got.ObjectID != "pom:docker" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "session" || got.Channel != "ciopt" || got.Severity != SeverityWarning {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	collector := &Collector{}
	if err := (Hooks{collector}).Notify(context.Background(), Event{Verb: "x"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(collector.Events()) != 0 {
		t.Fatalf("expected no events captured, got %d", len(collector.Events()))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	collector := &Collector{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		collector,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbProfileActivated, ObjectType: "profile", ObjectID: "pom:docker"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected a background context to be supplied")
	}
	if len(collector.Events()) != 1 {
		t.Fatalf("expected one captured event, got %d", len(collector.Events()))
	}
}

func TestEmitterAppliesDefaults(t *testing.T) {
	collector := &Collector{}
	emitter := NewEmitter(Hooks{collector}, Config{Enabled: true, ActorID: "session-1"})

	if err := emitter.Emit(context.Background(), Event{Verb: VerbOptionsResolved, ObjectType: "session", ObjectID: "session-1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := collector.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != DefaultChannel || events[0].ActorID != "session-1" {
		t.Fatalf("expected defaults applied, got %+v", events[0])
	}
}

func TestEmitterDisabled(t *testing.T) {
	collector := &Collector{}
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter must be disabled")
	}
	if err := nilEmitter.Emit(context.Background(), Event{Verb: "v", ObjectType: "t", ObjectID: "1"}); err != nil {
		t.Fatalf("nil emitter emit: %v", err)
	}
	emitter := NewEmitter(Hooks{collector}, Config{Enabled: false})
	_ = emitter.Emit(context.Background(), Event{Verb: "v", ObjectType: "t", ObjectID: "1"})
	if len(collector.Events()) != 0 {
		t.Fatalf("disabled emitter must not notify hooks")
	}
}

func TestActivationFailedEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	event := BuildActivationFailedEvent(ActivationEventInput{
		ProfileID:  "pom:docker",
		Activator:  "expression",
		Project:    "org.acme:widget",
		Descriptor: "/src/widget/pom.xml",
		Err:        errors.New("bad expression"),
		OccurredAt: at,
	})

	if event.Verb != VerbActivationFailed || event.ObjectType != "profile" || event.ObjectID != "pom:docker" {
		t.Fatalf("unexpected identity: %+v", event)
	}
	if !event.Problem() || event.Severity != SeverityError {
		t.Fatalf("expected error severity, got %q", event.Severity)
	}
	if event.Message != "bad expression" {
		t.Fatalf("expected error message, got %q", event.Message)
	}
	if event.Metadata["project"] != "org.acme:widget" || event.Metadata["activator"] != "expression" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	if !event.OccurredAt.Equal(at) {
		t.Fatalf("expected timestamp preserved")
	}
}

func TestCollectorProblems(t *testing.T) {
	collector := &Collector{}
	hooks := Hooks{collector}
	_ = hooks.Notify(context.Background(), BuildOptionsResolvedEvent("s", 3, nil))
	_ = hooks.Notify(context.Background(), BuildVersionRejectedEvent("org.acme:widget", "develop", "1.0", errors.New("mismatch"), false))

	problems := collector.Problems()
	if len(problems) != 1 {
		t.Fatalf("expected one problem, got %d", len(problems))
	}
	if problems[0].Severity != SeverityWarning || problems[0].Verb != VerbVersionRejected {
		t.Fatalf("unexpected problem %+v", problems[0])
	}
	if len(collector.Events()) != 2 {
		t.Fatalf("expected both events recorded")
	}
}
