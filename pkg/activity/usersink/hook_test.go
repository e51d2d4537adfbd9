package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsActivationFailure(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	session := uuid.New()
	event := activity.BuildActivationFailedEvent(activity.ActivationEventInput{
		ProfileID:  "pom:docker",
		Project:    "org.acme:widget",
		Err:        errors.New("unknown engine"),
		OccurredAt: now,
	})
	event.ActorID = session.String()
	event.Channel = activity.DefaultChannel

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != session {
		t.Fatalf("expected actor %s got %s", session, record.ActorID)
	}
	if record.Verb != activity.VerbActivationFailed || record.ObjectType != "profile" || record.ObjectID != "pom:docker" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != activity.DefaultChannel {
		t.Fatalf("expected channel %q got %q", activity.DefaultChannel, record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["severity"] != activity.SeverityError || record.Data["message"] != "unknown engine" {
		t.Fatalf("expected severity and message in data, got %v", record.Data)
	}
	if record.Data["project"] != "org.acme:widget" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["project"])
	}
}

func TestHookNotifyNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbOptionsResolved,
		ActorID:    "not-a-uuid",
		ObjectType: "session",
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil actor for unparseable id")
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	_ = usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "v"}); err != nil {
		t.Fatalf("nil sink must be a no-op: %v", err)
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{Verb: "v", ObjectType: "t", ObjectID: "1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
