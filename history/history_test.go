package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/mailbox"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func mkEvent(typ event.Type, source, target, taskID string, minute int) *event.Event {
	ev := event.New(typ, source, target)
	ev.TaskID = taskID
	ev.Timestamp = base.Add(time.Duration(minute) * time.Minute)
	return ev
}

func writeJournal(t *testing.T, events ...*event.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	for _, ev := range events {
		line, err := ev.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if err := mailbox.AppendLine(path, line); err != nil {
			t.Fatalf("AppendLine() error = %v", err)
		}
	}
	return path
}

func loadIndex(t *testing.T, path string) *Index {
	t.Helper()
	ix, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestLoad_MissingJournal(t *testing.T) {
	ix := loadIndex(t, filepath.Join(t.TempDir(), "absent.jsonl"))

	n, err := ix.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestLoad_SkipsGarbageLines(t *testing.T) {
	path := writeJournal(t,
		mkEvent(event.TypeTaskUpdate, "alpha", "", "T1", 0),
		mkEvent(event.TypeTaskClaim, "beta", "", "T2", 1),
	)
	if err := mailbox.AppendLine(path, "this is not an event"); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}

	ix := loadIndex(t, path)
	n, err := ix.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestEvents_FilterBySourceTypeAndTask(t *testing.T) {
	e0 := mkEvent(event.TypeTaskClaim, "alpha", "", "T1", 0)
	e1 := mkEvent(event.TypeTaskUpdate, "alpha", "", "T1", 1)
	e2 := mkEvent(event.TypeTaskClaim, "beta", "", "T2", 2)
	e3 := mkEvent(event.TypeAck, "coordinator", "alpha", "T1", 3)
	ix := loadIndex(t, writeJournal(t, e0, e1, e2, e3))

	got, err := ix.Events(Filter{Source: "alpha"})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != e0.ID || got[1].ID != e1.ID {
		t.Errorf("Events(source=alpha) returned %d events, want [%s %s]", len(got), e0.ID, e1.ID)
	}

	got, err = ix.Events(Filter{Type: event.TypeTaskClaim})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != e0.ID || got[1].ID != e2.ID {
		t.Errorf("Events(type=TASK_CLAIM) returned %d events, want claims in order", len(got))
	}

	got, err = ix.Events(Filter{TaskID: "T1", Type: event.TypeAck})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != e3.ID {
		t.Errorf("Events(task=T1, type=ACK) returned %d events, want the ack", len(got))
	}

	got, err = ix.Events(Filter{Target: "alpha"})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != e3.ID {
		t.Errorf("Events(target=alpha) returned %d events, want 1", len(got))
	}
}

func TestEvents_SinceAndLimit(t *testing.T) {
	e0 := mkEvent(event.TypeInfo, "alpha", "", "", 0)
	e1 := mkEvent(event.TypeInfo, "alpha", "", "", 5)
	e2 := mkEvent(event.TypeInfo, "alpha", "", "", 10)
	ix := loadIndex(t, writeJournal(t, e0, e1, e2))

	got, err := ix.Events(Filter{Since: base.Add(5 * time.Minute)})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != e1.ID {
		t.Errorf("Events(since=+5m) returned %d events, want 2 starting at %s", len(got), e1.ID)
	}

	got, err = ix.Events(Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != e0.ID || got[1].ID != e1.ID {
		t.Errorf("Events(limit=2) returned %d events, want the two oldest", len(got))
	}
}

func TestTail_ChronologicalOrder(t *testing.T) {
	e0 := mkEvent(event.TypeInfo, "alpha", "", "", 0)
	e1 := mkEvent(event.TypeInfo, "beta", "", "", 1)
	e2 := mkEvent(event.TypeInfo, "gamma", "", "", 2)
	ix := loadIndex(t, writeJournal(t, e0, e1, e2))

	got, err := ix.Tail(2)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tail(2) returned %d events, want 2", len(got))
	}
	if got[0].ID != e1.ID || got[1].ID != e2.ID {
		t.Errorf("Tail(2) = [%s %s], want [%s %s]", got[0].ID, got[1].ID, e1.ID, e2.ID)
	}
}

func TestCountByType(t *testing.T) {
	ix := loadIndex(t, writeJournal(t,
		mkEvent(event.TypeTaskClaim, "alpha", "", "T1", 0),
		mkEvent(event.TypeTaskClaim, "beta", "", "T2", 1),
		mkEvent(event.TypeBlocker, "alpha", "", "T1", 2),
	))

	counts, err := ix.CountByType()
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}
	if counts[event.TypeTaskClaim] != 2 {
		t.Errorf("CountByType()[TASK_CLAIM] = %d, want 2", counts[event.TypeTaskClaim])
	}
	if counts[event.TypeBlocker] != 1 {
		t.Errorf("CountByType()[BLOCKER] = %d, want 1", counts[event.TypeBlocker])
	}
}

func TestEvents_PreservesPayloadAndAckFlag(t *testing.T) {
	ev := mkEvent(event.TypeTaskUpdate, "alpha", "", "T1", 0)
	ev.Payload = map[string]any{"status": "done", "note": "all checks green"}
	ev.RequiresAck = true
	ix := loadIndex(t, writeJournal(t, ev))

	got, err := ix.Events(Filter{})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Events() returned %d events, want 1", len(got))
	}
	if s := got[0].PayloadString("status"); s != "done" {
		t.Errorf("PayloadString(status) = %q, want %q", s, "done")
	}
	if s := got[0].PayloadString("note"); s != "all checks green" {
		t.Errorf("PayloadString(note) = %q, want %q", s, "all checks green")
	}
	if !got[0].RequiresAck {
		t.Error("RequiresAck not preserved through the index")
	}
}
