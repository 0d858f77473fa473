package event

import (
	"strings"
	"testing"
	"time"
)

func TestNew_PopulatesIdentity(t *testing.T) {
	ev := New(TypeTaskClaim, "alpha", "coordinator")

	if ev.ID == "" {
		t.Error("ID is empty, want generated identifier")
	}
	if len(ev.ID) != 36 {
		t.Errorf("ID length = %d, want 36 (uuid form)", len(ev.ID))
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want current time")
	}
	if ev.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", ev.Timestamp.Location())
	}
	if ev.Priority != PriorityNormal {
		t.Errorf("Priority = %q, want %q", ev.Priority, PriorityNormal)
	}

	other := New(TypeTaskClaim, "alpha", "coordinator")
	if other.ID == ev.ID {
		t.Errorf("two events share ID %q, want distinct identifiers", ev.ID)
	}
}

func TestEncode_SingleLine(t *testing.T) {
	ev := New(TypeInfo, "alpha", "beta")
	ev.Payload = map[string]any{"note": "line one\nline two"}

	line, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(line, "\n") {
		t.Errorf("encoded line contains a raw newline: %q", line)
	}

	back := Parse(line)
	if back == nil {
		t.Fatal("Parse(Encode(ev)) = nil, want event")
	}
	if back.ID != ev.ID {
		t.Errorf("round-trip ID = %q, want %q", back.ID, ev.ID)
	}
	if got := back.PayloadString("note"); got != "line one\nline two" {
		t.Errorf("round-trip payload note = %q", got)
	}
}

func TestParse_RejectsNoise(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace", "   \t  "},
		{"garbage", "this is not json"},
		{"truncated json", `{"id":"x","source":"alpha","event_ty`},
		{"json array", `["not","an","object"]`},
		{"missing source", `{"id":"x","event_type":"TASK_CLAIM","target":"coordinator"}`},
		{"missing event_type", `{"id":"x","source":"alpha","target":"coordinator"}`},
	}
	for _, tc := range cases {
		if ev := Parse(tc.line); ev != nil {
			t.Errorf("Parse(%s) = %+v, want nil", tc.name, ev)
		}
	}
}

func TestParse_ValidLine(t *testing.T) {
	line := `{"id":"e-1","timestamp":"2026-03-01T10:00:00Z","source":"alpha","target":"coordinator","event_type":"TASK_CLAIM","task_id":"T1","requires_ack":true}`

	ev := Parse(line)
	if ev == nil {
		t.Fatal("Parse returned nil for a valid line")
	}
	if ev.Type != TypeTaskClaim {
		t.Errorf("Type = %q, want %q", ev.Type, TypeTaskClaim)
	}
	if ev.Source != "alpha" || ev.Target != "coordinator" {
		t.Errorf("Source/Target = %q/%q", ev.Source, ev.Target)
	}
	if ev.TaskID != "T1" {
		t.Errorf("TaskID = %q, want T1", ev.TaskID)
	}
	if !ev.RequiresAck {
		t.Error("RequiresAck = false, want true")
	}
	if ev.Priority != PriorityNormal {
		t.Errorf("Priority = %q, want default %q", ev.Priority, PriorityNormal)
	}
}

func TestParse_EmptyTargetAddressesCoordinator(t *testing.T) {
	line := `{"id":"e-5","source":"alpha","event_type":"TASK_CLAIM","task_id":"T1"}`

	ev := Parse(line)
	if ev == nil {
		t.Fatal("Parse returned nil; a record without a target is still well formed")
	}
	if ev.Target != "" {
		t.Errorf("Target = %q, want empty", ev.Target)
	}
	if ev.Type != TypeTaskClaim {
		t.Errorf("Type = %q, want %q", ev.Type, TypeTaskClaim)
	}
}

func TestParse_UnknownTypeDegradesToInfo(t *testing.T) {
	line := `{"id":"e-2","source":"alpha","target":"all","event_type":"SHINY_NEW_THING"}`

	ev := Parse(line)
	if ev == nil {
		t.Fatal("Parse returned nil; unknown types must not be rejected")
	}
	if ev.Type != TypeInfo {
		t.Errorf("Type = %q, want %q", ev.Type, TypeInfo)
	}
}

func TestParse_TolerantOfSurroundingWhitespace(t *testing.T) {
	line := "  {\"id\":\"e-3\",\"source\":\"alpha\",\"event_type\":\"HEARTBEAT\"}\r"

	ev := Parse(line)
	if ev == nil {
		t.Fatal("Parse returned nil for a padded line")
	}
	if ev.Type != TypeHeartbeat {
		t.Errorf("Type = %q, want %q", ev.Type, TypeHeartbeat)
	}
}

func TestKnown(t *testing.T) {
	for _, typ := range []Type{TypeTaskAssign, TypeTaskClaim, TypeTaskUpdate,
		TypeBlocker, TypeRequestReview, TypeMergeReady, TypeDirective,
		TypeHeartbeat, TypeAck, TypeInfo} {
		if !Known(typ) {
			t.Errorf("Known(%q) = false, want true", typ)
		}
	}
	if Known("task_claim") {
		t.Error(`Known("task_claim") = true; types are case-sensitive`)
	}
	if Normalize("task_claim") != TypeInfo {
		t.Errorf(`Normalize("task_claim") = %q, want INFO`, Normalize("task_claim"))
	}
}

func TestPayloadAccessors(t *testing.T) {
	ev := New(TypeAck, "coordinator", "alpha")
	ev.Payload = map[string]any{"accepted": true, "reason": "ok", "count": 3}

	if !ev.PayloadBool("accepted") {
		t.Error(`PayloadBool("accepted") = false, want true`)
	}
	if got := ev.PayloadString("reason"); got != "ok" {
		t.Errorf(`PayloadString("reason") = %q, want "ok"`, got)
	}
	if got := ev.PayloadString("count"); got != "" {
		t.Errorf(`PayloadString("count") = %q, want "" for non-string value`, got)
	}
	if got := ev.PayloadString("missing"); got != "" {
		t.Errorf(`PayloadString("missing") = %q, want ""`, got)
	}

	var none Event
	if none.PayloadBool("accepted") {
		t.Error("PayloadBool on nil payload = true, want false")
	}
}
