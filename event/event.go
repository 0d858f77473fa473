// Package event defines the wire record exchanged between agents and the
// coordinator, and its line-oriented JSON codec.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of coordination event.
type Type string

const (
	TypeTaskAssign    Type = "TASK_ASSIGN"    // hand a task to an agent
	TypeTaskClaim     Type = "TASK_CLAIM"     // request ownership of a task
	TypeTaskUpdate    Type = "TASK_UPDATE"    // report task progress or completion
	TypeBlocker       Type = "BLOCKER"        // report that a task cannot proceed
	TypeRequestReview Type = "REQUEST_REVIEW" // ask a peer to review work
	TypeMergeReady    Type = "MERGE_READY"    // signal that a change is ready to land
	TypeDirective     Type = "DIRECTIVE"      // coordinator instruction to one or all agents
	TypeHeartbeat     Type = "HEARTBEAT"      // liveness signal
	TypeAck           Type = "ACK"            // receipt or decision for a prior event
	TypeInfo          Type = "INFO"           // free-form informational note
)

// PriorityNormal is the priority assigned when the sender does not set one.
// Priority is otherwise free-form; "low" and "high" are conventional.
const PriorityNormal = "normal"

// Addressing constants. TargetAll fans an event out to every discovered
// agent; TargetCoordinator is the reserved name the coordinator answers
// to, and no worker agent may use it as its own.
const (
	TargetAll         = "all"
	TargetCoordinator = "coordinator"
)

// Event is one coordination record. Events are immutable once created; they
// are appended to mailbox files and to the journal, never edited in place.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Source      string         `json:"source"`           // sending agent's name
	Target      string         `json:"target,omitempty"` // recipient name, "all", or empty for the coordinator
	Type        Type           `json:"event_type"`
	TaskID      string         `json:"task_id,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	RequiresAck bool           `json:"requires_ack,omitempty"`
}

// New creates an event of the given type with a fresh random ID, the sender's
// current UTC clock, and normal priority.
func New(typ Type, source, target string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Target:    target,
		Type:      typ,
		Priority:  PriorityNormal,
	}
}

// Known reports whether t is one of the defined event types.
func Known(t Type) bool {
	switch t {
	case TypeTaskAssign, TypeTaskClaim, TypeTaskUpdate, TypeBlocker,
		TypeRequestReview, TypeMergeReady, TypeDirective, TypeHeartbeat,
		TypeAck, TypeInfo:
		return true
	}
	return false
}

// Normalize maps unrecognized event types to TypeInfo. Partner agents may
// run newer protocol revisions; their events degrade to INFO instead of
// being rejected.
func Normalize(t Type) Type {
	if Known(t) {
		return t
	}
	return TypeInfo
}

// Parse decodes a single mailbox line. It returns nil for blank lines,
// malformed JSON, and records missing a source or event_type; callers treat
// nil as noise and skip the line. The target may be empty, which addresses
// the record to the coordinator. Unknown event types are normalized to
// INFO, and a missing priority defaults to normal.
func Parse(line string) *Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil
	}
	if ev.Source == "" || ev.Type == "" {
		return nil
	}
	ev.Type = Normalize(ev.Type)
	if ev.Priority == "" {
		ev.Priority = PriorityNormal
	}
	return &ev
}

// Encode renders the event as a single JSON line without a trailing newline.
// Newlines inside payload values are escaped by the JSON encoding, so the
// result is always safe to append to a line-oriented file.
func (e *Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return string(b), nil
}

// PayloadString returns the payload value under key when it is a string,
// and "" otherwise.
func (e *Event) PayloadString(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// PayloadBool returns the payload value under key when it is a bool.
func (e *Event) PayloadBool(key string) bool {
	b, _ := e.Payload[key].(bool)
	return b
}
