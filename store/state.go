// Package store owns the persisted coordination state: the agent-status
// document, the task-graph document, and the append-only event journal.
package store

import (
	"sort"
	"strings"
	"time"
)

// Task lifecycle states written by the coordinator. Terminal states are
// whatever string the reporting agent supplies; IsTerminal recognizes the
// conventional spellings.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
)

// AgentState describes what an agent is currently doing.
type AgentState string

const (
	AgentActive AgentState = "active" // alive, not bound to a task
	AgentBusy   AgentState = "busy"   // holds a task lease
	AgentIdle   AgentState = "idle"   // finished its work, awaiting more
)

// Task is one unit of coordinated work, created lazily on first reference.
// Owner is non-empty only while LeaseExpiry is set; a task whose lease has
// expired is logically ownerless even before the sweep clears the fields.
type Task struct {
	Status      string     `json:"status"`
	Owner       string     `json:"owner"`
	LeaseExpiry *time.Time `json:"lease_expiry"`
	Blocked     bool       `json:"blocked"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LeaseValid reports whether t carries an unexpired lease at now.
func (t *Task) LeaseValid(now time.Time) bool {
	return t.LeaseExpiry != nil && now.Before(*t.LeaseExpiry)
}

// CurrentOwner returns the agent validly owning t at now, or "" when the
// task is unowned or its lease has lapsed.
func (t *Task) CurrentOwner(now time.Time) string {
	if t.Owner != "" && t.LeaseValid(now) {
		return t.Owner
	}
	return ""
}

// IsTerminal reports whether status names a finished task. Agents report
// completion in several spellings; the comparison is case-insensitive.
func IsTerminal(status string) bool {
	switch strings.ToLower(status) {
	case "done", "completed", "merged":
		return true
	}
	return false
}

// AgentInfo is the coordinator's view of one agent.
type AgentInfo struct {
	Status    AgentState `json:"status"`
	TaskID    string     `json:"task_id"`
	Heartbeat time.Time  `json:"heartbeat"`
}

// AgentDoc is the agent-status document.
type AgentDoc struct {
	Agents    map[string]*AgentInfo `json:"agents"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewAgentDoc returns the empty agent-status document, the documented
// fallback for a missing or corrupt file.
func NewAgentDoc() *AgentDoc {
	return &AgentDoc{Agents: make(map[string]*AgentInfo)}
}

// Ensure returns the entry for the named agent, creating it as active with
// the given heartbeat on first sight.
func (d *AgentDoc) Ensure(name string, now time.Time) *AgentInfo {
	if a, ok := d.Agents[name]; ok {
		return a
	}
	a := &AgentInfo{Status: AgentActive, Heartbeat: now}
	d.Agents[name] = a
	return a
}

// TaskDoc is the task-graph document.
type TaskDoc struct {
	Tasks     map[string]*Task `json:"tasks"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewTaskDoc returns the empty task-graph document.
func NewTaskDoc() *TaskDoc {
	return &TaskDoc{Tasks: make(map[string]*Task)}
}

// Ensure returns the task for id, creating it as pending on first reference.
func (d *TaskDoc) Ensure(id string, now time.Time) *Task {
	if t, ok := d.Tasks[id]; ok {
		return t
	}
	t := &Task{Status: StatusPending, UpdatedAt: now}
	d.Tasks[id] = t
	return t
}

// ActiveTaskOwnedBy returns the lexically first in_progress task recorded
// as owned by agent, skipping exclude. Finishing one task must not mark an
// agent idle while it still owns another active task; this locates that
// other task.
func (d *TaskDoc) ActiveTaskOwnedBy(agent, exclude string) string {
	ids := make([]string, 0, len(d.Tasks))
	for id := range d.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if t := d.Tasks[id]; t.Owner == agent && t.Status == StatusInProgress {
			return id
		}
	}
	return ""
}
