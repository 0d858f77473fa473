package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/mailbox"
)

// File names inside the state directory.
const (
	AgentStateFile = "agent_state.json"
	TaskGraphFile  = "task_graph.json"
	JournalFile    = "coordination_events.jsonl"
)

// Store reads and writes the three coordination artifacts in one state
// directory. The coordinator is the sole writer; dashboards and CLI
// commands may read the documents concurrently because replacement is
// atomic, so a reader always sees either the old or the new complete
// version, never a mix.
type Store struct {
	dir string

	// Now supplies the clock for document update stamps and lease
	// arithmetic. Tests override it to pin time.
	Now func() time.Time
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir, Now: time.Now}, nil
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// JournalPath returns the location of the append-only event journal.
func (s *Store) JournalPath() string { return filepath.Join(s.dir, JournalFile) }

func (s *Store) agentPath() string { return filepath.Join(s.dir, AgentStateFile) }
func (s *Store) taskPath() string  { return filepath.Join(s.dir, TaskGraphFile) }

// LoadAgents reads the agent-status document. A missing or corrupt file
// yields the empty default, which keeps the coordinator self-healing after
// an unclean shutdown.
func (s *Store) LoadAgents() *AgentDoc {
	doc := NewAgentDoc()
	if !loadJSON(s.agentPath(), doc) {
		return NewAgentDoc()
	}
	if doc.Agents == nil {
		doc.Agents = make(map[string]*AgentInfo)
	}
	return doc
}

// LoadTasks reads the task-graph document, falling back to the empty
// default like LoadAgents.
func (s *Store) LoadTasks() *TaskDoc {
	doc := NewTaskDoc()
	if !loadJSON(s.taskPath(), doc) {
		return NewTaskDoc()
	}
	if doc.Tasks == nil {
		doc.Tasks = make(map[string]*Task)
	}
	return doc
}

// SaveAgents atomically replaces the agent-status document and stamps it.
func (s *Store) SaveAgents(doc *AgentDoc) error {
	doc.UpdatedAt = s.Now().UTC()
	if err := writeJSONAtomic(s.agentPath(), doc); err != nil {
		return fmt.Errorf("save agent state: %w", err)
	}
	return nil
}

// SaveTasks atomically replaces the task-graph document and stamps it.
func (s *Store) SaveTasks(doc *TaskDoc) error {
	doc.UpdatedAt = s.Now().UTC()
	if err := writeJSONAtomic(s.taskPath(), doc); err != nil {
		return fmt.Errorf("save task graph: %w", err)
	}
	return nil
}

// AppendEvent appends one routed event to the journal. The journal is an
// audit trail; the coordinator never reads it back for control decisions.
func (s *Store) AppendEvent(ev *event.Event) error {
	line, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := mailbox.AppendLine(s.JournalPath(), line); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// loadJSON reports whether path held a well-formed value. The decode
// target is only trusted when it returns true.
func loadJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// writeJSONAtomic replaces path via a temporary file and rename, so a
// crash mid-write never leaves a half-written document behind.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
