// Package mailbox reads and appends the per-agent line files that carry
// coordination traffic. Each agent owns one mailbox file: it appends its
// outbound events there and polls the same file for coordinator replies.
package mailbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	inboxSuffix = "_in.txt"
	logSuffix   = ".log"
)

// Cursor marks how far a reader has consumed a mailbox file. Offset counts
// raw bytes taken from the file, including the bytes held back in Remainder,
// so those bytes are never re-read from disk, only logically re-prepended.
// Remainder holds a trailing partial line still waiting for its terminator.
type Cursor struct {
	Offset    int64
	Remainder string
}

// ReadNew returns the complete lines appended to path since cur, without
// their terminators, plus the advanced cursor. A line torn across two
// physical appends is held in the cursor's remainder and emitted exactly
// once, after its terminator arrives. A missing file means no new lines,
// not an error.
func ReadNew(path string, cur Cursor) ([]string, Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cur, nil
		}
		return nil, cur, fmt.Errorf("open mailbox: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(cur.Offset, io.SeekStart); err != nil {
		return nil, cur, fmt.Errorf("seek mailbox: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, cur, fmt.Errorf("read mailbox: %w", err)
	}
	if len(data) == 0 {
		return nil, cur, nil
	}

	parts := strings.Split(cur.Remainder+string(data), "\n")
	next := Cursor{
		Offset:    cur.Offset + int64(len(data)),
		Remainder: parts[len(parts)-1],
	}
	return parts[:len(parts)-1], next, nil
}

// AppendLine appends one record to the file at path, creating the file and
// its parent directory on first use. The written record ends in exactly one
// newline no matter how many the caller supplied, so successive appends
// never merge.
func AppendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create mailbox dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mailbox: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(strings.TrimRight(line, "\n") + "\n"); err != nil {
		return fmt.Errorf("append mailbox line: %w", err)
	}
	return nil
}

// InboxPath returns the mailbox file for the named agent.
func InboxPath(dir, agent string) string {
	return filepath.Join(dir, agent+inboxSuffix)
}

// AgentFromInbox extracts the agent name from a mailbox filename. It
// returns false for files that do not follow the <agent>_in.txt convention.
func AgentFromInbox(filename string) (string, bool) {
	name, ok := strings.CutSuffix(filename, inboxSuffix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// LogPath returns the activity log file for the named agent.
func LogPath(dir, agent string) string {
	return filepath.Join(dir, agent+logSuffix)
}

// AgentFromLog extracts the agent name from an activity log filename.
func AgentFromLog(filename string) (string, bool) {
	name, ok := strings.CutSuffix(filename, logSuffix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
