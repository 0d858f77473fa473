// Package client is the collaborator side of the coordination protocol: a
// handle any agent process can use to send events through its own mailbox
// file and poll that same file for coordinator replies. It is the only
// dependency a participating process needs.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/mailbox"
)

// ackPollInterval paces AwaitAck's mailbox re-reads.
const ackPollInterval = 100 * time.Millisecond

// Client participates in coordination on behalf of one named agent. The
// name must not be the reserved coordinator name. Poll state lives in the
// client, so each inbound event is delivered once per client instance.
type Client struct {
	name    string
	mboxDir string
	logDir  string
	cursor  mailbox.Cursor
}

// New returns a client sending as the named agent through the shared
// mailbox directory. logDir receives the agent's activity log.
func New(name, mailboxDir, logDir string) *Client {
	return &Client{name: name, mboxDir: mailboxDir, logDir: logDir}
}

// Name returns the agent name this client sends as.
func (c *Client) Name() string { return c.name }

// Send appends ev to the agent's own mailbox. The source is forced to the
// client's name; agents never write into each other's files.
func (c *Client) Send(ev *event.Event) error {
	ev.Source = c.name
	line, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := mailbox.AppendLine(mailbox.InboxPath(c.mboxDir, c.name), line); err != nil {
		return fmt.Errorf("send %s: %w", ev.Type, err)
	}
	return nil
}

// Claim requests ownership of taskID. It returns the sent event so the
// caller can match the coordinator's receipt against its task.
func (c *Client) Claim(taskID string) (*event.Event, error) {
	ev := event.New(event.TypeTaskClaim, c.name, event.TargetCoordinator)
	ev.TaskID = taskID
	ev.RequiresAck = true
	if err := c.Send(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Update reports task progress. Terminal statuses (done, completed,
// merged) release the task; anything else renews the lease. Extra detail
// rides along in the payload next to the status.
func (c *Client) Update(taskID, status string, detail map[string]any) error {
	ev := event.New(event.TypeTaskUpdate, c.name, event.TargetCoordinator)
	ev.TaskID = taskID
	payload := make(map[string]any, len(detail)+1)
	for k, v := range detail {
		payload[k] = v
	}
	payload["status"] = status
	ev.Payload = payload
	return c.Send(ev)
}

// Blocker reports that taskID cannot proceed. The coordinator answers by
// broadcasting a replan directive to every discovered agent.
func (c *Client) Blocker(taskID, detail string) error {
	ev := event.New(event.TypeBlocker, c.name, event.TargetCoordinator)
	ev.TaskID = taskID
	if detail != "" {
		ev.Payload = map[string]any{"detail": detail}
	}
	return c.Send(ev)
}

// Heartbeat signals liveness without touching any task.
func (c *Client) Heartbeat() error {
	return c.Send(event.New(event.TypeHeartbeat, c.name, event.TargetCoordinator))
}

// Info sends a free-form note. Addressing a peer (or "all") makes the
// coordinator relay it into the recipient mailboxes.
func (c *Client) Info(target, note string) error {
	ev := event.New(event.TypeInfo, c.name, target)
	ev.Payload = map[string]any{"note": note}
	return c.Send(ev)
}

// Poll returns the inbound events appended to the mailbox since the last
// poll: coordinator replies and relayed peer events, never the agent's
// own sends.
func (c *Client) Poll() ([]*event.Event, error) {
	lines, cur, err := mailbox.ReadNew(mailbox.InboxPath(c.mboxDir, c.name), c.cursor)
	if err != nil {
		return nil, err
	}
	c.cursor = cur

	var evs []*event.Event
	for _, line := range lines {
		ev := event.Parse(line)
		if ev == nil || ev.Source == c.name {
			continue
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

// AwaitAck polls until the coordinator's receipt for taskID arrives or ctx
// expires. Other inbound events seen along the way are consumed and
// discarded.
func (c *Client) AwaitAck(ctx context.Context, taskID string) (*event.Event, error) {
	ticker := time.NewTicker(ackPollInterval)
	defer ticker.Stop()
	for {
		evs, err := c.Poll()
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			if ev.Type == event.TypeAck && ev.TaskID == taskID {
				return ev, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// LogActivity appends a timestamped line to the agent's activity log. The
// log doubles as a discovery signal: its presence alone makes the
// coordinator treat the agent as live.
func (c *Client) LogActivity(message string) error {
	line := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), message)
	if err := mailbox.AppendLine(mailbox.LogPath(c.logDir, c.name), line); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}
