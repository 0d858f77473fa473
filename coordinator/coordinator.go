// Package coordinator implements the control loop that arbitrates task
// ownership among independently running worker agents, using only their
// mailbox files and the persisted coordination state.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/mailbox"
	"github.com/GoCodeAlone/capstan/store"
)

// Name is the reserved agent name the coordinator writes replies under.
// Discovery never treats a mailbox with this name as a peer.
const Name = event.TargetCoordinator

const (
	// DefaultLeaseDuration bounds how long a granted claim stays valid
	// without renewal.
	DefaultLeaseDuration = 120 * time.Second

	// DefaultPollInterval is the sleep between control cycles.
	DefaultPollInterval = 2 * time.Second
)

// Options configure a Coordinator.
type Options struct {
	MailboxDir    string        // directory of <agent>_in.txt files
	LogDir        string        // directory of <agent>.log activity files
	LeaseDuration time.Duration // defaults to DefaultLeaseDuration
	PollInterval  time.Duration // defaults to DefaultPollInterval
	Logger        *slog.Logger  // defaults to slog.Default()
}

// Coordinator drains agent mailboxes, routes events into the coordination
// state, answers with ACK and DIRECTIVE events, and reclaims abandoned
// leases. All shared-state mutation happens from this one control loop;
// the only other writers in the system are agents appending to their own
// mailbox files.
type Coordinator struct {
	opts  Options
	store *store.Store
	log   *slog.Logger

	// cursors holds the per-agent mailbox read positions. In-memory only:
	// a cursor lost to a restart merely replays events, and every handler
	// is idempotent under replay.
	cursors map[string]mailbox.Cursor
}

// Stats counts what one control cycle did.
type Stats struct {
	Agents        int // peers discovered
	Events        int // events journaled and dispatched
	ClaimsGranted int
	ClaimsDenied  int
	Blockers      int
	Reclaimed     int // leases reset by the sweep
}

// New creates a coordinator over st. Zero option fields take defaults.
func New(st *store.Store, opts Options) *Coordinator {
	if opts.LeaseDuration <= 0 {
		opts.LeaseDuration = DefaultLeaseDuration
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		opts:    opts,
		store:   st,
		log:     opts.Logger,
		cursors: make(map[string]mailbox.Cursor),
	}
}

func (c *Coordinator) now() time.Time { return c.store.Now().UTC() }

// Discover returns the current agent set: every name carrying a mailbox
// or an activity log, lexically sorted, with the coordinator's own
// reserved name excluded. Missing directories mean no agents, not an
// error.
func (c *Coordinator) Discover() ([]string, error) {
	seen := make(map[string]bool)
	if err := scanDir(c.opts.MailboxDir, mailbox.AgentFromInbox, seen); err != nil {
		return nil, err
	}
	if err := scanDir(c.opts.LogDir, mailbox.AgentFromLog, seen); err != nil {
		return nil, err
	}
	delete(seen, Name)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func scanDir(dir string, parse func(string) (string, bool), seen map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := parse(e.Name()); ok {
			seen[name] = true
		}
	}
	return nil
}

// Cycle runs one control pass: discover agents, drain each mailbox in
// lexical order, route every new event, then sweep expired leases.
func (c *Coordinator) Cycle() (Stats, error) {
	var st Stats
	agents, err := c.Discover()
	if err != nil {
		return st, err
	}
	st.Agents = len(agents)

	adoc := c.store.LoadAgents()
	tdoc := c.store.LoadTasks()

	for _, name := range agents {
		path := mailbox.InboxPath(c.opts.MailboxDir, name)
		lines, cur, err := mailbox.ReadNew(path, c.cursors[name])
		if err != nil {
			c.log.Warn("mailbox read failed", slog.String("agent", name), slog.Any("err", err))
			continue
		}
		c.cursors[name] = cur

		for _, line := range lines {
			ev := event.Parse(line)
			if ev == nil {
				if line != "" {
					c.log.Debug("dropping unparsable mailbox line", slog.String("agent", name))
				}
				continue
			}
			// The mailbox is bidirectional: coordinator replies and
			// relayed peer events share the file with the agent's own
			// sends. Only lines the agent itself wrote are inbound.
			if ev.Source != name {
				continue
			}
			if err := c.route(agents, adoc, tdoc, ev, &st); err != nil {
				c.log.Warn("event routing failed",
					slog.String("agent", name),
					slog.String("event", ev.ID),
					slog.Any("err", err),
				)
			}
		}
	}

	st.Reclaimed = c.sweep(tdoc)
	if st.Reclaimed > 0 {
		if err := c.store.SaveTasks(tdoc); err != nil {
			return st, err
		}
	}
	return st, nil
}

// sweep resets every in_progress task whose lease has lapsed back to
// pending and unowned. This is the sole recovery path for tasks abandoned
// by a crashed or stalled agent.
func (c *Coordinator) sweep(tdoc *store.TaskDoc) int {
	now := c.now()
	reclaimed := 0
	for id, task := range tdoc.Tasks {
		if task.Status != store.StatusInProgress || task.LeaseExpiry == nil {
			continue
		}
		if now.Before(*task.LeaseExpiry) {
			continue
		}
		c.log.Info("lease reclaimed", slog.String("task", id), slog.String("owner", task.Owner))
		task.Owner = ""
		task.Status = store.StatusPending
		task.LeaseExpiry = nil
		task.UpdatedAt = now
		reclaimed++
	}
	return reclaimed
}

// Run executes cycles on the poll interval until ctx is cancelled. Cycle
// failures are logged and the loop keeps going; nothing in this subsystem
// is fatal under normal operation.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("coordinator started",
		slog.String("mailboxes", c.opts.MailboxDir),
		slog.Duration("poll", c.opts.PollInterval),
		slog.Duration("lease", c.opts.LeaseDuration),
	)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		stats, err := c.Cycle()
		switch {
		case err != nil:
			c.log.Error("cycle failed", slog.Any("err", err))
		case stats.Events > 0 || stats.Reclaimed > 0:
			c.log.Info("cycle complete",
				slog.Int("agents", stats.Agents),
				slog.Int("events", stats.Events),
				slog.Int("claims", stats.ClaimsGranted),
				slog.Int("denied", stats.ClaimsDenied),
				slog.Int("blockers", stats.Blockers),
				slog.Int("reclaimed", stats.Reclaimed),
			)
		}

		select {
		case <-ctx.Done():
			c.log.Info("coordinator stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
