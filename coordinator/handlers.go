package coordinator

import (
	"log/slog"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/mailbox"
	"github.com/GoCodeAlone/capstan/store"
)

// route journals one inbound event, dispatches it by type, persists the
// mutated documents, and finally emits the requested acknowledgement. The
// documents are replaced atomically before the next event is considered,
// so a crash never leaves an event half-applied.
func (c *Coordinator) route(agents []string, adoc *store.AgentDoc, tdoc *store.TaskDoc, ev *event.Event, st *Stats) error {
	if err := c.store.AppendEvent(ev); err != nil {
		return err
	}
	st.Events++

	// Any inbound event proves its sender alive.
	now := c.now()
	adoc.Ensure(ev.Source, now).Heartbeat = now

	accepted, reason := true, ""
	switch ev.Type {
	case event.TypeTaskClaim:
		accepted, reason = c.handleClaim(adoc, tdoc, ev, st)
	case event.TypeTaskUpdate:
		accepted, reason = c.handleUpdate(adoc, tdoc, ev)
	case event.TypeBlocker:
		c.handleBlocker(agents, tdoc, ev)
		st.Blockers++
	case event.TypeHeartbeat:
		c.handleHeartbeat(adoc, tdoc, ev)
	case event.TypeTaskAssign:
		if ev.TaskID != "" {
			tdoc.Ensure(ev.TaskID, now)
		}
		c.relay(agents, ev)
	case event.TypeRequestReview, event.TypeMergeReady, event.TypeDirective, event.TypeInfo:
		c.relay(agents, ev)
	case event.TypeAck:
		// Journaled for the audit trail; no state transition.
	}

	if err := c.store.SaveAgents(adoc); err != nil {
		return err
	}
	if err := c.store.SaveTasks(tdoc); err != nil {
		return err
	}

	if ev.RequiresAck {
		c.reply(ev.Source, ackFor(ev, accepted, reason))
	}
	return nil
}

// handleClaim arbitrates ownership. A claim wins when the task is unowned,
// already owned by the claimant, or carries only an expired lease; it is
// denied while another agent holds a valid lease.
func (c *Coordinator) handleClaim(adoc *store.AgentDoc, tdoc *store.TaskDoc, ev *event.Event, st *Stats) (accepted bool, reason string) {
	if ev.TaskID == "" {
		st.ClaimsDenied++
		return false, "missing_task_id"
	}
	now := c.now()
	task := tdoc.Ensure(ev.TaskID, now)

	if owner := task.CurrentOwner(now); owner != "" && owner != ev.Source {
		st.ClaimsDenied++
		c.log.Info("claim denied",
			slog.String("task", ev.TaskID),
			slog.String("agent", ev.Source),
			slog.String("owner", owner),
		)
		return false, "task_owned_by_" + owner
	}

	exp := now.Add(c.opts.LeaseDuration)
	task.Owner = ev.Source
	task.Status = store.StatusInProgress
	task.LeaseExpiry = &exp
	task.UpdatedAt = now

	info := adoc.Ensure(ev.Source, now)
	info.Status = store.AgentBusy
	info.TaskID = ev.TaskID

	st.ClaimsGranted++
	c.log.Info("claim granted", slog.String("task", ev.TaskID), slog.String("agent", ev.Source))
	return true, ""
}

// handleUpdate applies a status report. A terminal report releases the
// task and only idles the reporter if it owns no other active task. A
// non-terminal report is owner-gated; a valid owner's report renews the
// lease and records the owner busy on the task.
func (c *Coordinator) handleUpdate(adoc *store.AgentDoc, tdoc *store.TaskDoc, ev *event.Event) (accepted bool, reason string) {
	if ev.TaskID == "" {
		return false, "missing_task_id"
	}
	now := c.now()
	task := tdoc.Ensure(ev.TaskID, now)

	reported := ev.PayloadString("status")
	if reported == "" {
		reported = store.StatusInProgress
	}

	if store.IsTerminal(reported) {
		task.Status = reported
		task.Owner = ""
		task.LeaseExpiry = nil
		task.UpdatedAt = now

		info := adoc.Ensure(ev.Source, now)
		if other := tdoc.ActiveTaskOwnedBy(ev.Source, ev.TaskID); other != "" {
			info.Status = store.AgentBusy
			info.TaskID = other
		} else {
			info.Status = store.AgentIdle
			info.TaskID = ""
		}
		c.log.Info("task finished",
			slog.String("task", ev.TaskID),
			slog.String("agent", ev.Source),
			slog.String("status", reported),
		)
		return true, ""
	}

	switch owner := task.CurrentOwner(now); {
	case owner == "":
		return false, "not_owner"
	case owner != ev.Source:
		return false, "task_owned_by_" + owner
	}

	exp := now.Add(c.opts.LeaseDuration)
	task.Status = reported
	task.LeaseExpiry = &exp
	task.UpdatedAt = now

	// A renewal re-records occupancy alongside the lease: the status
	// document may have been rebuilt from its empty default since the
	// claim was granted.
	info := adoc.Ensure(ev.Source, now)
	info.Status = store.AgentBusy
	info.TaskID = ev.TaskID
	return true, ""
}

// handleBlocker marks the task blocked and broadcasts one replan directive
// to every currently discovered agent, reporter included. This is the one
// event type that fans out to all peers instead of answering the sender.
func (c *Coordinator) handleBlocker(agents []string, tdoc *store.TaskDoc, ev *event.Event) {
	now := c.now()
	if ev.TaskID != "" {
		task := tdoc.Ensure(ev.TaskID, now)
		task.Blocked = true
		task.Status = store.StatusBlocked
		task.UpdatedAt = now
	}

	directive := event.New(event.TypeDirective, Name, event.TargetAll)
	directive.TaskID = ev.TaskID
	directive.Payload = map[string]any{
		"instruction": "replan",
		"reason":      "blocker_reported",
		"by":          ev.Source,
	}
	c.log.Warn("blocker reported", slog.String("task", ev.TaskID), slog.String("agent", ev.Source))

	line, err := directive.Encode()
	if err != nil {
		c.log.Warn("directive encode failed", slog.Any("err", err))
		return
	}
	for _, name := range agents {
		c.append(name, line)
	}
}

// handleHeartbeat refreshes liveness. The sender flips to active only when
// it holds no in_progress task; a busy owner stays busy, because status
// reflects aggregate occupancy rather than the latest event alone.
func (c *Coordinator) handleHeartbeat(adoc *store.AgentDoc, tdoc *store.TaskDoc, ev *event.Event) {
	now := c.now()
	info := adoc.Ensure(ev.Source, now)
	info.Heartbeat = now

	if info.TaskID != "" {
		if t, ok := tdoc.Tasks[info.TaskID]; ok && t.Owner == ev.Source && t.Status == store.StatusInProgress {
			info.Status = store.AgentBusy
			return
		}
	}
	if owned := tdoc.ActiveTaskOwnedBy(ev.Source, ""); owned != "" {
		info.Status = store.AgentBusy
		info.TaskID = owned
		return
	}
	info.Status = store.AgentActive
	info.TaskID = ""
}

// relay forwards a peer-addressed event into its target mailboxes. The
// sender's own mailbox is never a relay target: a copy there would read
// back as fresh inbound traffic on the next cycle.
func (c *Coordinator) relay(agents []string, ev *event.Event) {
	if ev.Target == "" || ev.Target == Name || ev.Target == ev.Source {
		return
	}
	line, err := ev.Encode()
	if err != nil {
		c.log.Warn("relay encode failed", slog.String("event", ev.ID), slog.Any("err", err))
		return
	}
	if ev.Target == event.TargetAll {
		for _, name := range agents {
			if name == ev.Source {
				continue
			}
			c.append(name, line)
		}
		return
	}
	c.append(ev.Target, line)
}

// reply writes one coordinator-authored event into an agent's mailbox.
func (c *Coordinator) reply(agent string, ev *event.Event) {
	line, err := ev.Encode()
	if err != nil {
		c.log.Warn("reply encode failed", slog.String("event", ev.ID), slog.Any("err", err))
		return
	}
	c.append(agent, line)
}

func (c *Coordinator) append(agent, line string) {
	path := mailbox.InboxPath(c.opts.MailboxDir, agent)
	if err := mailbox.AppendLine(path, line); err != nil {
		c.log.Warn("mailbox append failed", slog.String("agent", agent), slog.Any("err", err))
	}
}

// ackFor builds the coordinator's receipt for ev. Denials carry a
// machine-readable reason alongside accepted=false.
func ackFor(ev *event.Event, accepted bool, reason string) *event.Event {
	ack := event.New(event.TypeAck, Name, ev.Source)
	ack.TaskID = ev.TaskID
	ack.Payload = map[string]any{"accepted": accepted}
	if reason != "" {
		ack.Payload["reason"] = reason
	}
	return ack
}
