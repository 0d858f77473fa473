// events.go implements the "capstan events" command querying the
// coordination journal.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/history"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the coordination journal",
	Long: `Events replays the append-only coordination journal, oldest first.
Filters narrow the result; --json prints the raw journal lines. With
--tail only the n most recent events are shown.`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().String("source", "", "Only events from this agent")
	eventsCmd.Flags().String("target", "", "Only events addressed to this agent")
	eventsCmd.Flags().String("type", "", "Only events of this type, e.g. TASK_CLAIM")
	eventsCmd.Flags().String("task", "", "Only events about this task")
	eventsCmd.Flags().Duration("since", 0, "Only events newer than this age, e.g. 30m")
	eventsCmd.Flags().Int("limit", 0, "Stop after this many events")
	eventsCmd.Flags().Int("tail", 0, "Show only the n most recent events")
	eventsCmd.Flags().Bool("json", false, "Print raw JSON lines")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	f := history.Filter{}
	f.Source, _ = cmd.Flags().GetString("source")
	f.Target, _ = cmd.Flags().GetString("target")
	f.TaskID, _ = cmd.Flags().GetString("task")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	if typ, _ := cmd.Flags().GetString("type"); typ != "" {
		t := event.Type(strings.ToUpper(typ))
		if !event.Known(t) {
			return fmt.Errorf("unknown event type %q", typ)
		}
		f.Type = t
	}
	if age, _ := cmd.Flags().GetDuration("since"); age > 0 {
		f.Since = time.Now().UTC().Add(-age)
	}

	tail, _ := cmd.Flags().GetInt("tail")
	if tail > 0 && f != (history.Filter{}) {
		return fmt.Errorf("--tail cannot be combined with filter flags")
	}

	ix, err := history.Load(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer ix.Close()

	var evs []*event.Event
	if tail > 0 {
		evs, err = ix.Tail(tail)
	} else {
		evs, err = ix.Events(f)
	}
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	for _, ev := range evs {
		if asJSON {
			line, err := ev.Encode()
			if err != nil {
				return err
			}
			fmt.Println(line)
			continue
		}
		fmt.Println(formatEvent(ev))
	}
	if len(evs) == 0 && !asJSON {
		fmt.Println("No matching events.")
	}
	return nil
}

// formatEvent renders one journal event for terminal display.
func formatEvent(ev *event.Event) string {
	to := ev.Target
	if to == "" {
		to = "*"
	}
	line := fmt.Sprintf("%s  %-14s %s -> %s",
		ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Source, to)
	if ev.TaskID != "" {
		line += fmt.Sprintf("  [%s]", ev.TaskID)
	}
	if s := ev.PayloadString("status"); s != "" {
		line += "  status=" + s
	}
	if r := ev.PayloadString("reason"); r != "" {
		line += "  reason=" + r
	}
	return line
}
