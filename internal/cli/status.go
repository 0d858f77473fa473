// status.go implements the "capstan status" command showing a one-screen
// summary of the shared coordination state.
package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GoCodeAlone/capstan/event"
	"github.com/GoCodeAlone/capstan/history"
	"github.com/GoCodeAlone/capstan/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize agents, tasks, and the journal",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StateDir())
	if err != nil {
		return err
	}
	adoc := st.LoadAgents()
	tdoc := st.LoadTasks()
	now := time.Now().UTC()

	fmt.Println("Capstan Status")
	fmt.Printf("Data dir: %s\n\n", cfg.DataDir)

	names := sortedAgentNames(adoc)
	fmt.Printf("Agents (%d)\n", len(names))
	for _, name := range names {
		info := adoc.Agents[name]
		line := fmt.Sprintf("  %-14s %-8s", name, string(info.Status))
		if info.TaskID != "" {
			line += fmt.Sprintf("  on %s", info.TaskID)
		}
		line += fmt.Sprintf("  heartbeat %s", ageOf(info.Heartbeat, now))
		fmt.Println(line)
	}
	if len(names) == 0 {
		fmt.Println("  (none discovered yet)")
	}
	fmt.Println()

	ids := sortedTaskIDs(tdoc)
	fmt.Printf("Tasks (%d)\n", len(ids))
	for _, id := range ids {
		t := tdoc.Tasks[id]
		line := fmt.Sprintf("  %-14s %-13s", id, displayStatus(t.Status))
		if t.Owner != "" {
			line += fmt.Sprintf("  owner %s", t.Owner)
		}
		if t.LeaseExpiry != nil {
			line += fmt.Sprintf("  lease %s", leaseLeft(*t.LeaseExpiry, now))
		}
		if t.Blocked {
			line += "  [blocked]"
		}
		fmt.Println(line)
	}
	if len(ids) == 0 {
		fmt.Println("  (no tasks)")
	}
	fmt.Println()

	ix, err := history.Load(st.JournalPath())
	if err != nil {
		return err
	}
	defer ix.Close()

	total, err := ix.Count()
	if err != nil {
		return err
	}
	counts, err := ix.CountByType()
	if err != nil {
		return err
	}
	fmt.Printf("Journal: %d events%s\n", total, typeBreakdown(counts))
	return nil
}

// displayStatus renders an internal status like "in_progress" as
// "In Progress".
func displayStatus(status string) string {
	s := strings.ReplaceAll(status, "_", " ")
	return cases.Title(language.English).String(s)
}

// ageOf renders how long ago ts was, relative to now.
func ageOf(ts, now time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	d := now.Sub(ts).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%s ago", d)
}

// leaseLeft renders the time remaining on an ownership lease.
func leaseLeft(expiry, now time.Time) string {
	d := expiry.Sub(now).Round(time.Second)
	if d <= 0 {
		return "expired"
	}
	return d.String()
}

func typeBreakdown(counts map[event.Type]int) string {
	if len(counts) == 0 {
		return ""
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s %d", t, counts[event.Type(t)]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
