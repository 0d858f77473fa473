// tasks.go implements the "capstan tasks" command listing the task graph.
package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks, their owners, and lease state",
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().Bool("json", false, "Dump the raw task graph document")
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StateDir())
	if err != nil {
		return err
	}
	tdoc := st.LoadTasks()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(tdoc)
	}

	now := time.Now().UTC()
	fmt.Printf("%-14s %-13s %-14s %-10s %s\n", "TASK", "STATUS", "OWNER", "LEASE", "BLOCKED")
	for _, id := range sortedTaskIDs(tdoc) {
		t := tdoc.Tasks[id]
		owner := t.Owner
		if owner == "" {
			owner = "-"
		}
		lease := "-"
		if t.LeaseExpiry != nil {
			lease = leaseLeft(*t.LeaseExpiry, now)
		}
		blocked := ""
		if t.Blocked {
			blocked = "yes"
		}
		fmt.Printf("%-14s %-13s %-14s %-10s %s\n", id, t.Status, owner, lease, blocked)
	}
	return nil
}

func sortedTaskIDs(doc *store.TaskDoc) []string {
	ids := make([]string, 0, len(doc.Tasks))
	for id := range doc.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
