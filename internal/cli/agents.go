// agents.go implements the "capstan agents" command listing known agents
// and their occupancy.
package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/store"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents and their occupancy",
	RunE:  runAgents,
}

func init() {
	agentsCmd.Flags().Bool("json", false, "Dump the raw agent state document")
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StateDir())
	if err != nil {
		return err
	}
	adoc := st.LoadAgents()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(adoc)
	}

	now := time.Now().UTC()
	fmt.Printf("%-14s %-8s %-14s %s\n", "AGENT", "STATUS", "TASK", "HEARTBEAT")
	for _, name := range sortedAgentNames(adoc) {
		info := adoc.Agents[name]
		task := info.TaskID
		if task == "" {
			task = "-"
		}
		fmt.Printf("%-14s %-8s %-14s %s\n", name, string(info.Status), task, ageOf(info.Heartbeat, now))
	}
	return nil
}

func sortedAgentNames(doc *store.AgentDoc) []string {
	names := make([]string, 0, len(doc.Agents))
	for name := range doc.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
