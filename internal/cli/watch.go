// watch.go implements the "capstan watch" command, a live dashboard over
// the shared state documents.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of agents and tasks",
	Long: `Watch renders the agent state and task graph documents in a live
terminal dashboard, refreshing every second. It never writes to the
coordination data.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !tui.IsTTY() {
		return fmt.Errorf("watch needs a terminal; use \"capstan status\" in scripts")
	}
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	return tui.Run(tui.NewModel(cfg))
}
