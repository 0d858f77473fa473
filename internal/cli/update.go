// update.go implements the "capstan update" command for self-updating
// from GitHub releases.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/internal/version"
	"github.com/GoCodeAlone/capstan/update"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update capstan to the latest release",
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only check for a new release; do not install")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	u := update.New(version.Version)
	rel, err := u.CheckForUpdate()
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Println("Already up to date.")
		return nil
	}
	fmt.Printf("New release available: %s\n", rel.Version)

	if checkOnly, _ := cmd.Flags().GetBool("check"); checkOnly {
		return nil
	}
	if err := u.ApplyUpdate(rel); err != nil {
		return err
	}
	fmt.Printf("Updated to %s\n", rel.Version)
	return nil
}
