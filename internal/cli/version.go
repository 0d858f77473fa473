// version.go implements the "capstan version" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
