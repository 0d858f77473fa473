// Package cli defines Cobra command definitions for the capstan CLI.
// This file contains the root command, shared flags, and config resolution.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/config"
	"github.com/GoCodeAlone/capstan/internal/tui"
	"github.com/GoCodeAlone/capstan/internal/version"
)

var (
	dataDir    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "capstan",
	Short: "Multi-agent task coordination over shared files",
	Long: `Capstan coordinates a fleet of coding agents through per-agent
mailbox files and a pair of shared JSON state documents. Agents append
events to their own mailboxes, and the capstand daemon arbitrates task
ownership and appends replies back. This CLI inspects that shared state
and lets you act as an agent from the shell.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// When no subcommand is provided, launch the watch TUI if TTY,
		// show help otherwise.
		if !tui.IsTTY() {
			return cmd.Help()
		}
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		return tui.Run(tui.NewModel(cfg))
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig layers the --config file (when given) over defaults and
// then applies the --data-dir override.
func resolveConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Coordination data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a capstan YAML config file")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(recvCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}
