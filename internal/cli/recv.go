// recv.go implements the "capstan recv" command draining an agent's
// inbound mailbox traffic.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/client"
)

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Show events addressed to an agent",
	Long: `Recv replays every coordinator and peer event present in the agent's
mailbox, oldest first. With --follow it keeps polling for new ones.`,
	RunE: runRecv,
}

func init() {
	recvCmd.Flags().String("agent", "", "Agent name whose mailbox to read (required)")
	recvCmd.Flags().Bool("follow", false, "Keep polling for new events")
	recvCmd.Flags().Duration("interval", 2*time.Second, "Poll interval with --follow")
	recvCmd.Flags().Bool("json", false, "Print raw JSON lines")
	_ = recvCmd.MarkFlagRequired("agent")
}

func runRecv(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("agent")
	follow, _ := cmd.Flags().GetBool("follow")
	interval, _ := cmd.Flags().GetDuration("interval")
	asJSON, _ := cmd.Flags().GetBool("json")

	c := client.New(name, cfg.MailboxDir(), cfg.LogsDir())
	if err := printInbound(c, asJSON); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	// Handle ctrl-c gracefully.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "watching mailbox for %s (poll every %s, ctrl-c to stop)\n", c.Name(), interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "\nstopped")
			return nil
		case <-ticker.C:
			if err := printInbound(c, asJSON); err != nil {
				fmt.Fprintf(os.Stderr, "capstan: recv: %v\n", err)
			}
		}
	}
}

func printInbound(c *client.Client, asJSON bool) error {
	evs, err := c.Poll()
	if err != nil {
		return err
	}
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
	return nil
}
