// send.go implements the "capstan send" command for emitting events as an
// agent from the shell.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/capstan/client"
	"github.com/GoCodeAlone/capstan/event"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Append an event to an agent's mailbox",
	Long: `Send writes an event into the named agent's own mailbox, exactly as
that agent's harness would. The coordinator picks it up on its next
poll. Payload fields are given as repeated -p key=value pairs.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().String("from", "", "Agent name to send as (required)")
	sendCmd.Flags().String("type", string(event.TypeInfo), "Event type, e.g. TASK_CLAIM")
	sendCmd.Flags().String("to", "", "Target agent, \"all\", or \"coordinator\"")
	sendCmd.Flags().String("task", "", "Task ID the event refers to")
	sendCmd.Flags().String("priority", event.PriorityNormal, "Event priority")
	sendCmd.Flags().Bool("ack", false, "Request an ACK from the coordinator")
	sendCmd.Flags().Duration("wait", 0, "With --ack, wait this long for the reply")
	sendCmd.Flags().StringArrayP("payload", "p", nil, "Payload entry as key=value (repeatable)")
	_ = sendCmd.MarkFlagRequired("from")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	rawType, _ := cmd.Flags().GetString("type")
	typ := event.Type(strings.ToUpper(rawType))
	if !event.Known(typ) {
		return fmt.Errorf("unknown event type %q", rawType)
	}

	to, _ := cmd.Flags().GetString("to")
	ev := event.New(typ, from, to)
	ev.TaskID, _ = cmd.Flags().GetString("task")
	ev.Priority, _ = cmd.Flags().GetString("priority")
	ev.RequiresAck, _ = cmd.Flags().GetBool("ack")

	pairs, _ := cmd.Flags().GetStringArray("payload")
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return fmt.Errorf("payload %q is not key=value", pair)
		}
		if ev.Payload == nil {
			ev.Payload = make(map[string]any)
		}
		ev.Payload[k] = v
	}

	c := client.New(from, cfg.MailboxDir(), cfg.LogsDir())
	if err := c.Send(ev); err != nil {
		return err
	}
	fmt.Printf("Sent %s %s as %s\n", ev.Type, ev.ID, c.Name())

	wait, _ := cmd.Flags().GetDuration("wait")
	if ev.RequiresAck && wait > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()

		ack, err := c.AwaitAck(ctx, ev.TaskID)
		if err != nil {
			return fmt.Errorf("waiting for ack: %w", err)
		}
		if ack.PayloadBool("accepted") {
			fmt.Println("Accepted.")
		} else {
			fmt.Printf("Denied: %s\n", ack.PayloadString("reason"))
		}
	}
	return nil
}
