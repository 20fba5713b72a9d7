package cli

import (
	"Xtion/internal/service/control"
	"Xtion/internal/service/keys"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	typeCmd := &cobra.Command{
		Use:   "type <text>",
		Short: "Type text into the running daemon one character at a time",
		Args:  cobra.ExactArgs(1),
		RunE:  runType,
	}
	typeCmd.Flags().Int("buffer", keys.DefaultBufferSize, "Buffer size, must match the daemon")
	RootCmd.AddCommand(typeCmd)

	keyCmd := &cobra.Command{
		Use:   "key <code>",
		Short: "Press a special key in the running daemon",
		Args:  cobra.ExactArgs(1),
		RunE:  runKey,
	}
	keyCmd.Flags().IntP("repeat", "r", 1, "How many presses to send")
	RootCmd.AddCommand(keyCmd)
}

func runType(cmd *cobra.Command, args []string) error {
	size, _ := cmd.Flags().GetInt("buffer")
	buf := keys.NewBuffer(size)
	var msgs []control.Inbound
	for _, r := range args[0] {
		msgs = append(msgs, control.Inbound{Type: control.TypeBuffer, Text: buf.Push(r)})
	}
	return send(cmd, msgs)
}

func runKey(cmd *cobra.Command, args []string) error {
	code, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("key code %q: %w", args[0], err)
	}
	repeat, _ := cmd.Flags().GetInt("repeat")
	msgs := make([]control.Inbound, max(1, repeat))
	for i := range msgs {
		msgs[i] = control.Inbound{Type: control.TypeSpecialKey, KeyCode: uint16(code)}
	}
	return send(cmd, msgs)
}

func send(cmd *cobra.Command, msgs []control.Inbound) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	c, err := control.Dial(ctx, getAddr(), pathFlag, getToken())
	if err != nil {
		return err
	}
	defer c.Close()

	accepted := 0
	for _, m := range msgs {
		rep, err := c.Send(ctx, m)
		if err != nil {
			return err
		}
		if rep.Accepted {
			accepted++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"sent":%d,"accepted":%d}`+"\n", len(msgs), accepted)
	return nil
}
