package cli

import (
	"Xtion/internal/service/control"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 5 * time.Second

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Ask the running daemon to reload its rules",
		Args:  cobra.NoArgs,
		RunE:  runReload,
	})
}

func runReload(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	rep, err := control.Request(ctx, getAddr(), pathFlag, getToken(), control.Inbound{Type: control.TypeConfigChanged})
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"accepted":%t}`+"\n", rep.Accepted)
	return nil
}
