package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored rule document",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	v, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if formatFlag == "text" {
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(v), "", "  "); err != nil {
		buf.Reset()
		buf.WriteString(v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
