package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "set <key> [json|-]",
		Short: "Store a rule document (reads stdin when the value is omitted or -)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSet,
	})
}

func runSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	var value string
	if len(args) == 2 && args[1] != "-" {
		value = args[1]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = string(b)
	}
	value = strings.TrimSpace(value)

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if err := s.Set(cmd.Context(), key, value); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", key)
	return nil
}
