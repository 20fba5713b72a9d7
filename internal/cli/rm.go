package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a rule document",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", args[0])
	return nil
}
