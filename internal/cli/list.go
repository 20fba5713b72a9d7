package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored rule documents",
		Args:  cobra.NoArgs,
		RunE:  runList,
	})
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	entries, err := s.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if formatFlag != "text" {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.UpdatedAt.Local().Format(time.DateTime), e.Value)
	}
	return tw.Flush()
}
