// Package cli implements the xtionctl commands.
package cli

import (
	"Xtion/internal/store"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	addrFlag   string
	pathFlag   string
	tokenFlag  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "xtionctl",
	Short:         "Manage Xtion trigger rules",
	Long:          "Edit the rule tables of the Xtion jump-scare daemon and poke a running daemon over its control socket.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $XTION_DB or data/xtion.db)")
	RootCmd.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "", "Control server address (default: $XTION_ADDR or 127.0.0.1:8081)")
	RootCmd.PersistentFlags().StringVar(&pathFlag, "path", "/ws", "Control server WebSocket path")
	RootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Control server token (default: $XTION_CONTROL_TOKEN)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("XTION_DB"); env != "" {
		return env
	}
	return "data/xtion.db"
}

func getAddr() string {
	if addrFlag != "" {
		return addrFlag
	}
	if env := os.Getenv("XTION_ADDR"); env != "" {
		return env
	}
	return "127.0.0.1:8081"
}

func getToken() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	return os.Getenv("XTION_CONTROL_TOKEN")
}

func openStore() (*store.Store, error) {
	return store.Open(getDBPath())
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
