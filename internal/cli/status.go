package cli

import (
	"Xtion/internal/app/rules"
	"Xtion/internal/service/control"
	"Xtion/internal/trigger"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type statusOutput struct {
	ActiveWord  string        `json:"activeWord,omitempty"`
	ActiveMedia string        `json:"activeMedia,omitempty"`
	ActiveSince time.Time     `json:"activeSince,omitzero"`
	NextSwitch  time.Time     `json:"nextSwitch,omitzero"`
	Tables      trigger.Stats `json:"tables"`
	Issues      []string      `json:"issues,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active rotating word and next switch",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().Bool("live", false, "Ask the running daemon instead of reading the store")
	cmd.Flags().String("tz", "Local", "Schedule time zone")
	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	live, _ := cmd.Flags().GetBool("live")
	if live {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		rep, err := control.Request(ctx, getAddr(), pathFlag, getToken(), control.Inbound{Type: control.TypeStatus})
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), rep.Status)
	}

	tz, _ := cmd.Flags().GetString("tz")
	loc := time.Local
	if tz != "" && tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("tz: %w", err)
		}
		loc = l
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	res, err := rules.Load(cmd.Context(), s, loc)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	// Те же правила, что применит демон: пустые категории остаются встроенными
	e := trigger.New()
	e.Reload(res.Rules)
	e.ReloadSchedule(res.Schedule)

	out := statusOutput{Tables: e.Stats()}
	if item, ok := e.ActiveWord(); ok {
		out.ActiveWord, out.ActiveMedia, out.ActiveSince = item.Word, item.Media.String(), item.Start
	}
	if t, ok := e.NextSwitch(); ok {
		out.NextSwitch = t
	}
	for _, is := range res.Issues {
		out.Issues = append(out.Issues, is.Error())
	}

	if formatFlag == "text" {
		w := cmd.OutOrStdout()
		if out.ActiveWord == "" {
			fmt.Fprintln(w, "active: none")
		} else {
			fmt.Fprintf(w, "active: %s (since %s)\n", out.ActiveWord, out.ActiveSince.Format(trigger.ScheduleLayout))
		}
		if !out.NextSwitch.IsZero() {
			fmt.Fprintf(w, "next:   %s\n", out.NextSwitch.Format(trigger.ScheduleLayout))
		}
		for _, is := range out.Issues {
			fmt.Fprintf(w, "issue:  %s\n", is)
		}
		return nil
	}
	return printJSON(cmd.OutOrStdout(), out)
}
