package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		st, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return errors.New("history is disabled (history.enabled: false)")
		}
		defer st.Close()

		if historyClear {
			if err := st.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared history in %s\n", st.DBPath())
			return nil
		}

		entries, err := st.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			return json.NewEncoder(out).Encode(entries)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tKIND\tLEVEL\tSELECTORS\tRESULT")
		for _, e := range entries {
			result := "ok"
			if e.Failed() {
				result = firstLine(e.Error)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				e.CreatedAt.Local().Format(time.DateTime), kindName(e.Kind.String()), e.Level, len(e.TestNames), result)
		}
		return tw.Flush()
	},
}

func kindName(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all recorded resolutions")
	rootCmd.AddCommand(historyCmd)
}
