package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abramin/launchargs/internal/tags"
)

var (
	tagsKind string
	tagsJSON bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags [expr]...",
	Short: "Compile tag filter expressions into runner flags",
	Long: `Compile tag filter expressions into --include-tag/--exclude-tag pairs.
An expression prefixed with '!' excludes the tag.

Without arguments the filters.tags list of the configuration is used. Only
the JUnit 5 runner accepts tag filters; other kinds print nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		kind, err := kindFlag(cfg, tagsKind)
		if err != nil {
			return err
		}
		exprs := args
		if len(exprs) == 0 {
			exprs = cfg.Filters.Tags
		}

		compiled := tags.Compile(kind, exprs)
		out := cmd.OutOrStdout()
		if tagsJSON {
			if compiled == nil {
				compiled = []string{}
			}
			return json.NewEncoder(out).Encode(compiled)
		}
		for _, arg := range compiled {
			fmt.Fprintln(out, arg)
		}
		return nil
	},
}

func init() {
	tagsCmd.Flags().StringVarP(&tagsKind, "kind", "k", "", "test kind (default from config test_kind)")
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "print flags as a JSON array")
	rootCmd.AddCommand(tagsCmd)
}
