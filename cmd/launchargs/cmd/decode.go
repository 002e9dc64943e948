package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/model"
)

var (
	decodeLevel    string
	decodeNoSource bool
	decodeJSON     bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <handle>...",
	Short: "Decode element handles into runner selectors",
	Long: `Decode one or more element handles into the fully-qualified selectors a
test runner accepts, one per line and in input order.

Method handles become pkg.Type:member(p1,p2); --level class or package
produces the coarser selector instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := model.ParseTestLevel(decodeLevel)
		if err != nil {
			return err
		}

		cfg := GetConfig()
		ix := newSourceIndex(cfg, !decodeNoSource)
		dec := newDecoder(ix)

		var selectors []string
		for _, raw := range args {
			d, err := dec.DecodeSelector(level, raw)
			if err != nil {
				logger.Debug("decode failed", zap.String("handle", raw), zap.Error(err))
				return err
			}
			selectors = append(selectors, d.String())
		}

		out := cmd.OutOrStdout()
		if decodeJSON {
			return json.NewEncoder(out).Encode(selectors)
		}
		for _, s := range selectors {
			fmt.Fprintln(out, s)
		}
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeLevel, "level", "l", "method", "selector level: method, class or package")
	decodeCmd.Flags().BoolVar(&decodeNoSource, "no-source", false, "do not read Java sources to resolve type names")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "print selectors as a JSON array")
	rootCmd.AddCommand(decodeCmd)
}
