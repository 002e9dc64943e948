package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
)

var (
	resolveLevel    string
	resolveKind     string
	resolveProject  string
	resolveTags     []string
	resolveNoSource bool
	resolveJSON     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <handle>...",
	Short: "Resolve handles into the full runner argument list",
	Long: `Resolve a test selection into the runner main class and program
arguments: runner flags, tag filters, then the selectors.

Resolution runs in process unless remote.endpoint is configured, in which
case the selection is sent to that resolution service. Every attempt is
recorded in the history database unless history.enabled is false.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		level, err := model.ParseTestLevel(resolveLevel)
		if err != nil {
			return err
		}
		kind, err := kindFlag(cfg, resolveKind)
		if err != nil {
			return err
		}
		project := resolveProject
		if project == "" {
			project = cfg.Project
		}
		filters := cfg.Filters.Tags
		if cmd.Flags().Changed("tag") {
			filters = resolveTags
		}

		resolver, err := newResolver(cfg, !resolveNoSource)
		if err != nil {
			return err
		}
		opts := []launch.PlannerOption{
			launch.WithTags(filters),
			launch.WithPlannerLogger(logger.Named("planner")),
		}
		history, err := openHistory(cfg)
		if err != nil {
			logger.Warn("history unavailable", zap.Error(err))
		}
		if history != nil {
			defer history.Close()
			opts = append(opts, launch.WithRecorder(history))
		}

		req := &model.Request{
			ProjectName: project,
			TestLevel:   level,
			TestKind:    kind,
			TestNames:   args,
		}
		result, err := launch.NewPlanner(resolver, opts...).Plan(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("resolving launch arguments: %w", err)
		}

		out := cmd.OutOrStdout()
		if resolveJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		fmt.Fprintln(out, result.MainClass)
		for _, arg := range result.ProgramArguments {
			fmt.Fprintln(out, arg)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveLevel, "level", "l", "method", "selection level: method, class or package")
	resolveCmd.Flags().StringVarP(&resolveKind, "kind", "k", "", "test kind (default from config test_kind)")
	resolveCmd.Flags().StringVarP(&resolveProject, "project", "p", "", "project name (default from config)")
	resolveCmd.Flags().StringArrayVarP(&resolveTags, "tag", "t", nil, "tag filter, repeatable; replaces filters.tags")
	resolveCmd.Flags().BoolVar(&resolveNoSource, "no-source", false, "do not read Java sources to resolve type names")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(resolveCmd)
}
