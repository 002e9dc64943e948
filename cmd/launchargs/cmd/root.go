package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/config"
	"github.com/abramin/launchargs/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "launchargs",
	Short: "launchargs - Compile Java test selections into runner arguments",
	Long: `launchargs turns Java test element handles and tag filters into the
program arguments of a JUnit or TestNG runner process.

A handle such as

  =junit/src\/test\/java<junit5{FooTest.java[FooTest~equal~I~I

resolves to the selector junit5.FooTest:equal(int,int). Type names in
parameter signatures are expanded from the project's Java sources when
they can be found.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./launchargs.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}
