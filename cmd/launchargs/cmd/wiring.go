package cmd

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/config"
	"github.com/abramin/launchargs/internal/decode"
	"github.com/abramin/launchargs/internal/javasrc"
	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/remote"
	"github.com/abramin/launchargs/internal/store"
)

// newSourceIndex returns the Java source index for the configured project,
// or nil when source lookup is disabled.
func newSourceIndex(cfg *config.Config, useSource bool) *javasrc.Index {
	if !useSource || cfg.Source.Dir == "" {
		return nil
	}
	return javasrc.NewIndex(cfg.Source.Dir,
		javasrc.WithSourceRoots(cfg.Source.Roots...),
		javasrc.WithExcludeFunc(cfg.IsExcludedDir),
		javasrc.WithLogger(logger.Named("javasrc")))
}

func newDecoder(ix *javasrc.Index) *decode.Decoder {
	opts := []decode.Option{decode.WithLogger(logger.Named("decode"))}
	if ix != nil {
		opts = append(opts, decode.WithTypeResolver(ix))
	}
	return decode.New(opts...)
}

// newResolver resolves remotely when an endpoint is configured and in
// process otherwise.
func newResolver(cfg *config.Config, useSource bool) (launch.Resolver, error) {
	if cfg.Remote.Endpoint != "" {
		logger.Debug("using remote resolver", zap.String("endpoint", cfg.Remote.Endpoint))
		client, err := remote.New(cfg.Remote.Endpoint, cfg.Remote.Timeout, remote.WithLogger(logger.Named("remote")))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	ix := newSourceIndex(cfg, useSource)
	opts := []launch.LocalOption{
		launch.WithRunnerOptions(launch.RunnerOptions{
			Port:      cfg.Runner.Port,
			ExtraArgs: cfg.Runner.ExtraArgs,
		}),
		launch.WithLogger(logger.Named("launch")),
	}
	if ix != nil {
		opts = append(opts, launch.WithPreloader(ix))
	}
	return launch.NewLocalResolver(newDecoder(ix), opts...), nil
}

// openHistory opens the history store, or returns nil when it is disabled.
func openHistory(cfg *config.Config) (*store.Store, error) {
	if !cfg.HistoryEnabled() {
		return nil, nil
	}
	dir := cfg.HistoryDir()
	st, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening history in %s: %w", filepath.Clean(dir), err)
	}
	return st, nil
}

// kindFlag returns the kind named by flag, falling back to the configured
// kind.
func kindFlag(cfg *config.Config, flag string) (model.TestKind, error) {
	if flag != "" {
		return model.ParseTestKind(flag)
	}
	return cfg.Kind()
}
