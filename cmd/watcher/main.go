package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapScope/internal/chain"
	"swapScope/internal/config"
	"swapScope/internal/dex"
	"swapScope/internal/sink"
	"swapScope/internal/watcher"
)

func main() {
	root := &cobra.Command{
		Use:          "watcher",
		Short:        "Real-time V3 pool price watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch configured pools and stream price quotes",
		RunE:  runWatcher,
	}

	runCmd.Flags().String("rpc", config.DefaultRPCURL, "RPC endpoint URL (ws:// or wss://)")
	runCmd.Flags().StringSlice("pools", nil, "pool addresses (comma-separated)")
	runCmd.Flags().Duration("reconnect-base", time.Second, "initial reconnect backoff")
	runCmd.Flags().Float64("reconnect-multiplier", 2.0, "reconnect backoff multiplier")
	runCmd.Flags().Duration("reconnect-max", 30*time.Second, "reconnect backoff cap")
	runCmd.Flags().String("out", "", "optional quotes JSONL output path")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatcher(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := watcher.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor := chain.NewSupervisor(cfg.RPCURL, chain.BackoffConfig{
		Base:       cfg.ReconnectBase,
		Multiplier: cfg.ReconnectMultiplier,
		Max:        cfg.ReconnectMax,
	}, logger)
	defer supervisor.Close()

	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return err
	}
	resolver := dex.NewMetadataResolver(logger)

	var out sink.Sink = sink.NewConsole(logger)
	if cfg.Out != "" {
		out = sink.Fanout{sink.NewConsole(logger), sink.NewJsonl(cfg.Out)}
	}

	manager := watcher.NewManager(supervisor, decoder, resolver, out, logger)
	for _, pool := range pools {
		if !manager.Register(pool) {
			logger.Warn("duplicate pool address ignored", zap.String("pool", pool.Hex()))
		}
	}

	logger.Info("watcher start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("pools", len(pools)),
		zap.String("out", cfg.Out),
	)

	if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("watcher stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
