package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"greenorbit/internal/feed"
	"greenorbit/internal/mockdata"
	"greenorbit/internal/realtime"
)

var simulateSeed int64

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish sampled sensor updates for every registry farm to the Redis stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger := zap.L()

		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		seed := simulateSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		gen := mockdata.NewGenerator(seed)
		publisher := feed.NewPublisher(client, cfg.Redis.Stream)

		b := realtime.NewBroadcaster(realtime.StaticFarms(cfg.RegistryFarms()), newSampler(cfg, gen, logger),
			cfg.Realtime.Interval, logger, publisher)
		b.Source = "simulator"

		logger.Info("publishing sensor updates",
			zap.String("stream", cfg.Redis.Stream), zap.Int("farms", len(cfg.Farms)))
		return b.Run(ctx)
	},
}

func init() {
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 0, "random seed for the simulator (default time based)")
	rootCmd.AddCommand(simulateCmd)
}
