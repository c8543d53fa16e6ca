package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"greenorbit/internal/alerts"
	"greenorbit/internal/config"
	"greenorbit/internal/database"
	"greenorbit/internal/feed"
	"greenorbit/internal/mockdata"
	"greenorbit/internal/realtime"
	"greenorbit/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and websocket hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return runServe(ctx, cfg, fmt.Sprintf(":%d", port), zap.L())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, c *config.Config, addr string, logger *zap.Logger) error {
	store, err := database.Open(ctx, c, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := database.SeedFarms(ctx, store, c.RegistryFarms()); err != nil {
		return err
	}

	gen := mockdata.NewGenerator(time.Now().UnixNano())
	sampler := newSampler(c, gen, logger)
	hub := realtime.NewHub(logger)
	recorder := alerts.NewRecorder(store, alerts.NewSuggester(), logger)

	opts := server.OptionsFromConfig(c)
	if opts.JWTSecret == "" {
		opts.JWTSecret = uuid.NewString()
		logger.Warn("server.jwt_secret not set, using a random secret; tokens will not survive a restart")
	}
	srv, err := server.NewServer(store, sampler, gen, hub, opts, logger)
	if err != nil {
		return err
	}

	var feedLoop func(ctx context.Context) error
	switch c.Realtime.Source {
	case config.SourceRedis:
		client, err := newRedisClient(ctx, c.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		consumer := feed.NewConsumer(client, c.Redis.Stream, c.Redis.Group, c.Redis.Consumer, logger)
		sink := realtime.Fanout(hub, recorder)
		feedLoop = func(ctx context.Context) error {
			return consumer.Run(ctx, sink.Publish)
		}
	default:
		// only farms someone is watching are sampled
		b := realtime.NewBroadcaster(store.ListFarms, sampler, c.Realtime.Interval, logger, hub, recorder)
		b.Filter = hub.HasSubscribers
		feedLoop = b.Run
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx, addr)
	})
	g.Go(func() error {
		return feedLoop(gctx)
	})

	return g.Wait()
}
