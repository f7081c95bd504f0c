package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Schaudge/HMMER/internal/config"
	"github.com/Schaudge/HMMER/internal/metrics"
	"github.com/Schaudge/HMMER/internal/model"
	"github.com/Schaudge/HMMER/internal/pipeline"
	"github.com/Schaudge/HMMER/internal/protocol"
	"github.com/Schaudge/HMMER/internal/search"
	"github.com/Schaudge/HMMER/internal/shard"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCommand() *cobra.Command {
	var (
		numThreads      int
		initialBackends int
		numShards       uint64
		myShard         uint64
		logLevel        string
		metricsAddr     string
		metricsEnabled  bool
		demo            bool
		demoObjects     uint64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the worker-node engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.Set("numThreads", numThreads)
			v.Set("initialBackendThreads", initialBackends)
			v.Set("numShards", numShards)
			v.Set("myShard", myShard)
			v.Set("logLevel", logLevel)
			v.Set("metricsAddr", metricsAddr)
			v.Set("metricsEnabled", metricsEnabled)
			cfg, err := config.Load(v)
			if err != nil {
				return errors.Wrap(err, "serve: load config")
			}

			configureLogger(cfg.LogLevel)
			log.Info().Str("config", cfg.String()).Msg("starting worker node")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			transport := protocol.NewChannelTransport(64)
			provider, pf := demoBackends(demoObjects)

			node, err := search.New(cfg, provider, pf, transport, log.Logger)
			if err != nil {
				return errors.Wrap(err, "serve: create worker node")
			}

			if cfg.MetricsEnabled {
				startMetricsServer(cfg.MetricsAddr, node)
			}

			if demo {
				go runDemoMaster(ctx, transport.MasterSide(), demoObjects)
			}

			if err := node.Serve(ctx); err != nil {
				log.Error().Err(err).Msg("worker node exited with error")
				return err
			}
			log.Info().Msg("worker node shut down cleanly")
			return nil
		},
	}

	cmd.Flags().IntVar(&numThreads, "num-threads", config.Default().NumThreads, "total worker threads")
	cmd.Flags().IntVar(&initialBackends, "initial-backend-threads", config.Default().InitialBackends, "threads starting in back-end duty")
	cmd.Flags().Uint64Var(&numShards, "num-shards", config.Default().NumShards, "total shards for this database")
	cmd.Flags().Uint64Var(&myShard, "my-shard", config.Default().MyShard, "this worker's shard index")
	cmd.Flags().StringVar(&logLevel, "log-level", config.Default().LogLevel, "zerolog level")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.Default().MetricsAddr, "Prometheus metrics listen address")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", config.Default().MetricsEnabled, "serve Prometheus metrics")
	cmd.Flags().BoolVar(&demo, "demo", false, "drive an in-process demo search against a synthetic in-memory shard")
	cmd.Flags().Uint64Var(&demoObjects, "demo-objects", 10000, "object count for the synthetic demo shard")

	return cmd
}

func configureLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func startMetricsServer(addr string, node *search.WorkerNode) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(node, "hmmworker"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// demoBackends wires a synthetic in-memory shard and an always-pass
// pipeline stub, so `serve --demo` exercises the full engine without a
// real database backend or comparison pipeline.
func demoBackends(objects uint64) (shard.Provider, pipeline.Factory) {
	provider := shard.StaticProvider{"demo": shard.NewMemShard(objects)}
	factory := pipeline.NewFactory(func() *pipeline.Stub {
		return &pipeline.Stub{
			FrontFunc: func(ctx context.Context, compareModel, object interface{}) (model.FrontResult, error) {
				return model.FrontResult{Outcome: model.Pass}, nil
			},
		}
	})
	return provider, factory
}

// runDemoMaster plays the master side of the protocol for --demo: one
// full-range search, then shutdown once hits are uploaded.
func runDemoMaster(ctx context.Context, master *protocol.MasterHandle, objects uint64) {
	if err := master.Send(ctx, protocol.Message{SearchStart: &protocol.SearchStart{
		Mode:       protocol.SequenceSearch,
		DatabaseID: "demo",
		Sequence:   "demo-query",
		Range:      model.Range{Start: 0, End: model.ObjectID(objects)},
	}}); err != nil {
		log.Error().Err(err).Msg("demo master: send SearchStart")
		return
	}
	if err := master.Send(ctx, protocol.Message{NoMoreWork: &protocol.NoMoreWork{}}); err != nil {
		log.Error().Err(err).Msg("demo master: send NoMoreWork")
		return
	}

	for {
		msg, err := master.Receive(ctx)
		if err != nil {
			return
		}
		if msg.HitsUpload != nil {
			log.Info().Int("hits", len(msg.HitsUpload.Hits)).Msg("demo search complete")
			_ = master.Send(ctx, protocol.Message{Shutdown: &protocol.Shutdown{}})
			return
		}
	}
}
