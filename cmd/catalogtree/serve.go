package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nainya/catalogtree/internal/logger"
	"github.com/nainya/catalogtree/internal/metrics"
	"github.com/nainya/catalogtree/internal/server"
	"github.com/nainya/catalogtree/pkg/catalog"
	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/sqlsource"
	"github.com/nainya/catalogtree/pkg/tree"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC category tree service",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":50051", "gRPC listen address")
	f.Int("metrics-port", 9090, "observability HTTP port")
	f.Bool("migrate", true, "create tables before serving")
	mustBind(v, "server.addr", f.Lookup("addr"))
	mustBind(v, "metrics.port", f.Lookup("metrics-port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	a.log.LogServerStart(a.cfg.Server.Addr, a.dialect.String())

	var m *metrics.Metrics
	opts := catalog.Options{
		MaxDepth:    a.cfg.Tree.MaxDepth,
		BatchSize:   a.cfg.Tree.BatchSize,
		Concurrency: a.cfg.Tree.BatchConcurrency,
		Logger:      a.log.TreeLogger("paginate").Zerolog(),
	}
	obs := logger.NewTreeObserver(a.log)
	opts.Observer, opts.Rounds = obs, obs
	hook := a.log.LogDbOperation

	if a.cfg.Metrics.Enabled {
		m = metrics.NewMetrics(nil)
		done := make(chan struct{})
		defer close(done)
		go m.RunUptime(done)

		opts.Observer = tree.Observers{obs, m}
		opts.Rounds = hierarchy.RoundObservers{obs, m}
		hook = func(op string, d time.Duration, rows int, err error) {
			m.ObserveQuery(op, d, rows, err)
			a.log.LogDbOperation(op, d, rows, err)
		}

		obsSrv := server.NewObservabilityServer(a.cfg.Metrics.Port, a.log, a.db.PingContext)
		go func() {
			if err := obsSrv.Start(); err != nil {
				a.log.Error("observability server stopped").Err(err).Send()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obsSrv.Shutdown(shutdownCtx)
		}()
	}

	svc := catalog.NewService(a.store, opts, sqlsource.WithQueryHook(hook))
	srv := server.NewServer(svc, a.store, server.Options{Logger: a.log, Metrics: m})
	gs, hs := server.NewGRPCServer(srv, a.cfg.Server.Reflection)

	lis, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		a.log.LogServerShutdown()
		hs.SetServingStatus(server.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		gs.GracefulStop()
	}()

	a.log.LogServerReady(lis.Addr().String())
	return gs.Serve(lis)
}
