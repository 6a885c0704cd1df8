// Request metrics interceptor and the side HTTP server for scrapes and health checks
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/nainya/catalogtree/internal/logger"
	"github.com/nainya/catalogtree/internal/metrics"
)

// GrpcMetricsInterceptor records count, latency and in-flight gauge for every
// tree RPC and logs the call
func GrpcMetricsInterceptor(m *metrics.Metrics, log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		m.GrpcRequestsInFlight.Inc()
		defer m.GrpcRequestsInFlight.Dec()

		resp, err := handler(ctx, req)

		elapsed := time.Since(start)
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		m.RecordGrpcRequest(info.FullMethod, outcome, elapsed)
		log.LogGrpcRequest(info.FullMethod, elapsed, err)
		return resp, err
	}
}

// profiles are the runtime profiles served under /debug/pprof/
var profiles = []string{"heap", "goroutine", "threadcreate", "block", "mutex", "allocs"}

// ObservabilityServer serves Prometheus metrics, liveness and readiness
// checks for the tree service, and pprof
type ObservabilityServer struct {
	server *http.Server
	log    *logger.Logger
}

// NewObservabilityServer creates a new HTTP server for observability.
// ready reports whether the row source answers; nil means always ready.
func NewObservabilityServer(port int, log *logger.Logger, ready func(context.Context) error) *ObservabilityServer {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy", "service": "catalogtree"})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	for _, name := range profiles {
		mux.Handle("/debug/pprof/"+name, pprof.Handler(name))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &ObservabilityServer{
		server: server,
		log:    log,
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Handler exposes the mux for tests
func (o *ObservabilityServer) Handler() http.Handler {
	return o.server.Handler
}

// Start serves until Shutdown is called
func (o *ObservabilityServer) Start() error {
	o.log.Info("observability server listening").
		Str("addr", o.server.Addr).
		Strs("paths", []string{"/metrics", "/health", "/ready", "/debug/pprof/"}).
		Send()

	if err := o.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("observability server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight scrapes and stops the server
func (o *ObservabilityServer) Shutdown(ctx context.Context) error {
	o.log.Info("observability server stopping").Send()
	return o.server.Shutdown(ctx)
}
