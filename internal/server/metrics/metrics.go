// Package metrics owns the Prometheus registry of the server: request
// latency for both transports and a counter for purged refresh tokens.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	namespace = "echo"

	LabelGrpcService = "grpc_service"
	LabelGrpcMethod  = "grpc_method"
	LabelGrpcCode    = "grpc_code"
	LabelHttpPath    = "path"
	LabelHttpMethod  = "method"
	LabelHttpCode    = "code"

	unknownPathValue = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	grpcDuration *prometheus.HistogramVec
	httpDuration *prometheus.HistogramVec
	purged       prometheus.Counter
}

// New builds a registry with the process and Go runtime collectors plus the
// service's own collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		grpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for gRPC requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelGrpcService, LabelGrpcMethod, LabelGrpcCode}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelHttpPath, LabelHttpMethod, LabelHttpCode}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "purged_refresh_tokens_total",
			Help:      "Number of expired refresh tokens deleted by the purge loop.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.grpcDuration,
		m.httpDuration,
		m.purged,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) AddPurgedRefreshTokens(n int64) {
	if n > 0 {
		m.purged.Add(float64(n))
	}
}

func splitMethodName(fullMethodName string) (string, string) {
	fullMethodName = strings.TrimPrefix(fullMethodName, "/")
	if i := strings.Index(fullMethodName, "/"); i >= 0 {
		return fullMethodName[:i], fullMethodName[i+1:]
	}
	return "unknown", "unknown"
}

// UnaryServerInterceptor observes the duration and final status code of
// every unary call.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		service, method := splitMethodName(info.FullMethod)
		m.grpcDuration.With(prometheus.Labels{
			LabelGrpcService: service,
			LabelGrpcMethod:  method,
			LabelGrpcCode:    status.Code(err).String(),
		}).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// InstrumentHTTP is a chi middleware. The path label is the matched route
// pattern, so ids in URLs do not explode cardinality.
func (m *Metrics) InstrumentHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := unknownPathValue
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.httpDuration.With(prometheus.Labels{
			LabelHttpPath:   path,
			LabelHttpMethod: strings.ToLower(r.Method),
			LabelHttpCode:   strconv.Itoa(code),
		}).Observe(time.Since(start).Seconds())
	})
}
