package global

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"runtime"

	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	bb_otel "github.com/buildbarn/bb-fleet/pkg/otel"
	"github.com/buildbarn/bb-fleet/pkg/program"
	bb_prometheus "github.com/buildbarn/bb-fleet/pkg/prometheus"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/gorilla/mux"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DiagnosticsHTTPServerConfiguration contains the options of the web
// server that exposes Prometheus metrics, health checks and profiling
// endpoints.
type DiagnosticsHTTPServerConfiguration struct {
	ListenAddress    string `json:"listenAddress"`
	EnablePrometheus bool   `json:"enablePrometheus"`
	EnablePprof      bool   `json:"enablePprof"`
	// If set, only metrics whose name matches this regular
	// expression are exported.
	PrometheusMetricNamePattern string `json:"prometheusMetricNamePattern"`
}

// JaegerCollectorConfiguration contains the options of the Jaeger
// collector to which trace spans are sent.
type JaegerCollectorConfiguration struct {
	Endpoint string `json:"endpoint"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TracingConfiguration contains the options for exporting
// OpenTelemetry traces.
type TracingConfiguration struct {
	JaegerCollector *JaegerCollectorConfiguration `json:"jaegerCollector"`
	// gRPC connection to an OpenTelemetry collector, to which spans
	// are sent using OTLP.
	OtlpCollector      *bb_grpc.ClientConfiguration  `json:"otlpCollector"`
	Sampler            *bb_otel.SamplerConfiguration `json:"sampler"`
	ResourceAttributes map[string]string             `json:"resourceAttributes"`
	BatchTimeout       util.Duration                 `json:"batchTimeout"`
}

// ResourceLimitConfiguration contains the soft and hard limit of a
// single resource. Absent values denote infinity.
type ResourceLimitConfiguration struct {
	SoftLimit *uint64 `json:"softLimit"`
	HardLimit *uint64 `json:"hardLimit"`
}

// Configuration contains options that apply to all binaries.
type Configuration struct {
	// Paths of files to which log output is written in addition to
	// standard error.
	LogPaths              []string                              `json:"logPaths"`
	Umask                 *uint32                               `json:"umask"`
	SetResourceLimits     map[string]ResourceLimitConfiguration `json:"setResourceLimits"`
	MutexProfileFraction  int                                   `json:"mutexProfileFraction"`
	DiagnosticsHTTPServer *DiagnosticsHTTPServerConfiguration   `json:"diagnosticsHttpServer"`
	Tracing               *TracingConfiguration                 `json:"tracing"`
}

// ApplyConfiguration applies configuration options to the running
// process. These configuration options are global, in that they apply
// to all binaries, regardless of their purpose.
//
// The returned ClientFactory creates gRPC clients that are
// instrumented according to the configuration.
func ApplyConfiguration(configuration *Configuration, dependenciesGroup program.Group) (bb_grpc.ClientFactory, error) {
	if configuration == nil {
		configuration = &Configuration{}
	}

	// Set the umask, if requested.
	if umask := configuration.Umask; umask != nil {
		if err := setUmask(*umask); err != nil {
			return nil, util.StatusWrap(err, "Failed to set umask")
		}
	}

	// Set resource limits, if provided.
	for name, resourceLimit := range configuration.SetResourceLimits {
		if err := setResourceLimit(name, &resourceLimit); err != nil {
			return nil, util.StatusWrapf(err, "Failed to set resource limit %#v", name)
		}
	}

	// Logging.
	logWriters := append(make([]io.Writer, 0, len(configuration.LogPaths)+1), os.Stderr)
	for _, logPath := range configuration.LogPaths {
		w, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, util.StatusWrapf(err, "Failed to open log path %#v", logPath)
		}
		logWriters = append(logWriters, w)
	}
	log.SetOutput(io.MultiWriter(logWriters...))

	var grpcUnaryInterceptors []grpc.UnaryClientInterceptor
	var grpcStreamInterceptors []grpc.StreamClientInterceptor

	// Install Prometheus gRPC interceptors, only if the metrics
	// endpoint is enabled.
	diagnosticsHTTPServer := configuration.DiagnosticsHTTPServer
	if diagnosticsHTTPServer != nil && diagnosticsHTTPServer.EnablePrometheus {
		grpc_prometheus.EnableClientHandlingTimeHistogram(
			grpc_prometheus.WithHistogramBuckets(
				util.DecimalExponentialBuckets(-3, 6, 2)))
		grpcUnaryInterceptors = append(grpcUnaryInterceptors, grpc_prometheus.UnaryClientInterceptor)
		grpcStreamInterceptors = append(grpcStreamInterceptors, grpc_prometheus.StreamClientInterceptor)
	}

	// Perform tracing using OpenTelemetry.
	if tracingConfiguration := configuration.Tracing; tracingConfiguration != nil {
		tracerProvider, err := newTracerProviderFromConfiguration(tracingConfiguration)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tracerProvider)
		dependenciesGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			<-ctx.Done()
			return tracerProvider.Shutdown(context.Background())
		})

		// Construct a propagator which supports both the context
		// and Zipkin B3 propagation standards.
		otel.SetTextMapPropagator(
			propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader))))
	}

	// Enable mutex profiling.
	runtime.SetMutexProfileFraction(configuration.MutexProfileFraction)

	// Start a diagnostics web server that exposes Prometheus
	// metrics and provides a health check endpoint.
	if diagnosticsHTTPServer != nil {
		router := mux.NewRouter()
		router.HandleFunc("/-/healthy", func(http.ResponseWriter, *http.Request) {})
		router.HandleFunc("/-/ready", func(http.ResponseWriter, *http.Request) {})
		if diagnosticsHTTPServer.EnablePrometheus {
			var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
			if pattern := diagnosticsHTTPServer.PrometheusMetricNamePattern; pattern != "" {
				namePattern, err := regexp.Compile(pattern)
				if err != nil {
					return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid Prometheus metric name pattern")
				}
				gatherer = bb_prometheus.NewNameFilteringGatherer(gatherer, namePattern)
			}
			util.RegisterPrometheusHTTPEndpoint(router, gatherer)
		}
		if diagnosticsHTTPServer.EnablePprof {
			util.RegisterPprofHTTPEndpoints(router)
		}
		if err := bb_http.NewServersFromConfigurationAndServe(
			[]*bb_http.ServerConfiguration{{
				ListenAddresses: []string{diagnosticsHTTPServer.ListenAddress},
				AuthenticationPolicy: &bb_grpc.AuthenticationPolicy{
					Allow: map[string]any{},
				},
			}},
			bb_http.NewMetricsHandler(router, "DiagnosticsHTTPServer"),
			dependenciesGroup,
		); err != nil {
			return nil, util.StatusWrap(err, "Failed to launch diagnostics HTTP server")
		}
	}

	return bb_grpc.NewDeduplicatingClientFactory(
		bb_grpc.NewBaseClientFactory(
			grpcUnaryInterceptors,
			grpcStreamInterceptors)), nil
}

func newTracerProviderFromConfiguration(configuration *TracingConfiguration) (*sdktrace.TracerProvider, error) {
	var tracerProviderOptions []sdktrace.TracerProviderOption
	var batchSpanProcessorOptions []sdktrace.BatchSpanProcessorOption
	if d := configuration.BatchTimeout.Duration; d > 0 {
		batchSpanProcessorOptions = append(batchSpanProcessorOptions, sdktrace.WithBatchTimeout(d))
	}

	if jaegerConfiguration := configuration.JaegerCollector; jaegerConfiguration != nil {
		var collectorEndpointOptions []jaeger.CollectorEndpointOption
		if endpoint := jaegerConfiguration.Endpoint; endpoint != "" {
			collectorEndpointOptions = append(collectorEndpointOptions, jaeger.WithEndpoint(endpoint))
		}
		if username := jaegerConfiguration.Username; username != "" {
			collectorEndpointOptions = append(collectorEndpointOptions, jaeger.WithUsername(username))
		}
		if password := jaegerConfiguration.Password; password != "" {
			collectorEndpointOptions = append(collectorEndpointOptions, jaeger.WithPassword(password))
		}
		collectorEndpointOptions = append(collectorEndpointOptions, jaeger.WithHTTPClient(&http.Client{
			Transport: bb_http.NewMetricsRoundTripper(http.DefaultTransport, "Jaeger"),
		}))
		exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(collectorEndpointOptions...))
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create Jaeger collector span exporter")
		}
		tracerProviderOptions = append(
			tracerProviderOptions,
			sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter, batchSpanProcessorOptions...)))
	}

	if otlpConfiguration := configuration.OtlpCollector; otlpConfiguration != nil {
		client, err := bb_grpc.NewBaseClientFactory(nil, nil).NewClientFromConfiguration(otlpConfiguration)
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create OTLP gRPC client")
		}
		exporter, err := otlptrace.New(context.Background(), bb_otel.NewGRPCOTLPTraceClient(client))
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create OTLP span exporter")
		}
		tracerProviderOptions = append(
			tracerProviderOptions,
			sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter, batchSpanProcessorOptions...)))
	}

	// Set resource attributes, so that this process can be
	// identified uniquely.
	resourceAttributes := make([]attribute.KeyValue, 0, len(configuration.ResourceAttributes))
	for key, value := range configuration.ResourceAttributes {
		resourceAttributes = append(resourceAttributes, attribute.String(key, value))
	}
	tracerProviderOptions = append(
		tracerProviderOptions,
		sdktrace.WithResource(resource.NewSchemaless(resourceAttributes...)))

	// Create a Sampler, acting as a policy for when to sample.
	samplerConfiguration := configuration.Sampler
	if samplerConfiguration == nil {
		samplerConfiguration = &bb_otel.SamplerConfiguration{
			ParentBased: &bb_otel.SamplerConfiguration{Always: &struct{}{}},
		}
	}
	sampler, err := bb_otel.NewSamplerFromConfiguration(samplerConfiguration)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create sampler")
	}
	tracerProviderOptions = append(tracerProviderOptions, sdktrace.WithSampler(sampler))
	return sdktrace.NewTracerProvider(tracerProviderOptions...), nil
}
