package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/psantana5/chrono/pkg/api"
	"github.com/psantana5/chrono/pkg/logging"
	"github.com/psantana5/chrono/pkg/metrics"
	"github.com/psantana5/chrono/pkg/ratelimit"
	"github.com/psantana5/chrono/pkg/registry"
	"github.com/psantana5/chrono/pkg/shutdown"
	"github.com/psantana5/chrono/pkg/stopwatch"
	tlsutil "github.com/psantana5/chrono/pkg/tls"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve named stopwatches over HTTP",
	Long: `Starts an HTTP server holding named stopwatches that clients can create,
start, stop, reset and restart. Prometheus metrics are exposed on /metrics.

Configuration keys (flag, config file or CHRONO_* environment):
  listen            address to listen on (default :8090)
  api_key           bearer token required by all routes except /health and /metrics
  rate_limit        requests per second per client (0 disables)
  rate_burst        burst size per client
  shutdown_timeout  grace period for in-flight requests
  tls_cert/tls_key  serve HTTPS with this key pair
  tls_client_ca     require client certificates signed by this CA

Use --tls-self-signed <dir> to generate a development key pair into dir.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8090", "address to listen on")
	serveCmd.Flags().Float64("rate-limit", 50, "requests per second per client, 0 disables")
	serveCmd.Flags().Int("rate-burst", 100, "burst size per client")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("rate_limit", serveCmd.Flags().Lookup("rate-limit"))
	viper.BindPFlag("rate_burst", serveCmd.Flags().Lookup("rate-burst"))
	serveCmd.Flags().String("tls-cert", "", "TLS certificate file")
	serveCmd.Flags().String("tls-key", "", "TLS key file")
	serveCmd.Flags().String("tls-client-ca", "", "CA for client certificate verification")
	serveCmd.Flags().String("tls-self-signed", "", "generate a self-signed key pair into this directory and use it")

	viper.BindPFlag("shutdown_timeout", serveCmd.Flags().Lookup("shutdown-timeout"))
	viper.BindPFlag("tls_cert", serveCmd.Flags().Lookup("tls-cert"))
	viper.BindPFlag("tls_key", serveCmd.Flags().Lookup("tls-key"))
	viper.BindPFlag("tls_client_ca", serveCmd.Flags().Lookup("tls-client-ca"))
}

// serverTLS returns the certificate and key files to serve with, if any
func serverTLS(cmd *cobra.Command, logger *logging.Logger) (string, string, error) {
	certFile, keyFile := viper.GetString("tls_cert"), viper.GetString("tls_key")
	if dir, _ := cmd.Flags().GetString("tls-self-signed"); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", "", err
		}
		certFile, keyFile = filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")
		host, _ := os.Hostname()
		if err := tlsutil.GenerateSelfSignedCert(certFile, keyFile, "chrono", 365*24*time.Hour, host); err != nil {
			return "", "", err
		}
		logger.Info("Generated self-signed certificate", map[string]interface{}{"cert": certFile, "key": keyFile})
	}
	if (certFile == "") != (keyFile == "") {
		return "", "", fmt.Errorf("both tls_cert and tls_key must be set")
	}
	return certFile, keyFile, nil
}

// newServeRouter mounts the stopwatch API and /metrics. The rate limiter
// runs before the api key check so rejected credentials are throttled too.
// A nil limiter disables rate limiting.
func newServeRouter(stopwatches *registry.Registry, logger *logging.Logger, gatherer prometheus.Gatherer, apiKey string, limiter *ratelimit.Limiter) *mux.Router {
	router := mux.NewRouter()
	api.NewStopwatchHandler(stopwatches, logger).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	if limiter != nil {
		router.Use(mux.MiddlewareFunc(limiter.Middleware(ratelimit.IPKeyFunc)))
	}
	router.Use(mux.MiddlewareFunc(api.RequireAPIKey(apiKey, "/health", "/metrics")))
	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger().WithField("command", "serve")
	listen := viper.GetString("listen")

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(promRegistry)
	if err != nil {
		return err
	}

	stopwatches := registry.New(nil, stopwatch.WithAnomalyHook(recorder.AnomalyHook()))
	promRegistry.MustRegister(metrics.NewCollector(stopwatches))

	var limiter *ratelimit.Limiter
	if rps := viper.GetFloat64("rate_limit"); rps > 0 {
		limiter = ratelimit.NewLimiter(rps, viper.GetInt("rate_burst"))
	}

	server := &http.Server{
		Addr:              listen,
		Handler:           newServeRouter(stopwatches, logger, promRegistry, viper.GetString("api_key"), limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	certFile, keyFile, err := serverTLS(cmd, logger)
	if err != nil {
		return err
	}
	if certFile != "" {
		cfg, err := tlsutil.LoadServerConfig(certFile, keyFile, viper.GetString("tls_client_ca"))
		if err != nil {
			return err
		}
		server.TLSConfig = cfg
	}

	mgr := shutdown.New(viper.GetDuration("shutdown_timeout"), logger)
	mgr.Register("http server", shutdown.StopHTTPServer(server))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", map[string]interface{}{
			"addr":       listen,
			"auth":       viper.GetString("api_key") != "",
			"rate_limit": limiter != nil,
			"tls":        server.TLSConfig != nil,
		})
		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		cancel()
	}()

	if limiter != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n := limiter.CleanupOldLimiters(10 * time.Minute); n > 0 {
						logger.Debug("Dropped idle rate limiters", map[string]interface{}{"count": n})
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if err := mgr.WaitWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
		return nil
	}
}
