// Command discovery-sync fetches course, program or search metadata from a
// discovery service and writes the records to stdout as a JSON array.
//
// Usage:
//
//	discovery-sync [flags] courses|programs|search
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/course-discovery-client/internal/config"
	"github.com/Sternrassler/course-discovery-client/pkg/client"
	"github.com/Sternrassler/course-discovery-client/pkg/logging"
	"github.com/Sternrassler/course-discovery-client/pkg/metrics"
	"github.com/Sternrassler/course-discovery-client/pkg/pagination"
	"github.com/Sternrassler/course-discovery-client/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/clientcredentials"
)

// options are the command line flags.
type options struct {
	configPath     string
	envFile        string
	filter         string
	catalogQueryID int
	params         paramFlag
	args           []string
}

// paramFlag collects repeated -param key=value flags.
type paramFlag url.Values

func (p paramFlag) String() string {
	return url.Values(p).Encode()
}

func (p paramFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	url.Values(p).Add(key, value)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("discovery-sync failed")
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	opts := &options{params: paramFlag{}}

	fs := flag.NewFlagSet("discovery-sync", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "optional YAML config file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	fs.StringVar(&opts.filter, "filter", "{}", "content filter JSON object for search")
	fs.IntVar(&opts.catalogQueryID, "catalog-query-id", 0, "label search output with a catalog query id")
	fs.Var(opts.params, "param", "extra query parameter key=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.args = fs.Args()
	if len(opts.args) != 1 {
		return nil, fmt.Errorf("expected exactly one of courses|programs|search, got %v", opts.args)
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "discovery-sync",
	})
	logger := logging.NewLogger("discovery-sync")

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	transportCfg := client.TransportConfig{
		BaseURL:           cfg.Discovery.BaseURL,
		HTTPClient:        newHTTPClient(ctx, cfg.OAuth),
		UserAgent:         cfg.Discovery.UserAgent,
		RequestsPerSecond: cfg.Discovery.RequestsPerSecond,
	}

	if cfg.Redis.URL != "" {
		redisClient, err := connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		transportCfg.Throttle = ratelimit.NewTracker(redisClient, logging.NewLogger("discovery-throttle"))
		logger.Info().Msg("Shared throttle state enabled")
	}

	transport, err := client.NewTransport(transportCfg)
	if err != nil {
		return err
	}

	clientCfg := client.DefaultConfig(transport)
	clientCfg.MaxRetries = cfg.Discovery.MaxRetries
	clientCfg.BackoffFactor = cfg.Discovery.Backoff()
	clientCfg.HTTPTimeout = cfg.Discovery.Timeout()

	discovery, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create discovery client: %w", err)
	}

	effective := discovery.Config()
	logger.Debug().
		Int("max_retries", effective.MaxRetries).
		Dur("backoff_factor", effective.BackoffFactor).
		Dur("http_timeout", effective.HTTPTimeout).
		Msg("Discovery client configured")

	records, err := fetch(ctx, discovery, opts)
	if err != nil {
		return err
	}

	logger.Info().Str("target", opts.args[0]).Int("records", len(records)).Msg("Sync finished")

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func fetch(ctx context.Context, discovery *client.Client, opts *options) ([]json.RawMessage, error) {
	params := url.Values(opts.params)
	logger := logging.NewLogger("discovery-sync")

	switch opts.args[0] {
	case "courses", "programs":
		kind := client.EndpointCourses
		if opts.args[0] == "programs" {
			kind = client.EndpointPrograms
		}
		result := discovery.FetchListResult(ctx, kind, params)
		if result.Status == pagination.StatusPartial {
			logger.Warn().Err(result.Err).Int("records", len(result.Records)).Msg("Listing incomplete, writing partial result")
		}
		return result.BestEffort(), nil

	case "search":
		var filter client.ContentFilter
		if err := json.Unmarshal([]byte(opts.filter), &filter); err != nil {
			return nil, fmt.Errorf("parse -filter: %w", err)
		}
		if opts.catalogQueryID != 0 {
			meta, err := client.LoadCatalogQueryMetadata(ctx, discovery, client.CatalogQuery{
				ID:            opts.catalogQueryID,
				ContentFilter: filter,
			})
			if err != nil {
				return nil, err
			}
			return meta.Metadata(), nil
		}
		return discovery.FetchSearch(ctx, filter, params)

	default:
		return nil, fmt.Errorf("unknown target %q (want courses, programs or search)", opts.args[0])
	}
}

// newHTTPClient returns an oauth2 client-credentials client, or a plain
// client when no token endpoint is configured.
func newHTTPClient(ctx context.Context, oauth config.OAuthConfig) *http.Client {
	if oauth.TokenURL == "" {
		return &http.Client{}
	}

	cc := clientcredentials.Config{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		TokenURL:     oauth.TokenURL,
	}
	return cc.Client(ctx)
}

func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return redisClient, nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
