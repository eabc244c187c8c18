package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ha1tch/ecotour/pkg/cache"
	"github.com/ha1tch/ecotour/pkg/catalog"
	"github.com/ha1tch/ecotour/pkg/config"
	"github.com/ha1tch/ecotour/pkg/events"
	"github.com/ha1tch/ecotour/pkg/extract"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/journal"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/nlquery"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/oracle"
	"github.com/ha1tch/ecotour/pkg/server"
	"github.com/ha1tch/ecotour/pkg/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ecotour",
		Short: "Eco-tourism ontology service",
		Long: `ecotour serves an eco-tourism ontology over HTTP: per-class
listings, ad hoc SPARQL reads, and natural language questions that
can read or modify the graph.`,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ecotour v%s\n", config.Version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides configuration)")
	serveCmd.Flags().String("data", "", "Ontology file (overrides configuration)")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the ontology schema to the data file",
		RunE:  runInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing data file")
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "query [sparql]",
		Short: "Run a SPARQL query against the data file",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional YAML file and the environment
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		cfg.DataFile = data
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Debug)
	printBanner(cfg)

	if err := ensureDataFile(cfg.DataFile, false); err != nil {
		return err
	}

	store, err := storage.Open(cfg.DataFile, logger)
	if err != nil {
		return err
	}
	logger.Info().Str("file", cfg.DataFile).Int("triples", store.Snapshot().Len()).Msg("Ontology loaded")

	m := metrics.New()
	m.SetTriples(store.Snapshot().Len())

	cacheInstance := newCache(cfg, logger)
	if cacheInstance != nil {
		defer cacheInstance.Close()
	}

	j, err := journal.New(cfg.JournalType, map[string]interface{}{"path": cfg.JournalPath})
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()
	logger.Info().Str("type", cfg.JournalType).Msg("Journal initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := newExecutor(ctx, cfg, store, logger)

	o := newOracle(ctx, cfg, m, logger)

	cat := catalog.New(executor, cacheInstance, m, logger)
	hub := events.NewHub(logger)
	applier := mutation.NewApplier(store, logger,
		mutation.WithJournal(j),
		mutation.WithInvalidator(cat),
		mutation.WithPublisher(hub),
		mutation.WithMetrics(m),
	)
	pipeline := nlquery.New(extract.New(o, logger), applier, executor, m, logger)

	srv := server.New(cfg, server.Components{
		Store:    store,
		Executor: executor,
		Catalog:  cat,
		Pipeline: pipeline,
		Applier:  applier,
		Journal:  j,
		Hub:      hub,
		Metrics:  m,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msg("Server ready to accept requests")
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	return nil
}

// newOracle returns oracle.Disabled when the selected provider is not
// configured or cannot be created
func newOracle(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) oracle.Oracle {
	if !cfg.OracleEnabled() {
		logger.Info().Str("provider", cfg.OracleProvider).Msg("No oracle configured, AI features disabled")
		return oracle.Disabled{}
	}

	var (
		o     oracle.Oracle
		model string
		err   error
	)
	switch cfg.OracleProvider {
	case "openai":
		model = cfg.OpenAIModel
		o, err = oracle.NewOpenAI(oracle.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OracleTimeout,
		}, m, logger)
	default:
		model = cfg.GeminiModel
		o, err = oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout, m, logger)
	}
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.OracleProvider).Msg("Failed to initialize text generation oracle, AI features disabled")
		return oracle.Disabled{}
	}
	logger.Info().Str("provider", cfg.OracleProvider).Str("model", model).Msg("Text generation oracle enabled")
	return o
}

// newCache returns nil when caching is disabled
func newCache(cfg *config.Config, logger zerolog.Logger) cache.Cache {
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	switch cfg.CacheType {
	case "none":
		logger.Info().Msg("Catalog cache disabled")
		return nil
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, ttl, "ecotour")
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, falling back to memory cache")
			return cache.NewMemoryCache(cfg.CacheSize, ttl)
		}
		logger.Info().Msg("Using Redis cache")
		return redisCache
	default:
		logger.Info().Msg("Using in-memory cache")
		return cache.NewMemoryCache(cfg.CacheSize, ttl)
	}
}

// newExecutor probes the remote endpoint once; any failure selects the
// local engine for the lifetime of the process.
func newExecutor(ctx context.Context, cfg *config.Config, store *storage.Store, logger zerolog.Logger) storage.Executor {
	local := storage.NewLocalExecutor(store, ontology.Prefixes)
	if !cfg.UseFuseki {
		logger.Info().Msg("Using local SPARQL engine")
		return local
	}

	if err := storage.Ping(ctx, cfg.FusekiPingURL, 2*time.Second); err != nil {
		logger.Warn().Err(err).Str("url", cfg.FusekiPingURL).Msg("Remote endpoint unavailable, using local SPARQL engine")
		return local
	}

	remote, err := storage.NewExecutor("remote", store, map[string]interface{}{
		"endpoint": cfg.FusekiEndpoint,
		"timeout":  cfg.OracleTimeout,
		"logger":   logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create remote executor, using local SPARQL engine")
		return local
	}
	logger.Info().Str("endpoint", cfg.FusekiEndpoint).Msg("Using remote SPARQL endpoint")
	return remote
}

// ensureDataFile seeds path with the schema when it does not exist
func ensureDataFile(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	g := graph.NewIndexedGraph()
	g.AddAll(ontology.SchemaQuads())
	return g.Save(path)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfg.DataFile); err == nil && !force {
		fmt.Printf("%s already exists (use --force to overwrite)\n", cfg.DataFile)
		return nil
	}
	if err := ensureDataFile(cfg.DataFile, force); err != nil {
		return err
	}
	fmt.Printf("Wrote ontology schema to %s\n", cfg.DataFile)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DataFile, zerolog.Nop())
	if err != nil {
		return err
	}
	res, err := storage.NewLocalExecutor(store, ontology.Prefixes).Query(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(strings.Join(res.Vars, "\t"))
	for _, record := range res.Records() {
		values := make([]string, len(res.Vars))
		for i, v := range res.Vars {
			if s, ok := record[v].(string); ok {
				values[i] = s
			}
		}
		fmt.Println(strings.Join(values, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(res.Rows))
	return nil
}

func printBanner(cfg *config.Config) {
	green := "\033[1;32m"
	reset := "\033[0m"

	fmt.Print(green)
	fmt.Println("//////////////////////////////////////////////")
	fmt.Println("//..........................................//")
	fmt.Println("//......ecotour.............................//")
	fmt.Println("//..........................................//")
	fmt.Println("//////////////////////////////////////////////")
	fmt.Print(reset)

	fmt.Println()
	fmt.Println("//////////////////////////// ecotour " + config.Version + " /////////////////////////////")
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Printf("  Data file: %s\n", cfg.DataFile)
	fmt.Println()
	fmt.Println("Query Configuration:")
	if cfg.UseFuseki {
		fmt.Printf("  Remote endpoint: %s\n", cfg.FusekiEndpoint)
	} else {
		fmt.Println("  Remote endpoint: disabled")
	}
	if cfg.OracleEnabled() {
		model := cfg.GeminiModel
		if cfg.OracleProvider == "openai" {
			model = cfg.OpenAIModel
		}
		fmt.Printf("  Oracle: %s %s (timeout %s)\n", cfg.OracleProvider, model, cfg.OracleTimeout)
	} else {
		fmt.Println("  Oracle: disabled")
	}
	fmt.Println()
	fmt.Println("Cache Configuration:")
	fmt.Printf("  Type: %s\n", cfg.CacheType)
	fmt.Printf("  TTL: %d seconds\n", cfg.CacheTTL)
	if cfg.CacheType == "redis" {
		fmt.Printf("  Redis: %s:%d\n", cfg.RedisHost, cfg.RedisPort)
	}
	fmt.Println()
	fmt.Println("Journal Configuration:")
	fmt.Printf("  Type: %s\n", cfg.JournalType)
	fmt.Printf("  Path: %s\n", cfg.JournalPath)
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println()
}
