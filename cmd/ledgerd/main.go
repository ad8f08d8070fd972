package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carbonledger/carbonledger/internal/companyreg"
	"github.com/carbonledger/carbonledger/internal/events"
	"github.com/carbonledger/carbonledger/internal/health"
	"github.com/carbonledger/carbonledger/internal/identity"
	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/carbonledger/carbonledger/internal/server/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("ledgerd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("ledgerd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("ledger.admin", "admin")
	viper.SetDefault("ledger.max_scan_width", 50)
	viper.SetDefault("auth.token_secret", "")
	viper.SetDefault("auth.issuer_url", "")
	viper.SetDefault("auth.token_ttl_seconds", 3600)
	viper.SetDefault("registry.mode", "static")
	viper.SetDefault("registry.companies", []string{})
	viper.SetDefault("events.webhook_urls", []string{})
	viper.SetDefault("events.webhook_secret", "")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	tokenSecret := viper.GetString("auth.token_secret")
	if tokenSecret == "" {
		return errors.New("auth.token_secret must be set (AUTH_TOKEN_SECRET)")
	}

	// ── Database / Store ──────────────────────────────────────────────────────
	checker := health.NewChecker(logger)

	var store ledger.Store
	var pool *pgxpool.Pool
	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		var err error
		pool, err = pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		store = ledger.NewPostgresStore(pool, logger)
		checker.Add("postgres", health.PingFunc(pool.Ping))
	} else {
		logger.Warn("no database.url configured, using in-memory store; all state is lost on restart")
		store = ledger.NewMemoryStore()
	}

	// ── Company registry ─────────────────────────────────────────────────────
	var registry ledger.CompanyRegistry
	switch mode := viper.GetString("registry.mode"); mode {
	case "postgres":
		if pool == nil {
			return errors.New("registry.mode=postgres requires database.url")
		}
		registry = companyreg.NewPostgresRegistry(pool)
	case "static":
		companies := viper.GetStringSlice("registry.companies")
		if len(companies) == 0 {
			logger.Warn("registry.companies is empty, no company can log emissions")
		}
		registry = companyreg.NewStaticRegistry(companies)
	default:
		return fmt.Errorf("unknown registry.mode %q", mode)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	admin := ledger.Principal(viper.GetString("ledger.admin"))
	eng := ledger.NewEngine(store, registry, admin, logger)
	eng.SetMaxScanWidth(viper.GetUint64("ledger.max_scan_width"))

	emitters := events.Multi{events.NewLogEmitter(logger)}
	if urls := viper.GetStringSlice("events.webhook_urls"); len(urls) > 0 {
		wh := events.NewWebhookEmitter(urls, viper.GetString("events.webhook_secret"), logger)
		wh.SetMetricsRecorder(handler.RecordWebhookDelivery)
		emitters = append(emitters, wh)
		logger.Info("webhook emitter configured", zap.Int("endpoints", len(urls)))
	}
	eng.SetEmitter(emitters)

	n, err := eng.TotalEntries(context.Background())
	if err != nil {
		return fmt.Errorf("read entry counter: %w", err)
	}
	paused, err := eng.Paused(context.Background())
	if err != nil {
		return fmt.Errorf("read pause state: %w", err)
	}
	logger.Info("ledger ready",
		zap.Uint64("entries", n),
		zap.Bool("paused", paused),
		zap.String("admin", string(admin)),
	)

	// ── Tokens ────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	issuerURL := viper.GetString("auth.issuer_url")
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}
	tokenTTL := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
	tokens := identity.NewTokenIssuer([]byte(tokenSecret), issuerURL, tokenTTL)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())
	router.GET("/metrics", handler.MetricsHandler())
	checker.Register(router)

	public := router.Group("/api/v1")
	authed := router.Group("/api/v1", handler.Auth(tokens))
	handler.NewLedgerHandler(eng, logger).Register(public, authed)
	handler.NewAdminHandler(eng, logger).Register(authed)

	// ── Serve ─────────────────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("ledgerd HTTP listening", zap.Int("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down ledgerd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("ledgerd stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
