package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/config"
	"github.com/xxxsen/chromaproxy/internal/handler"
	"github.com/xxxsen/chromaproxy/internal/job"
	"github.com/xxxsen/chromaproxy/internal/middleware"
	"github.com/xxxsen/chromaproxy/internal/pkg/jwt"
	"github.com/xxxsen/chromaproxy/internal/schedule"
	"github.com/xxxsen/chromaproxy/internal/service"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "chromaproxy",
		Short: "REST facade over a chroma vector database",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "check that the configured vector database answers a heartbeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			client, err := vectordb.New(cfg.VectorDB)
			if err != nil {
				return fmt.Errorf("init vectordb: %w", err)
			}
			defer client.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := client.Heartbeat(ctx); err != nil {
				return fmt.Errorf("heartbeat %s: %w", cfg.VectorDB.URL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s vector database at %s is up\n", cfg.VectorDB.Type, cfg.VectorDB.URL)
			return nil
		},
	}

	var subject string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for the configured jwt secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			if ttl == 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLHrs) * time.Hour
			}
			token, err := jwt.GenerateToken(subject, []byte(cfg.Auth.JWTSecret), ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "chromaproxy", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.token_ttl_hours")

	rootCmd.AddCommand(runCmd, pingCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vectordb_type", cfg.VectorDB.Type),
		zap.String("vectordb_url", cfg.VectorDB.URL),
		zap.Bool("auto_create", cfg.VectorDB.AutoCreateEnabled()),
	)

	client, err := vectordb.New(cfg.VectorDB)
	if err != nil {
		return fmt.Errorf("init vectordb: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logutil.GetLogger(context.Background()).Error("close vectordb client", zap.Error(err))
		}
	}()

	svcOpts := service.Options{
		AutoCreate:     cfg.VectorDB.AutoCreateEnabled(),
		Timeout:        time.Duration(cfg.VectorDB.Timeout) * time.Millisecond,
		DefaultResults: cfg.Query.DefaultResults,
		MaxResults:     cfg.Query.MaxResults,
	}
	collectionService := service.NewCollectionService(client, svcOpts)
	documentService := service.NewDocumentService(client, svcOpts)

	systemHandler, err := handler.NewSystemHandler(client, 5*time.Second)
	if err != nil {
		return fmt.Errorf("init system handler: %w", err)
	}
	deps := handler.RouterDeps{
		Collections: handler.NewCollectionHandler(collectionService),
		Documents:   handler.NewDocumentHandler(documentService),
		Query:       handler.NewQueryHandler(documentService),
		System:      systemHandler,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		RateLimit: middleware.RateLimit(
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
			cfg.RateLimit.Limit,
			cfg.RateLimit.Capacity,
		),
	}

	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Recovery(),
			middleware.Metrics(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if !cfg.Heartbeat.Disabled && cfg.Heartbeat.Spec != "" {
		if err := scheduler.AddJob(job.NewHeartbeatJob(client, 5*time.Second), cfg.Heartbeat.Spec); err != nil {
			return fmt.Errorf("schedule heartbeat: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if !cfg.Heartbeat.Disabled && cfg.Heartbeat.Spec != "" {
		// set the gauge before the first tick; failures are logged by the scheduler
		_ = scheduler.Trigger(job.HeartbeatJobName)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
