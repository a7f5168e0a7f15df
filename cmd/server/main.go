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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/advice"
	"github.com/Skufu/diabetes-risk/internal/config"
	"github.com/Skufu/diabetes-risk/internal/model"
	"github.com/Skufu/diabetes-risk/internal/observability"
	"github.com/Skufu/diabetes-risk/internal/pipeline"
	"github.com/Skufu/diabetes-risk/internal/server"
	"github.com/Skufu/diabetes-risk/internal/store"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:          "diabetes-risk",
		Short:        "Estimate type 2 diabetes risk from lifestyle survey answers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("model-path", "", "local model artifact, YAML or JSON (MODEL_PATH)")
	flags.String("model-url", "", "base URL of a predict_proba inference server (MODEL_URL)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	_ = v.BindPFlag("MODEL_PATH", flags.Lookup("model-path"))
	_ = v.BindPFlag("MODEL_URL", flags.Lookup("model-url"))
	_ = v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	serve := newServeCmd(v)
	root.RunE = serve.RunE
	root.AddCommand(serve, newAssessCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			gin.SetMode(cfg.GinMode)

			logger := observability.NewLogger(cfg.Logger)
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				_ = logger.Sync()
				return err
			}
			defer a.Close()

			deps := server.Deps{
				Pipeline:       a.pipeline,
				Metrics:        a.metrics,
				Limiter:        server.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
				Logger:         logger,
				AllowedOrigins: cfg.AllowedOrigins,
			}
			if a.store != nil {
				deps.DB = a.store
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           server.NewRouter(deps),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				// advice generation can take a while
				WriteTimeout: cfg.Model.Timeout + cfg.Gemini.Timeout + 15*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("server error", zap.Error(err))
				}
			}()

			logger.Info("server listening",
				zap.String("port", cfg.Port),
				zap.Bool("advice", a.pipeline.AdviceEnabled()),
				zap.Bool("db", a.store != nil),
			)
			waitForShutdown(srv, logger)
			return nil
		},
	}
	return cmd
}

// app holds the long-lived collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
	store    *store.PostgresStore
}

// buildApp loads the classifier and wires the optional advisor and audit
// store. A classifier that cannot be loaded is fatal.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	clf, err := model.Load(ctx, model.Options{
		Path:    cfg.Model.Path,
		URL:     cfg.Model.URL,
		Timeout: cfg.Model.Timeout,
	}, logger.Named("model"))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(a.metrics),
	}

	if cfg.Gemini.APIKey != "" {
		adv, err := advice.NewGeminiAdvisor(ctx, advice.GeminiOptions{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.Gemini.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("advice client: %w", err)
		}
		opts = append(opts, pipeline.WithAdvisor(adv))
	} else {
		logger.Warn("GEMINI_API_KEY not set, advice generation disabled")
	}

	if cfg.Database.Enabled {
		st, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := st.InitSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		a.store = st
		opts = append(opts, pipeline.WithRecorder(st))
	}

	a.pipeline = pipeline.New(clf, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

func waitForShutdown(srv *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
