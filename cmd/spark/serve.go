package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/spark/internal/config"
	"github.com/xxxsen/spark/internal/handler"
	"github.com/xxxsen/spark/internal/job"
	"github.com/xxxsen/spark/internal/middleware"
	"github.com/xxxsen/spark/internal/schedule"
)

func runServer(cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.String("addr", addr),
		zap.Int("generators", len(cfg.AI.Generators)),
		zap.Int("embedders", len(cfg.AI.Embedders)),
		zap.String("throttle", cfg.AI.Throttle.Mode),
	)

	deps := handler.RouterDeps{
		Blocks:    handler.NewBlockHandler(a.service, cfg.Pipeline.TopK),
		RateLimit: time.Duration(cfg.Server.RateLimitSeconds) * time.Second,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.Server.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if spec := cfg.Pipeline.EmbedRetryCron; spec != "" {
		scheduler := schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewEmbeddingRetryJob(a.pipeline), spec); err != nil {
			return fmt.Errorf("schedule embedding retry: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
		for name, next := range scheduler.Jobs() {
			logutil.GetLogger(ctx).Info("job next run", zap.String("job", name), zap.Time("next", next))
		}
	}
	a.logSummary(ctx, "ai ready")

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	a.logSummary(context.Background(), "session summary")
	return nil
}
