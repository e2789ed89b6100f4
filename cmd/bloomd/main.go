package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/bloom/internal/config"
	"github.com/genricoloni/bloom/internal/domain"
	"github.com/genricoloni/bloom/internal/engine"
	"github.com/genricoloni/bloom/internal/fetcher"
	"github.com/genricoloni/bloom/internal/monitor"
	"github.com/genricoloni/bloom/internal/palette"
	"github.com/genricoloni/bloom/internal/present"
	"github.com/genricoloni/bloom/internal/render"
	"github.com/genricoloni/bloom/internal/server"
	"github.com/genricoloni/bloom/internal/style"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the full dependency graph, shared with tests so the graph
// can be validated without starting the daemon
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		func(c *config.AppConfig) domain.Config { return c },
		monitor.NewScreenResolution,
		func(l *zap.Logger) domain.Monitor { return monitor.NewMprisMonitor(l) },
		fetcher.NewHTTPFetcher,
		func(f *fetcher.HTTPFetcher) domain.Fetcher { return f },
		palette.NewExtractor,
		func(e *palette.Extractor) domain.Extractor { return e },
		present.NewFrameBuffer,
		func(b *present.FrameBuffer) domain.FrameSink { return b },
		style.NewCSSSink,
		func(s *style.CSSSink) domain.StyleSink { return s },
		render.NewPipeline,
		func(p *render.Pipeline) domain.PaletteTarget { return p },
		server.NewServer,
		engine.NewEngine,
	),
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// registerHooks ties the long-running components to the fx lifecycle.
// The loops run on their own context: the OnStart context only covers
// startup and is cancelled once the app is up.
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	mon domain.Monitor,
	eng *engine.Engine,
	pipe *render.Pipeline,
	srv *server.Server,
) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Bloom daemon starting")

			go func() {
				if err := mon.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Monitor terminated", zap.Error(err))
				}
			}()

			if err := pipe.Start(runCtx); err != nil {
				return err
			}
			if err := eng.Start(runCtx); err != nil {
				return err
			}
			return srv.Start(runCtx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			cancel()

			if err := srv.Stop(ctx); err != nil {
				logger.Warn("HTTP server shutdown failed", zap.Error(err))
			}
			if err := pipe.Stop(ctx); err != nil {
				logger.Warn("Pipeline shutdown failed", zap.Error(err))
			}
			if err := eng.Stop(ctx); err != nil {
				logger.Warn("Engine shutdown failed", zap.Error(err))
			}
			return mon.Stop(ctx)
		},
	})
}
