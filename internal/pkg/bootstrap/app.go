// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tablecover/internal/pkg/logger"
	"tablecover/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// AppCtx 是交给每个服务注册路由和后台任务的上下文
type AppCtx struct {
	Ctx    context.Context
	Mux    *http.ServeMux
	Config *Config

	group   *errgroup.Group
	closers []func(ctx context.Context) error
}

// Go 启动一个随服务生命周期运行的后台任务，ctx 在关停时被取消
func (a *AppCtx) Go(fn func(ctx context.Context) error) {
	a.group.Go(func() error { return fn(a.Ctx) })
}

// OnShutdown 注册关停时的清理函数，按注册的逆序执行
func (a *AppCtx) OnShutdown(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Config           *Config
	RegisterHandlers func(appCtx *AppCtx) error // 允许每个服务注册自己的 HTTP 路由和后台任务
}

// StartService 封装了服务的通用启动和优雅关停逻辑，阻塞直到收到退出信号。
func StartService(info AppInfo) error {
	cfg := info.Config
	if cfg == nil {
		cfg = GetCurrentConfig()
	}

	// 1. 日志与链路追踪
	logger.Init(info.ServiceName, cfg.App.LogLevel, cfg.App.LogPretty)
	log := zlog.Logger

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return errors.Wrap(err, "init tracer provider")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)
	g, gctx := errgroup.WithContext(ctx)

	// 2. 注册路由
	mux := http.NewServeMux()
	appCtx := &AppCtx{Ctx: gctx, Mux: mux, Config: cfg, group: g}
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(appCtx); err != nil {
			_ = tp.Shutdown(context.Background())
			return errors.Wrap(err, "register handlers")
		}
	}

	// 3. 启动 HTTP Server
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(gctx) },
	}
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
		return nil
	})

	// 4. 优雅关停，按顺序执行清理 (后进先出)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msgf("Shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// a. 先停止接收新请求，等待进行中的请求（包括提交中的订单）完成
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down http server")
		} else {
			log.Info().Msg("HTTP server shut down.")
		}

		// b. 关闭各服务注册的外部资源
		for i := len(appCtx.closers) - 1; i >= 0; i-- {
			if err := appCtx.closers[i](shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error during shutdown hook")
			}
		}

		// c. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down tracer provider")
		} else {
			log.Info().Msg("Tracer provider shut down.")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return err
}
