// cmd/quote-service/main.go
package main

import (
	"context"
	"os"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"tablecover/internal/pkg/bootstrap"
	"tablecover/internal/pkg/httpclient"
	"tablecover/internal/pkg/logger"
	"tablecover/internal/pkg/mq"
	"tablecover/internal/pkg/redis"
	"tablecover/internal/service/quote/application"
	"tablecover/internal/service/quote/infrastructure/adapter"
	"tablecover/internal/service/quote/infrastructure/rule"
	"tablecover/internal/service/quote/interfaces"
)

const serviceName = "quote-service"

// main 是应用的组装根：创建并组装所有依赖项，然后启动服务。
func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = bootstrap.DefaultConfigPath
	}
	cfg, err := bootstrap.LoadConfig(path)
	if err != nil {
		zlog.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}

	err = bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Config:           cfg,
		RegisterHandlers: registerHandlers,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("service exited with error")
	}
}

func registerHandlers(appCtx *bootstrap.AppCtx) error {
	ctx := appCtx.Ctx
	cfg := appCtx.Config
	tracer := otel.Tracer(serviceName)

	// 1. 出站依赖：接单端点
	intake := adapter.NewIntakeHTTPAdapter(httpclient.NewClient(tracer), cfg.Intake.Endpoint)

	// 2. 联系信息校验规则
	contactRules := make([]rule.ContactRule, 0, len(cfg.Rules.Contact))
	for _, r := range cfg.Rules.Contact {
		contactRules = append(contactRules, rule.ContactRule{Field: r.Field, Expr: r.Expr})
	}
	rules, err := rule.NewCELContactRules(contactRules)
	if err != nil {
		return err
	}

	opts := []application.Option{
		application.WithContactRules(rules),
		application.WithSubmitTimeout(cfg.Intake.Timeout),
	}

	// 3. 可选：Kafka 订单事件
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
		appCtx.OnShutdown(func(context.Context) error { return writer.Close() })
		opts = append(opts, application.WithNotifier(adapter.NewNotificationKafkaAdapter(writer)))
		logger.Ctx(ctx).Info().Strs("brokers", cfg.Infra.Kafka.Brokers).Str("topic", cfg.Infra.Kafka.Topic).Msg("order events enabled")
	}

	// 4. 可选：多副本部署时的 Redis 提交守卫
	if cfg.Infra.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			return err
		}
		appCtx.OnShutdown(func(context.Context) error { return rdb.Close() })
		opts = append(opts, application.WithSubmissionGuard(
			adapter.NewSubmissionGuardRedisAdapter(rdb.GetClient(), cfg.Infra.Redis.GuardTTL),
		))
		logger.Ctx(ctx).Info().Str("addr", cfg.Infra.Redis.Addr).Msg("redis submission guard enabled")
	}

	// 5. 应用服务与会话回收
	sessions := application.NewSessionStore(cfg.Session.TTL)
	service := application.NewQuoteApplicationService(sessions, intake, tracer, opts...)
	appCtx.Go(func(ctx context.Context) error {
		sessions.Run(ctx, cfg.Session.EvictInterval)
		return nil
	})

	// 6. 路由
	interfaces.NewQuoteHandler(service, cfg.Session.TTL).RegisterRoutes(appCtx.Mux)
	interfaces.NewPushHandler(service).RegisterRoutes(appCtx.Mux)
	return nil
}
