// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init 配置全局 zerolog，所有日志都带上 service 字段。
// pretty 为 true 时输出便于本地阅读的控制台格式。
func Init(serviceName, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	zlog.Logger = zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger()
	// context 中没有 logger 时退回到全局 logger，而不是静默丢弃
	zerolog.DefaultContextLogger = &zlog.Logger
}

// Ctx 返回 context 中的 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	return zlog.Ctx(ctx)
}

// With 在 context 中的 logger 上追加字段，并返回携带新 logger 的 context
func With(ctx context.Context, fields map[string]string) context.Context {
	lc := Ctx(ctx).With()
	for k, v := range fields {
		lc = lc.Str(k, v)
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}
