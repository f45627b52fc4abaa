package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Options configures the gin request logging middleware.
type Options struct {
	// Name tags every request line, useful when several routers share a log.
	Name string

	// Custom logger
	Logger *zerolog.Logger

	// SkipPaths lists URL paths that are never logged (health probes etc).
	SkipPaths []string
}

// GinLogger is a gin middleware which uses zerolog.
func GinLogger() gin.HandlerFunc {
	return LoggerWithOptions(&Options{})
}

// LoggerWithOptions is a gin middleware which uses zerolog.
func LoggerWithOptions(opt *Options) gin.HandlerFunc {
	if opt.Logger == nil {
		opt.Logger = &log
	}
	skip := make(map[string]bool, len(opt.SkipPaths))
	for _, p := range opt.SkipPaths {
		skip[p] = true
	}

	return func(ctx *gin.Context) {
		z := opt.Logger
		if z.GetLevel() == zerolog.Disabled || skip[ctx.Request.URL.Path] {
			ctx.Next()
			return
		}

		begin := time.Now()
		path := ctx.Request.URL.Path
		if raw := ctx.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		ctx.Next()

		duration := time.Since(begin)
		statusCode := ctx.Writer.Status()

		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = z.Error()
		case statusCode >= 400:
			event = z.Warn()
		default:
			event = z.Info()
		}

		if opt.Name != "" {
			event.Str("name", opt.Name)
		}
		event.Str("client_ip", ctx.ClientIP()).
			Str("method", ctx.Request.Method).
			Str("path", path).
			Int("status_code", statusCode).
			Dur("elapsed_ms", duration)
		if ua := ctx.Request.UserAgent(); ua != "" {
			event.Str("user_agent", ua)
		}
		if ctx.Writer.Size() > 0 {
			event.Int("data_length", ctx.Writer.Size())
		}

		message := ctx.Errors.String()
		if message == "" {
			message = "Request"
		}
		event.Msg(message)
	}
}
