// Package middleware provides after-call hooks for base proxies.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/broady/proxykit"
)

// Logging creates a hook that logs every completed proxy call using slog.
// Each entry carries the method, the argument count, the duration and a
// call_id unique to the call.
//
//	p := proxykit.NewObjectProxy(target, proxykit.WithAfterCall(middleware.Logging(logger)))
func Logging(logger *slog.Logger) proxykit.AfterCallFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(method string, args, results []any, start time.Time) []any {
		logger.Info("proxy call completed",
			slog.String("call_id", uuid.NewString()),
			slog.String("method", method),
			slog.Int("args", len(args)),
			slog.Int("results", len(results)),
			slog.Duration("duration", time.Since(start)),
		)
		return results
	}
}
