package testfixtures

import (
	"time"

	"github.com/broady/proxykit"
)

// LoggingProxyName is the registered name of LoggingProxy.
const LoggingProxyName = "github.com/broady/proxykit/internal/testfixtures.LoggingProxy"

func init() {
	proxykit.RegisterBase(LoggingProxyName, func(args ...any) (proxykit.Dispatcher, error) {
		if len(args) != 1 {
			return nil, proxykit.Errorf(proxykit.CodeArgumentCount, "%s requires exactly one target, got %d arguments", LoggingProxyName, len(args))
		}
		return NewLoggingProxy(args[0]), nil
	})
}

// LoggingProxy is a custom base proxy that records a log entry after calls.
type LoggingProxy struct {
	*proxykit.ObjectProxy
	log string
}

// NewLoggingProxy creates a LoggingProxy around target.
func NewLoggingProxy(target any) *LoggingProxy {
	p := &LoggingProxy{}
	p.ObjectProxy = proxykit.NewObjectProxy(target, proxykit.WithAfterCall(p.afterCall))
	return p
}

func (p *LoggingProxy) afterCall(method string, args, results []any, start time.Time) []any {
	if method != "GetGraphInstance" && method != "MakeNewGraph" {
		p.log = "Log"
	}
	return results
}

// Derive returns a new LoggingProxy over instance with an empty log.
func (p *LoggingProxy) Derive(instance any) proxykit.Dispatcher {
	return NewLoggingProxy(instance)
}

// Log returns the recorded log.
func (p *LoggingProxy) Log() string {
	return p.log
}
