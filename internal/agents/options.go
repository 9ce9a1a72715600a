package agents

import (
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/metrics"
)

type agentOptions struct {
	log     zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	handlers []callbacks.Handler
}

// Option configures the ambient dependencies of an agent.
type Option func(*agentOptions)

func WithLogger(l zerolog.Logger) Option {
	return func(o *agentOptions) { o.log = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(o *agentOptions) { o.metrics = r }
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *agentOptions) { o.now = now }
}

// WithCallbacks attaches eino callback handlers to every chain invocation.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(o *agentOptions) { o.handlers = append(o.handlers, handlers...) }
}

func buildOptions(component string, opts []Option) agentOptions {
	o := agentOptions{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With().Str("component", component).Logger()
	return o
}

func (o agentOptions) timestamp() string {
	return o.now().UTC().Format(time.RFC3339)
}

func (o agentOptions) invokeOptions() []compose.Option {
	if len(o.handlers) == 0 {
		return nil
	}
	return []compose.Option{compose.WithCallbacks(o.handlers...)}
}
