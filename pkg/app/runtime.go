package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/storage/sqlite"
)

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

// WithBaseBuilder sets the Builder used when no EngineBuilder is given. The
// runtime still supplies the shared store.
func WithBaseBuilder(b Builder) Option {
	return func(r *Runtime) {
		r.base = &b
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runtime) {
		r.log = l
	}
}

// Runtime keeps the current Engine and rebuilds it whenever the managed
// config file changes. A failed rebuild keeps the previous engine.
//
// Without WithBuilder the runtime opens one store from the initial config and
// shares it across rebuilds, so callers holding a replaced engine keep a
// working database. A changed DBPath takes effect on restart.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]
	store  *sqlite.Store

	builder EngineBuilder
	base    *Builder
	notify  func(string, string)
	log     zerolog.Logger
	cancel  context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr: cfgMgr,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.builder == nil {
		store, err := OpenStore(cfgMgr.Get())
		if err != nil {
			return nil, err
		}
		rt.store = store
		base := Builder{Log: rt.log}
		if rt.base != nil {
			base = *rt.base
		}
		rt.builder = func(cfg config.Config) (*Engine, error) {
			return base.BuildWithStore(cfg, store)
		}
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		rt.closeStore()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
		if err := rt.reload(cfg); err != nil {
			rt.log.Warn().Err(err).Msg("engine reload failed, keeping previous engine")
		}
	}); err != nil {
		cancel()
		rt.engine.Load().Close()
		rt.closeStore()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if err := r.engine.Swap(nil).Close(); err != nil {
		r.log.Warn().Err(err).Msg("engine close failed")
	}
	r.closeStore()
}

func (r *Runtime) closeStore() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn().Err(err).Msg("store close failed")
	}
	r.store = nil
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) reload(cfg config.Config) error {
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	if old := r.engine.Swap(engine); old != nil {
		if err := old.Close(); err != nil {
			r.log.Warn().Err(err).Uint64("version", old.Version).Msg("previous engine close failed")
		}
	}
	r.log.Info().Uint64("version", engine.Version).Msg("engine built")
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
