package session

import (
	"context"
	"log"

	"github.com/goliatone/go-session-state/pkg/activity"
)

// Option configures Bind.
type Option func(*bindConfig)

type bindConfig struct {
	store           Store
	factory         StoreFactory
	suppress        bool
	strict          bool
	logger          DiagnosticLogger
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evalLogger      EvaluatorLogger
	evalArgs        map[string]any
	activityHooks   activity.Hooks
	activityChannel string
	ctx             context.Context
}

func applyOptions(opts []Option) bindConfig {
	cfg := bindConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithStore binds the model to store.
func WithStore(store Store) Option {
	return func(cfg *bindConfig) {
		cfg.store = store
		cfg.factory = nil
	}
}

// WithStoreFactory binds the model to the store returned by factory. Bind
// invokes the factory once.
func WithStoreFactory(factory StoreFactory) Option {
	return func(cfg *bindConfig) {
		cfg.factory = factory
		cfg.store = nil
	}
}

// WithSuppressDiagnostics disables diagnostics. Binding is otherwise
// unchanged.
func WithSuppressDiagnostics(suppress bool) Option {
	return func(cfg *bindConfig) {
		cfg.suppress = suppress
	}
}

// WithStrictDiagnostics makes Bind fail with a *DiagnosticsError when the
// declaration produces diagnostics. Suppression takes precedence.
func WithStrictDiagnostics(strict bool) Option {
	return func(cfg *bindConfig) {
		cfg.strict = strict
	}
}

// WithDiagnosticLogger routes diagnostics to logger. A nil logger discards
// them; they are still recorded on the model.
func WithDiagnosticLogger(logger DiagnosticLogger) Option {
	return func(cfg *bindConfig) {
		if logger == nil {
			cfg.logger = noopDiagnosticLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithEvaluator selects the evaluator for default expressions.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *bindConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares compiled default expressions across binds.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *bindConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to default expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *bindConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for default expressions.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *bindConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithDefaultArgs exposes args to default expressions as `args`.
func WithDefaultArgs(args map[string]any) Option {
	return func(cfg *bindConfig) {
		cfg.evalArgs = args
	}
}

// WithContext sets the context passed to activity hooks.
func WithContext(ctx context.Context) Option {
	return func(cfg *bindConfig) {
		cfg.ctx = ctx
	}
}

func (cfg bindConfig) diagnosticLogger() DiagnosticLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return stdDiagnosticLogger{logger: log.Default()}
}

func (cfg bindConfig) evaluatorLogger() EvaluatorLogger {
	if cfg.evalLogger != nil {
		return cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}

func (cfg bindConfig) context() context.Context {
	if cfg.ctx != nil {
		return cfg.ctx
	}
	return context.Background()
}
