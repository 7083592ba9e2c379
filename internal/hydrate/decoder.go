// Package hydrate decodes field values read from a session store into typed
// Go values.
package hydrate

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// TagName is the struct tag consulted for field names.
const TagName = "session"

// Context identifies the model a payload was read from.
type Context struct {
	Model string
	Field string
}

func (ctx Context) label() string {
	if ctx.Field != "" {
		return ctx.Model + "." + ctx.Field
	}
	return ctx.Model
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// Config holds the mapstructure settings shared by Into and Decoder.
type Config struct {
	TagName     string
	Weak        bool
	ErrorUnused bool
	Hooks       []mapstructure.DecodeHookFunc
}

// DefaultConfig decodes with the session tag and weak typing enabled.
func DefaultConfig() Config {
	return Config{TagName: TagName, Weak: true}
}

func (cfg Config) decoder(result any) (*mapstructure.Decoder, error) {
	tag := cfg.TagName
	if tag == "" {
		tag = TagName
	}
	hooks := make([]mapstructure.DecodeHookFunc, 0, len(cfg.Hooks)+2)
	hooks = append(hooks, cfg.Hooks...)
	hooks = append(hooks,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	)
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		Result:           result,
		TagName:          tag,
		WeaklyTypedInput: cfg.Weak,
		ErrorUnused:      cfg.ErrorUnused,
	})
}

// Into decodes payload into dst, which must be a non-nil pointer.
func Into(ctx Context, payload map[string]any, dst any, cfg Config) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("hydrate: destination for %q must be a non-nil pointer, got %T", ctx.label(), dst)
	}
	dec, err := cfg.decoder(dst)
	if err != nil {
		return fmt.Errorf("hydrate: configure decoder for %q: %w", ctx.label(), err)
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
	}
	return nil
}

// Coerce converts value to the Go type rt. Interface targets and values
// already of type rt are returned unchanged.
func Coerce(value any, rt reflect.Type, hooks ...mapstructure.DecodeHookFunc) (any, error) {
	if rt == nil || rt.Kind() == reflect.Interface {
		return value, nil
	}
	if value != nil && reflect.TypeOf(value) == rt {
		return value, nil
	}
	target := reflect.New(rt)
	cfg := DefaultConfig()
	cfg.Hooks = hooks
	dec, err := cfg.decoder(target.Interface())
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(value); err != nil {
		return nil, fmt.Errorf("hydrate: convert %T to %s: %w", value, rt, err)
	}
	return target.Elem().Interface(), nil
}

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts field payloads into strongly typed structs.
type Decoder[T any] struct {
	cfg       Config
	preHooks  []PreHook
	postHooks []PostHook[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDecodeHook adds a mapstructure decode hook.
func WithDecodeHook[T any](hook mapstructure.DecodeHookFunc) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.cfg.Hooks = append(d.cfg.Hooks, hook)
		}
	}
}

// WithStrictTypes disables weak type conversion.
func WithStrictTypes[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.cfg.Weak = false
	}
}

// WithErrorUnused fails when the payload carries keys T has no field for.
func WithErrorUnused[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.cfg.ErrorUnused = true
	}
}

// NewDecoder builds a Decoder using DefaultConfig.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{cfg: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks. The payload map
// is not modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %q", ctx.label())
	}

	current := make(map[string]any, len(payload))
	for key, value := range payload {
		current[key] = value
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if err := Into(ctx, current, &result, d.cfg); err != nil {
		return zero, err
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.label(), err)
		}
	}

	return result, nil
}
