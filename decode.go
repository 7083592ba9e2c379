package session

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-session-state/internal/hydrate"
)

// Decode copies the current field values into dst, a pointer to a struct or
// map. Struct fields are matched by their `session` tag or name. Unset
// values are skipped, leaving Optional fields invalid and others untouched.
func (m *Model) Decode(dst any) error {
	cfg := hydrate.DefaultConfig()
	cfg.Hooks = []mapstructure.DecodeHookFunc{optionalDecodeHook}
	return hydrate.Into(hydrate.Context{Model: m.ID()}, m.payload(), dst, cfg)
}

// DecodeModel reads m into a new T.
func DecodeModel[T any](m *Model) (T, error) {
	decoder := hydrate.NewDecoder[T](hydrate.WithDecodeHook[T](optionalDecodeHook))
	return decoder.Decode(hydrate.Context{Model: m.ID()}, m.payload())
}

func (m *Model) payload() map[string]any {
	payload := make(map[string]any, len(m.accessors))
	for _, acc := range m.accessors {
		value := acc.Read()
		if IsUnset(value) {
			continue
		}
		payload[acc.Name()] = value
	}
	return payload
}

// optionalDecodeHook wraps plain values into Optional targets.
func optionalDecodeHook(from, to reflect.Type, data any) (any, error) {
	elem, ok := optionalElemOf(to)
	if !ok || from == to {
		return data, nil
	}
	out := reflect.New(to).Elem()
	if data == nil || IsUnset(data) {
		return out.Interface(), nil
	}
	value, err := hydrate.Coerce(data, elem, optionalDecodeHook)
	if err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", to, err)
	}
	if value != nil {
		out.Field(0).Set(reflect.ValueOf(value))
	}
	out.Field(1).SetBool(true)
	return out.Interface(), nil
}
