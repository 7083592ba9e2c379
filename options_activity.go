package session

import "github.com/goliatone/go-session-state/pkg/activity"

// WithActivityHooks attaches activity hooks notified when the model is bound
// and for each diagnostic. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *bindConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *bindConfig) {
		cfg.activityChannel = channel
	}
}

// ActivityHooks returns a copy of the hooks configured on the model.
func (m *Model) ActivityHooks() activity.Hooks {
	if m == nil {
		return nil
	}
	return m.cfg.activityHooks.Clone()
}

func (cfg bindConfig) emitter() *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: cfg.activityHooks.Enabled(),
		Channel: cfg.activityChannel,
	})
}
