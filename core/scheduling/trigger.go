package scheduling

import "context"

type triggerKey struct{}

// WithTrigger tags ctx with the surface that started a run ("http", "cron",
// "cli", "mqtt"). The tag ends up in the run log.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger stored in ctx or "manual".
func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "manual"
}
