package profiler

import "context"

type threadKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// FromContext returns the thread stored in ctx, if any.
func FromContext(ctx context.Context) (*Thread, bool) {
	t, ok := ctx.Value(threadKey{}).(*Thread)
	return t, ok && t != nil
}

// Begin opens region name on the thread carried by ctx. Without one it
// returns a nil guard whose End does nothing, so instrumented code runs
// unchanged outside a session.
func Begin(ctx context.Context, name string) *Region {
	t, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return t.Begin(name)
}
