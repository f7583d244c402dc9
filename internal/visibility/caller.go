package visibility

import "context"

type callerKey struct{}

// WithCaller returns a child context naming the caller, reported in
// InvalidArgumentError messages.
func WithCaller(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, callerKey{}, name)
}

// CallerFrom returns the caller name carried by ctx, or "unknown".
func CallerFrom(ctx context.Context) string {
	if name, ok := ctx.Value(callerKey{}).(string); ok && name != "" {
		return name
	}

	return "unknown"
}
