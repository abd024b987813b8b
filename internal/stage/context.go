package stage

import "context"

type ctxKey int

const (
	keyStage ctxKey = iota
	keyRunID
	keyRequestID
)

func with(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key ctxKey) (string, bool) {
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithStage tags ctx with the running stage name; an empty name is ignored.
func WithStage(ctx context.Context, name string) context.Context { return with(ctx, keyStage, name) }

// StageFromContext returns the stage set by WithStage.
func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyStage) }

// WithRunID tags ctx with a training run ID.
func WithRunID(ctx context.Context, id string) context.Context { return with(ctx, keyRunID, id) }

// RunIDFromContext returns the run ID set by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyRunID) }

// WithRequestID tags ctx with an HTTP correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, keyRequestID, id)
}

// RequestIDFromContext returns the correlation ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyRequestID) }
