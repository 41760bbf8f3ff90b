package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyIdentity  contextKey = "identity"
	keyMethod    contextKey = "rpc_method"
)

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithIdentity adds the caller identity (EVM address) to context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, keyIdentity, identity)
}

// Identity extracts the caller identity from context.
func Identity(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyIdentity).(string)
	return v, ok && v != ""
}

// WithMethod adds the calling RPC method to context.
func WithMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, keyMethod, method)
}

// Method extracts the calling RPC method from context.
func Method(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyMethod).(string)
	return v, ok && v != ""
}
