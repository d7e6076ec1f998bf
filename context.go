package jobAuth

import "context"

// requestMeta is the caller information the Engine copies onto audit events.
type requestMeta struct {
	clientIP  string
	userAgent string
	requestID string
}

type requestMetaKey struct{}

func metaFromContext(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

// withMeta stores a modified copy, so contexts derived earlier keep their
// own values.
func withMeta(ctx context.Context, set func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFromContext(ctx)
	set(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.clientIP = ip })
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = userAgent })
}

// WithRequestID attaches a correlation ID to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.requestID = requestID })
}

func clientIPFromContext(ctx context.Context) string { return metaFromContext(ctx).clientIP }

func userAgentFromContext(ctx context.Context) string { return metaFromContext(ctx).userAgent }

// RequestIDFromContext returns the ID attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string { return metaFromContext(ctx).requestID }
