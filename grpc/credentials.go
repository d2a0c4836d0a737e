// Package grpc attaches the current session's bearer token to outgoing gRPC
// calls, for backend services (such as messaging) that are gRPC-reachable.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
)

const authorizationKey = "authorization"

// TokenSource supplies the current bearer token, or "" when signed out.
// etuition.SessionStore.Token satisfies it.
type TokenSource func() string

// SessionCredentials implements credentials.PerRPCCredentials by reading the
// token per call, so a refresh mid-connection is picked up automatically.
type SessionCredentials struct {
	Source TokenSource

	// AllowInsecure permits use over non-TLS connections (local development).
	AllowInsecure bool
}

var _ credentials.PerRPCCredentials = (*SessionCredentials)(nil)

// NewSessionCredentials creates per-RPC credentials from a token source.
func NewSessionCredentials(source TokenSource) *SessionCredentials {
	return &SessionCredentials{Source: source}
}

// GetRequestMetadata implements credentials.PerRPCCredentials. Calls made
// while signed out carry no authorization metadata.
func (c *SessionCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token := ""
	if c.Source != nil {
		token = c.Source()
	}
	if token == "" {
		return nil, nil
	}
	return map[string]string{authorizationKey: "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c *SessionCredentials) RequireTransportSecurity() bool {
	return !c.AllowInsecure
}

// UnaryClientInterceptor returns an interceptor that adds the bearer token to
// outgoing unary calls, for dial options that cannot carry per-RPC
// credentials.
func UnaryClientInterceptor(source TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if token := source(); token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+token)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// TokenFromIncomingContext extracts a bearer token from incoming metadata.
// Useful for test servers asserting what the client attached.
func TokenFromIncomingContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return ""
	}
	const prefix = "Bearer "
	if len(values[0]) > len(prefix) && values[0][:len(prefix)] == prefix {
		return values[0][len(prefix):]
	}
	return ""
}
