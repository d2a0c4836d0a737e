package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestSessionCredentials_GetRequestMetadata(t *testing.T) {
	token := "tok-1"
	creds := NewSessionCredentials(func() string { return token })

	md, err := creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata() error: %v", err)
	}
	if md["authorization"] != "Bearer tok-1" {
		t.Errorf("metadata = %v", md)
	}

	// Signed out: no metadata at all, not an empty header.
	token = ""
	md, err = creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata() error: %v", err)
	}
	if md != nil {
		t.Errorf("metadata = %v, want nil when signed out", md)
	}
}

func TestSessionCredentials_TransportSecurity(t *testing.T) {
	creds := NewSessionCredentials(func() string { return "" })
	if !creds.RequireTransportSecurity() {
		t.Error("TLS should be required by default")
	}
	creds.AllowInsecure = true
	if creds.RequireTransportSecurity() {
		t.Error("AllowInsecure should disable the TLS requirement")
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	token := "tok-2"
	interceptor := UnaryClientInterceptor(func() string { return token })

	var gotCtx context.Context
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		gotCtx = ctx
		return nil
	}

	if err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	md, ok := metadata.FromOutgoingContext(gotCtx)
	if !ok || len(md.Get("authorization")) != 1 || md.Get("authorization")[0] != "Bearer tok-2" {
		t.Errorf("outgoing metadata = %v", md)
	}

	token = ""
	if err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if md, ok := metadata.FromOutgoingContext(gotCtx); ok && len(md.Get("authorization")) != 0 {
		t.Errorf("signed-out call carried metadata: %v", md)
	}
}

func TestTokenFromIncomingContext(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Bearer tok-3"))
	if got := TokenFromIncomingContext(ctx); got != "tok-3" {
		t.Errorf("TokenFromIncomingContext() = %q, want tok-3", got)
	}

	if got := TokenFromIncomingContext(context.Background()); got != "" {
		t.Errorf("TokenFromIncomingContext() on bare context = %q", got)
	}

	ctx = metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Basic abc"))
	if got := TokenFromIncomingContext(ctx); got != "" {
		t.Errorf("non-bearer scheme yielded %q", got)
	}
}
