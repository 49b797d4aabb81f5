package grpcserver

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Fields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ic := LoggingUnary(zap.New(core))

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(RequestIDKey, "rid-1"))
	info := &grpc.UnaryServerInfo{FullMethod: "/stockfolio.v1.Auth/Login"}

	resp, err := ic(ctx, &struct{ Password string }{"secret"}, info, func(context.Context, any) (any, error) { return "ok", nil })
	if err != nil || resp.(string) != "ok" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want 1 log entry, got %d", len(entries))
	}
	f := entries[0].ContextMap()
	if f["method"] != "/stockfolio.v1.Auth/Login" || f["code"] != "OK" || f["peer"] != "127.0.0.1" || f["request_id"] != "rid-1" {
		t.Fatalf("unexpected fields: %v", f)
	}
	for _, v := range f {
		if s, ok := v.(string); ok && s == "secret" {
			t.Fatalf("payload leaked into logs: %v", f)
		}
	}
}

func TestLoggingUnary_ErrorsKeepIdentityAndRaiseLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ic := LoggingUnary(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/stockfolio.v1.Holdings/List"}

	wantErr := errors.New("boom")
	_, err := ic(context.Background(), nil, info, func(context.Context, any) (any, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
	_, _ = ic(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "not_found")
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[1].Level != zapcore.InfoLevel {
		t.Fatalf("levels: %v %v", entries[0].Level, entries[1].Level)
	}
	if entries[0].ContextMap()["request_id"] == "" {
		t.Fatalf("request id should be generated")
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	ic := RecoverUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/stockfolio.v1.Auth/Me"}

	_, err := ic(context.Background(), nil, info, func(context.Context, any) (any, error) { panic("oh no") })
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}

	resp, err := ic(context.Background(), nil, info, func(context.Context, any) (any, error) { return 42, nil })
	if err != nil || resp.(int) != 42 {
		t.Fatalf("passthrough: %v, %v", resp, err)
	}
}

func TestBearerTokenFromMD(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	if got, err := bearerTokenFromMD(ctx); err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer lower"))
	if got, _ := bearerTokenFromMD(ctx); got != "lower" {
		t.Fatalf("scheme is case-insensitive, got %q", got)
	}
	for _, v := range []string{"Basic foo", "Bearer   ", ""} {
		ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", v))
		if _, err := bearerTokenFromMD(ctx); err == nil {
			t.Fatalf("want error for %q", v)
		}
	}
	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func TestRemoteIP(t *testing.T) {
	t.Parallel()

	if got := remoteIP(context.Background()); got != "" {
		t.Fatalf("no peer: %q", got)
	}
	if got := remoteIP(peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})); got != "127.0.0.1" {
		t.Fatalf("got %q", got)
	}
}
