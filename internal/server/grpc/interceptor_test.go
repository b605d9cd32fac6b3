package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", logging.Nop(), nil, secret)
}

func incoming(token string) context.Context {
	md := metadata.New(map[string]string{api.AccessTokenKey: token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestInterceptor_OtherServicePassesThrough(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	called := false

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("History")}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("History")}

	_, err := s.accessTokenInterceptor(incoming("not-a-valid-jwt"), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "invalid token", status.Convert(err).Message())
}

func TestInterceptor_ExpiredToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("History")}
	tok, err := auth.GenerateToken("u", auth.RoleStudent, []byte(secret), -time.Minute)
	require.NoError(t, err)

	_, err = s.accessTokenInterceptor(incoming(tok), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "token expired", status.Convert(err).Message())
}

func TestInterceptor_ValidToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("Assign")}
	tok, err := auth.GenerateToken("ops", auth.RoleAdmin, []byte(secret), time.Hour)
	require.NoError(t, err)

	var got auth.Actor
	_, err = s.accessTokenInterceptor(incoming(tok), nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = auth.ActorFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, auth.Actor{Name: "ops", Role: auth.RoleAdmin}, got)
}
