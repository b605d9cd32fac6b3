// Package client talks to the credeval gRPC API.
package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Client is the set of calls evalctl makes.
type Client interface {
	Close() error
	Submit(ctx context.Context, req *api.SubmitRequest) (*api.SubmitResponse, error)
	Transition(ctx context.Context, evaluationID, status string, note *string) (*api.Revision, error)
	Assign(ctx context.Context, evaluationID, evaluator string) (*api.Assignment, error)
	History(ctx context.Context, evaluationID string) (*api.HistoryResponse, error)
	Timeline(ctx context.Context, evaluationID string) ([]api.Event, error)
	Ingest(ctx context.Context, documentID string, async bool) (*api.IngestResponse, error)
	Rules(ctx context.Context, countryCode string) (*api.Rules, error)
	InvalidateRules(ctx context.Context, countryCode string) error
}

// rpc is the subset of the generated-style client GRPCClient uses; tests
// replace it.
type rpc interface {
	Submit(ctx context.Context, in *api.SubmitRequest, opts ...grpc.CallOption) (*api.SubmitResponse, error)
	Transition(ctx context.Context, in *api.TransitionRequest, opts ...grpc.CallOption) (*api.TransitionResponse, error)
	Assign(ctx context.Context, in *api.AssignRequest, opts ...grpc.CallOption) (*api.AssignResponse, error)
	History(ctx context.Context, in *api.HistoryRequest, opts ...grpc.CallOption) (*api.HistoryResponse, error)
	Timeline(ctx context.Context, in *api.TimelineRequest, opts ...grpc.CallOption) (*api.TimelineResponse, error)
	Ingest(ctx context.Context, in *api.IngestRequest, opts ...grpc.CallOption) (*api.IngestResponse, error)
	Rules(ctx context.Context, in *api.RulesRequest, opts ...grpc.CallOption) (*api.RulesResponse, error)
	InvalidateRules(ctx context.Context, in *api.InvalidateRulesRequest, opts ...grpc.CallOption) (*api.Empty, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(api.AccessTokenKey, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL, accessToken string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewEvaluationServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Submit(ctx context.Context, req *api.SubmitRequest) (*api.SubmitResponse, error) {
	resp, err := s.client.Submit(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Transition(ctx context.Context, evaluationID, status string, note *string) (*api.Revision, error) {
	resp, err := s.client.Transition(ctx, &api.TransitionRequest{EvaluationID: evaluationID, Status: status, Note: note})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Revision, nil
}

func (s *GRPCClient) Assign(ctx context.Context, evaluationID, evaluator string) (*api.Assignment, error) {
	resp, err := s.client.Assign(ctx, &api.AssignRequest{EvaluationID: evaluationID, Evaluator: evaluator})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Assignment, nil
}

func (s *GRPCClient) History(ctx context.Context, evaluationID string) (*api.HistoryResponse, error) {
	resp, err := s.client.History(ctx, &api.HistoryRequest{EvaluationID: evaluationID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Timeline(ctx context.Context, evaluationID string) ([]api.Event, error) {
	resp, err := s.client.Timeline(ctx, &api.TimelineRequest{EvaluationID: evaluationID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Events, nil
}

func (s *GRPCClient) Ingest(ctx context.Context, documentID string, async bool) (*api.IngestResponse, error) {
	resp, err := s.client.Ingest(ctx, &api.IngestRequest{DocumentID: documentID, Async: async})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Rules(ctx context.Context, countryCode string) (*api.Rules, error) {
	resp, err := s.client.Rules(ctx, &api.RulesRequest{CountryCode: countryCode})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Rules, nil
}

func (s *GRPCClient) InvalidateRules(ctx context.Context, countryCode string) error {
	if _, err := s.client.InvalidateRules(ctx, &api.InvalidateRulesRequest{CountryCode: countryCode}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// mapError turns a status into a client sentinel, keeping the server's
// message for business rejections.
func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
