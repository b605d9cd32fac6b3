package api

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/common"
	"google.golang.org/grpc"
)

const ServiceName = "credeval.v1.EvaluationService"

// AccessTokenKey is the metadata key carrying the JWT.
const AccessTokenKey = common.AccessTokenHeaderName

// FullMethod returns the gRPC path of a method, e.g. /credeval.v1.EvaluationService/Submit.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type EvaluationServiceServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Transition(context.Context, *TransitionRequest) (*TransitionResponse, error)
	Assign(context.Context, *AssignRequest) (*AssignResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Timeline(context.Context, *TimelineRequest) (*TimelineResponse, error)
	Ingest(context.Context, *IngestRequest) (*IngestResponse, error)
	Rules(context.Context, *RulesRequest) (*RulesResponse, error)
	InvalidateRules(context.Context, *InvalidateRulesRequest) (*Empty, error)
}

func method[Req, Resp any](name string, call func(EvaluationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(EvaluationServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Submit", EvaluationServiceServer.Submit),
		method("Transition", EvaluationServiceServer.Transition),
		method("Assign", EvaluationServiceServer.Assign),
		method("History", EvaluationServiceServer.History),
		method("Timeline", EvaluationServiceServer.Timeline),
		method("Ingest", EvaluationServiceServer.Ingest),
		method("Rules", EvaluationServiceServer.Rules),
		method("InvalidateRules", EvaluationServiceServer.InvalidateRules),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "credeval/v1/evaluation",
}

func RegisterEvaluationServiceServer(s grpc.ServiceRegistrar, srv EvaluationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// EvaluationServiceClient calls the service over a connection, always with
// the JSON codec.
type EvaluationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEvaluationServiceClient(cc grpc.ClientConnInterface) *EvaluationServiceClient {
	return &EvaluationServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EvaluationServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, "Submit", in, opts)
}

func (c *EvaluationServiceClient) Transition(ctx context.Context, in *TransitionRequest, opts ...grpc.CallOption) (*TransitionResponse, error) {
	return invoke[TransitionResponse](ctx, c.cc, "Transition", in, opts)
}

func (c *EvaluationServiceClient) Assign(ctx context.Context, in *AssignRequest, opts ...grpc.CallOption) (*AssignResponse, error) {
	return invoke[AssignResponse](ctx, c.cc, "Assign", in, opts)
}

func (c *EvaluationServiceClient) History(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c.cc, "History", in, opts)
}

func (c *EvaluationServiceClient) Timeline(ctx context.Context, in *TimelineRequest, opts ...grpc.CallOption) (*TimelineResponse, error) {
	return invoke[TimelineResponse](ctx, c.cc, "Timeline", in, opts)
}

func (c *EvaluationServiceClient) Ingest(ctx context.Context, in *IngestRequest, opts ...grpc.CallOption) (*IngestResponse, error) {
	return invoke[IngestResponse](ctx, c.cc, "Ingest", in, opts)
}

func (c *EvaluationServiceClient) Rules(ctx context.Context, in *RulesRequest, opts ...grpc.CallOption) (*RulesResponse, error) {
	return invoke[RulesResponse](ctx, c.cc, "Rules", in, opts)
}

func (c *EvaluationServiceClient) InvalidateRules(ctx context.Context, in *InvalidateRulesRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "InvalidateRules", in, opts)
}
