package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/test/bufconn"
)

type echoServer struct {
	EvaluationServiceServer
}

func (echoServer) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	return &HistoryResponse{Current: "InReview", Revisions: []Revision{{EvaluationID: req.EvaluationID, Seq: 1}}}, nil
}

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	b, err := c.Marshal(&IngestRequest{DocumentID: "d1", Async: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"documentId":"d1","async":true}`, string(b))
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/credeval.v1.EvaluationService/Timeline", FullMethod("Timeline"))
}

func TestRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterEvaluationServiceServer(srv, echoServer{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := NewEvaluationServiceClient(conn).History(context.Background(), &HistoryRequest{EvaluationID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, "InReview", resp.Current)
	require.Len(t, resp.Revisions, 1)
	assert.Equal(t, "e1", resp.Revisions[0].EvaluationID)
}
