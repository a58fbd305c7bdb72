package grpcserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/grpcserver"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
)

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	svc, err := marketplace.NewService(marketplace.NewMemStore(nil))
	if err != nil {
		t.Fatal(err)
	}

	lis := bufconn.Listen(1 << 20)
	gs := grpcserver.New(grpcserver.NewServer(svc, nil))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func call(ctx context.Context, conn *grpc.ClientConn, user, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if user != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-user-id", user)
	}
	out := &structpb.Struct{}
	err = conn.Invoke(ctx, "/"+grpcserver.ServiceName+"/"+method, in, out)
	return out, err
}

func TestMatchingService_Flow(t *testing.T) {
	conn := dial(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := call(ctx, conn, "customer-1", "CreateJob", map[string]any{
		"service_type":  "errands",
		"location":      "1 Main St, Brooklyn, NY",
		"price":         60,
		"autofill_type": "AutoFill",
		"description":   "Pick up groceries",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	id := job.Fields["service_id"].GetStringValue()
	if id == "" || job.Fields["status"].GetStringValue() != "finding_pros" {
		t.Fatalf("created job = %v", job)
	}

	arrive := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	res, err := call(ctx, conn, "pro-1", "SubmitBid", map[string]any{"service_id": id, "bid": 55, "proposed_date_time": arrive})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if got := res.Fields["outcome"].GetStringValue(); got != string(marketplace.OutcomeClaimed) {
		t.Errorf("outcome = %q, want claimed", got)
	}

	res, err = call(ctx, conn, "pro-2", "SubmitBid", map[string]any{"service_id": id, "bid": 50, "proposed_date_time": arrive})
	if err != nil {
		t.Fatalf("second SubmitBid: %v", err)
	}
	if got := res.Fields["outcome"].GetStringValue(); got != string(marketplace.OutcomeAlreadyFilled) {
		t.Errorf("late outcome = %q, want already_filled", got)
	}

	got, err := call(ctx, conn, "customer-1", "GetJob", map[string]any{"service_id": id})
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Fields["service_provider_id"].GetStringValue() != "pro-1" || got.Fields["price"].GetNumberValue() != 55 {
		t.Errorf("job = %v", got)
	}

	if _, err := call(ctx, conn, "pro-1", "CancelConfirmedJob", map[string]any{"service_id": id}); err != nil {
		t.Fatalf("CancelConfirmedJob: %v", err)
	}
}

func TestMatchingService_Errors(t *testing.T) {
	conn := dial(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cases := []struct {
		user   string
		method string
		req    map[string]any
		code   codes.Code
	}{
		{"", "GetJob", map[string]any{"service_id": "x"}, codes.Unauthenticated},
		{"customer-1", "GetJob", map[string]any{"service_id": "x"}, codes.NotFound},
		{"customer-1", "CreateJob", map[string]any{"location": "Main St", "description": "x", "price": 10}, codes.InvalidArgument},
		{"customer-1", "CreateJob", map[string]any{"price": "ten"}, codes.InvalidArgument},
		{"pro-1", "AdvanceJob", map[string]any{"service_id": "x", "newStatus": "teleported"}, codes.InvalidArgument},
	}
	for _, c := range cases {
		_, err := call(ctx, conn, c.user, c.method, c.req)
		if status.Code(err) != c.code {
			t.Errorf("%s(%v) code = %v, want %v", c.method, c.req, status.Code(err), c.code)
		}
	}
}

func TestHealth(t *testing.T) {
	conn := dial(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v", resp.Status)
	}
}
