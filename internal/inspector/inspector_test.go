package inspector

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/conduitbus/conduit/pkg/conduit"
)

func dialTestServer(t *testing.T, r *conduit.Registrar) (*Client, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	Register(gs, NewServer(r))
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(conn), func() {
		conn.Close()
		gs.Stop()
	}
}

func TestListChannelsReportsSubscribedChannels(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")
	ticks.SubscribeVoid(func(int) {}, "sub-a", 0)

	client, closeFn := dialTestServer(t, r)
	defer closeFn()

	resp, err := client.ListChannels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fields := resp.GetFields()
	if fields["registrar"].GetStringValue() != "demo" {
		t.Errorf("registrar = %q, want demo", fields["registrar"].GetStringValue())
	}
	channels := fields["channels"].GetListValue().GetValues()
	if len(channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(channels))
	}
	entry := channels[0].GetStructValue().GetFields()
	if entry["name"].GetStringValue() != "ticks" {
		t.Errorf("name = %q, want ticks", entry["name"].GetStringValue())
	}
	if entry["count"].GetNumberValue() != 1 {
		t.Errorf("count = %v, want 1", entry["count"].GetNumberValue())
	}
}

func TestSetDebugTogglesFlagOverRPC(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")

	client, closeFn := dialTestServer(t, r)
	defer closeFn()

	if err := client.SetDebug(context.Background(), "ticks", true); err != nil {
		t.Fatal(err)
	}
	if !ticks.Debug() {
		t.Error("Debug() should be true after SetDebug RPC")
	}
}

func TestSetDebugOnUnknownChannelIsNoop(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	conduit.Lookup[int, conduit.Void](r, "ticks", "native")

	client, closeFn := dialTestServer(t, r)
	defer closeFn()

	if err := client.SetDebug(context.Background(), "nonexistent", true); err != nil {
		t.Fatal(err)
	}
}
