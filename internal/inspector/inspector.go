// Package inspector exposes a Registrar's pass-through diagnostics
// (spec §4.3: name/count/labels/debug) over gRPC, so an external dashboard
// can list a running process's channels and toggle tracing without sharing
// a process or a typed Go handle. It never transports an invoke: spec's
// Non-goals rule out cross-process bus traffic, and this service only ever
// reads or flips a bool.
//
// There is no .proto file behind this service — the schema is built from
// the protobuf module's own well-known types (emptypb.Empty, structpb.Struct)
// rather than hand-fabricated generated code, since a bespoke message
// schema needs protoc to produce a valid wire descriptor. structpb.Struct
// is itself a real, already-compiled proto.Message, so request/response
// payloads still travel as genuine protobuf over the grpc transport.
package inspector

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/conduitbus/conduit/pkg/conduit"
)

const serviceName = "conduit.inspector.v1.Inspector"

// Server implements the Inspector service against one Registrar.
type Server struct {
	registrar *conduit.Registrar
}

// NewServer wraps r for diagnostics RPCs.
func NewServer(r *conduit.Registrar) *Server {
	return &Server{registrar: r}
}

// ListChannels reports every owned channel's name, subscriber count,
// labels, debug flag, and signature (spec §4.3's name/count/labels/debug,
// plus TypeName for a readable listing).
func (s *Server) ListChannels(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var channels []interface{}
	s.registrar.Visit(func(name string, ch conduit.Handle) {
		labels := make([]interface{}, 0, len(ch.Labels()))
		for _, l := range ch.Labels() {
			labels = append(labels, l)
		}
		channels = append(channels, map[string]interface{}{
			"name":      name,
			"count":     float64(ch.Count()),
			"labels":    labels,
			"debug":     ch.Debug(),
			"type_name": ch.TypeName(),
		})
	})
	return structpb.NewStruct(map[string]interface{}{
		"registrar": s.registrar.Name(),
		"channels":  channels,
	})
}

// SetDebug toggles the debug trace flag on one named channel. req must
// carry string field "name" and bool field "debug"; an unknown channel
// name is a no-op rather than an error, since this is a diagnostics knob,
// not a bus operation subject to spec §7's UnknownChannel fatal path.
func (s *Server) SetDebug(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()
	name, ok := fields["name"]
	if !ok {
		return nil, fmt.Errorf("inspector: SetDebug request missing field %q", "name")
	}
	debug, ok := fields["debug"]
	if !ok {
		return nil, fmt.Errorf("inspector: SetDebug request missing field %q", "debug")
	}
	target := name.GetStringValue()
	flag := debug.GetBoolValue()
	s.registrar.Visit(func(n string, ch conduit.Handle) {
		if n == target {
			ch.SetDebug(flag)
		}
	})
	return &emptypb.Empty{}, nil
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// _ServiceDesc: it wires Server's two RPCs onto a *grpc.Server without a
// generated interface type.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListChannels", Handler: listChannelsHandler},
		{MethodName: "SetDebug", Handler: setDebugHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inspector.proto",
}

func listChannelsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ListChannels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListChannels"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).ListChannels(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setDebugHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).SetDebug(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SetDebug"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).SetDebug(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches the Inspector service to an existing *grpc.Server.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}
