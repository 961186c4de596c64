package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/pkg/event"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "dinein.feed.v1.ChangeFeed"
	watchMethod = "/" + serviceName + "/Watch"
)

// The change feed has a single server-streaming method. Requests and events
// travel as google.protobuf.Struct, so no generated code is involved:
//
//	service ChangeFeed {
//	  rpc Watch(google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	}
//
// Request fields: topics (list of strings), session_id, table_id, snapshot
// (bool). Events carry the ChangeEvent JSON fields.
type changeFeedServer interface {
	Watch(req *structpb.Struct, stream grpc.ServerStream) error
}

var changeFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*changeFeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "dinein/feed/v1/feed.proto",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(changeFeedServer).Watch(req, stream)
}

// SnapshotFunc returns the current state as synthetic events, sent to
// subscribers that ask for a snapshot before live updates.
type SnapshotFunc func(ctx context.Context) ([]event.ChangeEvent, error)

// StreamServer serves the change feed over gRPC.
type StreamServer struct {
	broadcaster *Broadcaster
	snapshot    SnapshotFunc
	logger      apt.Logger
}

func NewStreamServer(b *Broadcaster, snapshot SnapshotFunc, logger apt.Logger) *StreamServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &StreamServer{
		broadcaster: b,
		snapshot:    snapshot,
		logger:      logger,
	}
}

// RegisterGRPCService registers the feed with the gRPC server.
func (s *StreamServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&changeFeedServiceDesc, s)
}

func (s *StreamServer) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	filter, wantSnapshot := filterFromStruct(req)

	id, ch := s.broadcaster.Subscribe(filter)
	defer s.broadcaster.Unsubscribe(id)

	s.logger.Info("new change feed subscriber", "subscriber_id", id, "topics", filter.Topics)

	if wantSnapshot && s.snapshot != nil {
		initial, err := s.snapshot(ctx)
		if err != nil {
			s.logger.Errorf("cannot build snapshot: %v", err)
			return err
		}
		for _, evt := range initial {
			if !filter.Match(evt) {
				continue
			}
			if err := sendEvent(stream, evt); err != nil {
				s.logger.Errorf("failed to send snapshot event: %v", err)
				return err
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("change feed subscriber disconnected", "subscriber_id", id)
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := sendEvent(stream, evt); err != nil {
				s.logger.Errorf("failed to send event: %v", err)
				return err
			}
		}
	}
}

func sendEvent(stream grpc.ServerStream, evt event.ChangeEvent) error {
	msg, err := ToStruct(evt)
	if err != nil {
		return err
	}
	return stream.SendMsg(msg)
}

// ToStruct converts an event into its wire message.
func ToStruct(evt event.ChangeEvent) (*structpb.Struct, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("cannot encode event: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("cannot flatten event: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct converts a wire message back into an event.
func FromStruct(msg *structpb.Struct) (event.ChangeEvent, error) {
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return event.ChangeEvent{}, fmt.Errorf("cannot encode message: %w", err)
	}
	return event.Decode(raw)
}

func filterFromStruct(req *structpb.Struct) (Filter, bool) {
	var f Filter
	if req == nil {
		return f, false
	}

	fields := req.GetFields()
	if v, ok := fields["topics"]; ok {
		for _, t := range v.GetListValue().GetValues() {
			f.Topics = append(f.Topics, ParseTopics(t.GetStringValue())...)
		}
	}
	f.SessionID = fields["session_id"].GetStringValue()
	f.TableID = fields["table_id"].GetStringValue()

	return f, fields["snapshot"].GetBoolValue()
}

// WatchRequest describes what a feed client subscribes to.
type WatchRequest struct {
	Topics    []string
	SessionID string
	TableID   string
	Snapshot  bool
}

// Watch opens the change feed on conn and calls fn for every event until the
// stream ends, ctx is cancelled or fn returns an error.
func Watch(ctx context.Context, conn grpc.ClientConnInterface, req WatchRequest, fn func(event.ChangeEvent) error) error {
	topics := make([]any, 0, len(req.Topics))
	for _, t := range req.Topics {
		topics = append(topics, t)
	}

	msg, err := structpb.NewStruct(map[string]any{
		"topics":     topics,
		"session_id": req.SessionID,
		"table_id":   req.TableID,
		"snapshot":   req.Snapshot,
	})
	if err != nil {
		return fmt.Errorf("cannot build watch request: %w", err)
	}

	stream, err := conn.NewStream(ctx, &changeFeedServiceDesc.Streams[0], watchMethod)
	if err != nil {
		return fmt.Errorf("cannot open change feed: %w", err)
	}
	if err := stream.SendMsg(msg); err != nil {
		return fmt.Errorf("cannot send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("cannot close send side: %w", err)
	}

	for {
		in := new(structpb.Struct)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		evt, err := FromStruct(in)
		if err != nil {
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
