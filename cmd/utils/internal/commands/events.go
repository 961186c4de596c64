package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/pkg"
	"github.com/appetiteclub/dinein/pkg/event"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const subjectAll = "dinein.>"

// TailEvents prints change events from NATS until ctx is cancelled. With
// replay=true it reads the JetStream stream instead: retained events first,
// then new ones as they are appended.
func TailEvents(ctx context.Context, config *apt.Config, logger apt.Logger, out io.Writer) error {
	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	if config.GetBoolOrFalse("replay") {
		return followStream(ctx, config, natsURL, logger, out)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL, logger)
	if err != nil {
		return err
	}
	defer sub.Close()

	if err := sub.Subscribe(ctx, subjectAll, printHandler(out)); err != nil {
		return err
	}

	logger.Info("Tailing change events", "url", natsURL, "subject", subjectAll)
	<-ctx.Done()
	return nil
}

func followStream(ctx context.Context, config *apt.Config, natsURL string, logger apt.Logger, out io.Writer) error {
	stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
		URL:          natsURL,
		StreamName:   config.GetStringOrDef("nats.stream.name", "DINEIN_EVENTS"),
		Subject:      subjectAll,
		ConsumerName: "dinein-utils-replay",
	}, logger)
	if err != nil {
		return err
	}
	defer stream.Close()

	msgs, err := stream.Fetch(ctx, config.GetIntOrDef("limit", 1000))
	if err != nil && len(msgs) == 0 {
		return err
	}
	for _, m := range msgs {
		evt, err := event.Decode(m.Data)
		if err != nil {
			logger.Error("skipping undecodable message", "sequence", m.Sequence, "error", err)
			continue
		}
		printEvent(out, evt)
	}
	logger.Info("Replayed retained events", "count", len(msgs))

	// The durable consumer resumes after the fetched messages.
	if err := stream.SubscribeStream(ctx, printHandler(out)); err != nil {
		return err
	}
	logger.Info("Following change stream", "url", natsURL)
	<-ctx.Done()
	return nil
}

func printHandler(out io.Writer) events.HandlerFunc {
	return func(_ context.Context, data []byte) error {
		evt, err := event.Decode(data)
		if err != nil {
			return err
		}
		printEvent(out, evt)
		return nil
	}
}

// Watch prints events from the server's gRPC change feed. topics=kitchen,tables
// narrows the feed and snapshot=true starts with the current state.
func Watch(ctx context.Context, config *apt.Config, logger apt.Logger, out io.Writer) error {
	addr := config.GetStringOrDef("server", "localhost:9090")

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("cannot dial %s: %w", addr, err)
	}
	defer conn.Close()

	req := feed.WatchRequest{
		Topics:    feed.ParseTopics(config.GetStringOrDef("topics", "")),
		SessionID: config.GetStringOrDef("session", ""),
		TableID:   config.GetStringOrDef("table", ""),
		Snapshot:  config.GetBoolOrFalse("snapshot"),
	}

	logger.Info("Watching change feed", "server", addr)
	err = feed.Watch(ctx, conn, req, func(evt event.ChangeEvent) error {
		printEvent(out, evt)
		return nil
	})
	if ctx.Err() != nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func printEvent(out io.Writer, evt event.ChangeEvent) {
	fmt.Fprintf(out, "%s %-28s %-22s session=%s table=%s\n",
		evt.OccurredAt.Format("15:04:05.000"), evt.EventType, evt.EntityID, evt.SessionID, evt.TableID)
}
