package publishers

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubSinkPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "transitions"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	sink, err := Open(ctx, Config{
		ID:     "gcp",
		Type:   TypePubSub,
		PubSub: &PubSubConfig{ProjectID: "test-project", Topic: "transitions"},
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := sink.Send(ctx, sampleTransition()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if got := msgs[0].Attributes[AttrCurrent]; got != "complete" {
		t.Fatalf("current attribute = %q", got)
	}
	if got := msgs[0].OrderingKey; got != "studio-a/event_status/42" {
		t.Fatalf("OrderingKey = %q", got)
	}

	d := NewDispatcher(sink)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
