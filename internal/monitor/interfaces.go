package monitor

import (
	"context"

	"github.com/samvad-hq/elemental-live/pkg/elemental"
	"github.com/samvad-hq/elemental-live/pkg/encoders"
	"github.com/samvad-hq/elemental-live/pkg/publishers"
)

// EncoderClient is the subset of the elemental client a poll pass needs.
type EncoderClient interface {
	GetInputDevices(ctx context.Context) ([]elemental.Device, error)
	ListLiveEvents(ctx context.Context, filter string) ([]elemental.LiveEvent, error)
	GetEventStatus(ctx context.Context, id elemental.EventID) (string, error)
}

// ClientFactory builds a client for a configured encoder.
type ClientFactory func(enc encoders.Encoder) (EncoderClient, error)

// TransitionPublisher delivers transitions and reports how many sinks accepted them.
type TransitionPublisher interface {
	Publish(ctx context.Context, t publishers.Transition) (int, error)
}

// StateStore remembers the last published state per subject.
type StateStore interface {
	LastState(key string) (string, bool, error)
	SaveState(key, state string) error
	StatesWithPrefix(prefix string) (map[string]string, error)
}
