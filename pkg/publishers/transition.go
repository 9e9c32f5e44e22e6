package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/elemental-live/pkg/elemental"
)

// Transition kinds.
const (
	KindDeviceAvailability = "device_availability"
	KindEventStatus        = "event_status"
)

// Message attribute names shared by the queue and topic sinks.
const (
	AttrEncoderID = "encoder_id"
	AttrKind      = "kind"
	AttrSubjectID = "subject_id"
	AttrPrevious  = "previous"
	AttrCurrent   = "current"
)

// dedupeSpace namespaces the name-based UUIDs used as deduplication ids.
var dedupeSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:elemental-live:transition"))

// Transition is a device or live event moving from one state to another on an encoder.
// An empty Previous means the subject was not seen before.
type Transition struct {
	EncoderID   string               `json:"encoder_id"`
	EncoderName string               `json:"encoder_name"`
	Kind        string               `json:"kind"`
	SubjectID   string               `json:"subject_id"`
	Previous    string               `json:"previous,omitempty"`
	Current     string               `json:"current"`
	Device      *elemental.Device    `json:"device,omitempty"`
	LiveEvent   *elemental.LiveEvent `json:"live_event,omitempty"`
	ObservedAt  time.Time            `json:"observed_at"`
}

// OrderingKey groups transitions of one subject so ordered sinks keep them in sequence.
func (t Transition) OrderingKey() string {
	return t.EncoderID + "/" + t.Kind + "/" + t.SubjectID
}

// DedupeID is stable for a given observation, so SDK level resends collapse.
func (t Transition) DedupeID() string {
	name := t.OrderingKey() + "|" + t.Previous + "|" + t.Current + "|" + strconv.FormatInt(t.ObservedAt.UnixNano(), 10)
	return uuid.NewSHA1(dedupeSpace, []byte(name)).String()
}

// Attributes returns the non-empty routing attributes of t.
func (t Transition) Attributes() map[string]string {
	out := make(map[string]string, 5)
	for k, v := range map[string]string{
		AttrEncoderID: t.EncoderID,
		AttrKind:      t.Kind,
		AttrSubjectID: t.SubjectID,
		AttrPrevious:  t.Previous,
		AttrCurrent:   t.Current,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Summary is a one-line human description, e.g. "studio-a device 3: available -> in_use".
func (t Transition) Summary() string {
	subject := "event"
	if t.Kind == KindDeviceAvailability {
		subject = "device"
	}
	prev := t.Previous
	if prev == "" {
		prev = "new"
	}
	return t.EncoderID + " " + subject + " " + t.SubjectID + ": " + prev + " -> " + t.Current
}
