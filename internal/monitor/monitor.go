package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/samvad-hq/elemental-live/internal/logger"
	"github.com/samvad-hq/elemental-live/pkg/elemental"
	"github.com/samvad-hq/elemental-live/pkg/encoders"
	"github.com/samvad-hq/elemental-live/pkg/publishers"
)

// Device availability states.
const (
	StateAvailable = "available"
	StateInUse     = "in_use"
)

// StateDeleted is recorded for a tracked event the encoder no longer knows.
const StateDeleted = "deleted"

const activeFilter = "active"

// Service runs poll passes across encoders and publishes state transitions.
type Service struct {
	clients ClientFactory
	pub     TransitionPublisher
	store   StateStore
	log     logger.Logger
	now     func() time.Time
}

// NewService wires a monitor with its collaborators. A nil factory builds
// elemental clients straight from the encoder config.
func NewService(clients ClientFactory, pub TransitionPublisher, log logger.Logger, store StateStore) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if clients == nil {
		clients = DefaultClientFactory(log)
	}
	return &Service{
		clients: clients,
		pub:     pub,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

// DefaultClientFactory returns a factory producing elemental clients that log through log.
func DefaultClientFactory(log logger.Logger) ClientFactory {
	return func(enc encoders.Encoder) (EncoderClient, error) {
		return enc.NewClient(elemental.WithLogger(log))
	}
}

// Run executes a poll pass for all enabled encoders.
func (s *Service) Run(ctx context.Context, encs []encoders.Encoder) error {
	if s == nil || s.pub == nil || s.store == nil {
		return fmt.Errorf("monitor service is not initialized")
	}
	if len(encs) == 0 {
		return fmt.Errorf("no encoders configured for monitoring")
	}

	var errs []error
	for _, enc := range encs {
		if !enc.EnabledValue() {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.runEncoder(ctx, enc); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("encoder poll failed", "encoder_error", map[string]any{
				"encoder_id": enc.ID,
				"error":      err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runEncoder(ctx context.Context, enc encoders.Encoder) error {
	client, err := s.clients(enc)
	if err != nil {
		return fmt.Errorf("build client for encoder %s: %w", enc.ID, err)
	}

	devices, err := client.GetInputDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices on encoder %s: %w", enc.ID, err)
	}
	events, err := client.ListLiveEvents(ctx, activeFilter)
	if err != nil {
		return fmt.Errorf("list live events on encoder %s: %w", enc.ID, err)
	}

	var errs []error
	published := 0
	track := func(ok bool, err error) {
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			published++
		}
	}

	for i := range devices {
		d := devices[i]
		state := StateAvailable
		if !d.Availability {
			state = StateInUse
		}
		t := s.newTransition(enc, publishers.KindDeviceAvailability, d.ID, state)
		t.Device = &d
		track(s.observe(ctx, DeviceKey(enc.ID, d.ID), t))
	}

	active := make(map[string]struct{}, len(events))
	for i := range events {
		e := events[i]
		active[e.ID] = struct{}{}
		t := s.newTransition(enc, publishers.KindEventStatus, e.ID, e.Status)
		t.LiveEvent = &e
		track(s.observe(ctx, EventKey(enc.ID, e.ID), t))
	}

	settled, err := s.settleFinishedEvents(ctx, enc, client, active)
	if err != nil {
		errs = append(errs, err)
	}
	published += settled

	s.log.InfoObj("encoder poll completed", "encoder_result", map[string]any{
		"encoder_id":  enc.ID,
		"devices":     len(devices),
		"live_events": len(events),
		"transitions": published,
	})
	return errors.Join(errs...)
}

// settleFinishedEvents looks up events last stored with an in-flight status
// that have left the active list, so their final status is published.
func (s *Service) settleFinishedEvents(ctx context.Context, enc encoders.Encoder, client EncoderClient, active map[string]struct{}) (int, error) {
	prefix := EventKey(enc.ID, "")
	stored, err := s.store.StatesWithPrefix(prefix)
	if err != nil {
		return 0, fmt.Errorf("load tracked events for encoder %s: %w", enc.ID, err)
	}

	keys := make([]string, 0, len(stored))
	for key, state := range stored {
		id := strings.TrimPrefix(key, prefix)
		if _, ok := active[id]; ok || !inFlight(state) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		published int
		errs      []error
	)
	for _, key := range keys {
		id := strings.TrimPrefix(key, prefix)
		status, err := client.GetEventStatus(ctx, elemental.EventID(id))
		var respErr *elemental.ResponseError
		switch {
		case errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound:
			status = StateDeleted
		case err != nil:
			errs = append(errs, fmt.Errorf("status of event %s on encoder %s: %w", id, enc.ID, err))
			continue
		}
		ok, err := s.observe(ctx, key, s.newTransition(enc, publishers.KindEventStatus, id, status))
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			published++
		}
	}
	return published, errors.Join(errs...)
}

// inFlight reports statuses for which the appliance still lists an event as active.
func inFlight(status string) bool {
	switch status {
	case elemental.StatusPending, elemental.StatusRunning, elemental.StatusPreprocessing, elemental.StatusPostprocessing:
		return true
	}
	return false
}

func (s *Service) newTransition(enc encoders.Encoder, kind, subject, current string) publishers.Transition {
	return publishers.Transition{
		EncoderID:   enc.ID,
		EncoderName: enc.Name,
		Kind:        kind,
		SubjectID:   subject,
		Current:     current,
		ObservedAt:  s.now().UTC(),
	}
}

// observe publishes t when its state differs from the stored one. The state
// is saved only after at least one publisher accepted the transition so a
// fully failed delivery is retried on the next pass.
func (s *Service) observe(ctx context.Context, key string, t publishers.Transition) (bool, error) {
	prev, found, err := s.store.LastState(key)
	if err != nil {
		return false, fmt.Errorf("load state %s: %w", key, err)
	}
	if found && prev == t.Current {
		return false, nil
	}
	t.Previous = prev

	n, pubErr := s.pub.Publish(ctx, t)
	if pubErr != nil {
		s.log.WarnObj("transition publish failed", "publish_error", map[string]any{
			"key":        key,
			"successful": n,
			"error":      pubErr.Error(),
		})
	}
	if n == 0 && pubErr != nil {
		return false, fmt.Errorf("publish %s: %w", key, pubErr)
	}

	if err := s.store.SaveState(key, t.Current); err != nil {
		return true, fmt.Errorf("save state %s: %w", key, err)
	}
	s.log.DebugObj("transition published", "transition", map[string]any{
		"key":      key,
		"previous": t.Previous,
		"current":  t.Current,
	})
	return true, nil
}

// DeviceKey is the store key for a device on an encoder.
func DeviceKey(encoderID, deviceID string) string {
	return "device/" + encoderID + "/" + deviceID
}

// EventKey is the store key for a live event on an encoder.
func EventKey(encoderID, eventID string) string {
	return "event/" + encoderID + "/" + eventID
}
