package elemental

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CreateEvent posts a rendered live_event XML document and returns the new event id.
func (c *Client) CreateEvent(ctx context.Context, body string) (EventID, error) {
	u := c.url("/live_events")
	resp, err := c.send(ctx, http.MethodPost, u, c.Headers(u), []byte(body))
	if err != nil {
		return "", err
	}

	var created createdEventXML
	if err := xml.Unmarshal(resp.Body(), &created); err != nil {
		return "", fmt.Errorf("decode create event response: %w", err)
	}
	if len(created.IDs) == 0 || created.IDs[0] == "" {
		return "", errors.New("create event response has no id")
	}
	return EventID(created.IDs[0]), nil
}

// UpdateEvent replaces the definition of an event. With restart set the
// appliance is allowed to restart a running event to apply the change.
func (c *Client) UpdateEvent(ctx context.Context, id EventID, body string, restart bool) error {
	u := c.eventURL(id, "")
	if restart {
		u += "?unlocked=1"
	}
	_, err := c.send(ctx, http.MethodPut, u, c.Headers(u), []byte(body))
	return err
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id EventID) error {
	u := c.eventURL(id, "")
	_, err := c.send(ctx, http.MethodDelete, u, c.Headers(u), nil)
	return err
}

// CancelEvent cancels a pending or running event.
func (c *Client) CancelEvent(ctx context.Context, id EventID) error {
	return c.eventAction(ctx, id, "cancel", "")
}

// StartEvent starts an event.
func (c *Client) StartEvent(ctx context.Context, id EventID) error {
	return c.eventAction(ctx, id, "start", "<start></start>")
}

// StopEvent stops a running event.
func (c *Client) StopEvent(ctx context.Context, id EventID) error {
	return c.eventAction(ctx, id, "stop", "<stop></stop>")
}

// ResetEvent resets a finished event back to pending.
func (c *Client) ResetEvent(ctx context.Context, id EventID) error {
	return c.eventAction(ctx, id, "reset", "")
}

func (c *Client) eventAction(ctx context.Context, id EventID, action, body string) error {
	u := c.eventURL(id, action)
	_, err := c.send(ctx, http.MethodPost, u, c.Headers(u), []byte(body))
	return err
}

func (c *Client) eventURL(id EventID, action string) string {
	u := c.url("/live_events/%s", url.PathEscape(string(id)))
	if action != "" {
		u += "/" + action
	}
	return u
}

// DescribeEvent fetches an event and summarizes its status and the first two
// destination URIs as origin and backup playback URLs.
func (c *Client) DescribeEvent(ctx context.Context, id EventID) (EventStatus, error) {
	u := c.eventURL(id, "")
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return EventStatus{}, err
	}

	var uris []string
	err = walkText(resp.Body(), func(path []string, text string) {
		if endsWith(path, "destination", "uri") && text != "" {
			uris = append(uris, text)
		}
	})
	if err != nil {
		return EventStatus{}, fmt.Errorf("decode event %s: %w", id, err)
	}
	status, _, err := parseStatus(resp.Body())
	if err != nil {
		return EventStatus{}, fmt.Errorf("decode event %s status: %w", id, err)
	}

	out := EventStatus{Status: status}
	if len(uris) > 0 {
		out.OriginURL = uris[0]
	}
	if len(uris) > 1 {
		out.BackupURL = uris[1]
	}
	return out, nil
}

// GetEventStatus returns the status reported by the event status endpoint.
func (c *Client) GetEventStatus(ctx context.Context, id EventID) (string, error) {
	u := c.eventURL(id, "status")
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return "", err
	}
	status, ok, err := parseStatus(resp.Body())
	if err != nil {
		return "", fmt.Errorf("decode event %s status: %w", id, err)
	}
	if !ok {
		return "", fmt.Errorf("event %s status response has no status", id)
	}
	return status, nil
}

// EventCanDelete reports whether the event is in a state the appliance lets
// callers delete. The status is fetched on every call.
func (c *Client) EventCanDelete(ctx context.Context, id EventID) (bool, error) {
	desc, err := c.DescribeEvent(ctx, id)
	if err != nil {
		return false, err
	}
	return StatusAllowsDelete(desc.Status), nil
}

// StatusAllowsDelete is false for statuses of events that are still active.
func StatusAllowsDelete(status string) bool {
	switch status {
	case StatusPending, StatusRunning, StatusPreprocessing, StatusPostprocessing:
		return false
	default:
		return true
	}
}

// ListLiveEvents lists events, optionally narrowed by the appliance's filter
// parameter (for example "active").
func (c *Client) ListLiveEvents(ctx context.Context, filter string) ([]LiveEvent, error) {
	u := c.liveEventsURL(filter)
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return nil, err
	}

	var list liveEventListXML
	if err := xml.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("decode live event list: %w", err)
	}
	out := make([]LiveEvent, 0, len(list.Events))
	for _, e := range list.Events {
		out = append(out, e.toLiveEvent())
	}
	return out, nil
}

func (c *Client) liveEventsURL(filter string) string {
	u := c.url("/live_events")
	if filter = strings.TrimSpace(filter); filter != "" {
		u += "?filter=" + url.QueryEscape(filter)
	}
	return u
}
