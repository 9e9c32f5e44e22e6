package elemental

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// FindDevicesInUse returns the device names referenced anywhere in the
// active event listing.
func (c *Client) FindDevicesInUse(ctx context.Context) (map[string]struct{}, error) {
	u := c.liveEventsURL("active")
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return nil, err
	}

	inUse := make(map[string]struct{})
	err = walkText(resp.Body(), func(path []string, text string) {
		if path[len(path)-1] == "device_name" && text != "" {
			inUse[text] = struct{}{}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("decode active events: %w", err)
	}
	return inUse, nil
}

// GetInputDevices lists input devices sorted by numeric id, each marked
// available unless an active event uses it.
func (c *Client) GetInputDevices(ctx context.Context) ([]Device, error) {
	u := c.url("/devices")
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return nil, err
	}

	var list deviceListXML
	if err := xml.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}

	inUse, err := c.FindDevicesInUse(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(list.Devices))
	for _, raw := range list.Devices {
		devices = append(devices, withAvailability(raw.toDevice(), inUse))
	}
	if err := sortByNumericID(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// GetInputDeviceByID fetches a single device and its availability.
func (c *Client) GetInputDeviceByID(ctx context.Context, id string) (Device, error) {
	u := c.url("/devices/%s", url.PathEscape(id))
	resp, err := c.send(ctx, http.MethodGet, u, c.Headers(u), nil)
	if err != nil {
		return Device{}, err
	}

	var raw deviceXML
	if err := xml.Unmarshal(resp.Body(), &raw); err != nil {
		return Device{}, fmt.Errorf("decode device %s: %w", id, err)
	}

	inUse, err := c.FindDevicesInUse(ctx)
	if err != nil {
		return Device{}, err
	}
	return withAvailability(raw.toDevice(), inUse), nil
}

func withAvailability(d Device, inUse map[string]struct{}) Device {
	_, used := inUse[d.DeviceName]
	d.Availability = !used
	return d
}

func sortByNumericID(devices []Device) error {
	keys := make(map[string]int64, len(devices))
	for _, d := range devices {
		n, err := strconv.ParseInt(d.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("device id %q is not numeric: %w", d.ID, err)
		}
		keys[d.ID] = n
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return keys[devices[i].ID] < keys[devices[j].ID]
	})
	return nil
}
