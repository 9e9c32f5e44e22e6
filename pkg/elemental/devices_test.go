package elemental

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func deviceTransport() *fakeTransport {
	return newFakeTransport().
		on(http.MethodGet, testBaseURL+"/live_events?filter=active", 200, sampleActiveEvents).
		on(http.MethodGet, testBaseURL+"/devices", 200, sampleDeviceList).
		on(http.MethodGet, testBaseURL+"/devices/2", 200, sampleSingleDevice)
}

func TestFindDevicesInUse(t *testing.T) {
	transport := deviceTransport()
	c := newTestClient(t, transport, false)

	inUse, err := c.FindDevicesInUse(context.Background())
	if err != nil {
		t.Fatalf("FindDevicesInUse: %v", err)
	}
	want := map[string]struct{}{"HD-SDI 1": {}}
	if !reflect.DeepEqual(inUse, want) {
		t.Fatalf("FindDevicesInUse = %v, want %v", inUse, want)
	}
	if req := transport.last(); req.method != http.MethodGet || req.url != testBaseURL+"/live_events?filter=active" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestGetInputDevicesMarksAvailabilityAndSorts(t *testing.T) {
	c := newTestClient(t, deviceTransport(), false)

	devices, err := c.GetInputDevices(context.Background())
	if err != nil {
		t.Fatalf("GetInputDevices: %v", err)
	}
	want := []Device{
		{
			ID: "1", DeviceName: "HD-SDI 1", DeviceNumber: "0", DeviceType: "AJA",
			Description: "AJA Capture Card", Channel: "1", ChannelType: "HD-SDI",
			Availability: false,
		},
		{
			ID: "2", DeviceName: "HD-SDI 2", DeviceNumber: "0", DeviceType: "AJA",
			Description: "AJA Capture Card", Channel: "2", ChannelType: "HD-SDI",
			Availability: true,
		},
	}
	if !reflect.DeepEqual(devices, want) {
		t.Fatalf("GetInputDevices = %+v, want %+v", devices, want)
	}
}

func TestGetInputDevicesSortsNumerically(t *testing.T) {
	list := `<device_list>
  <device><id>10</id><device_name>SDI 10</device_name></device>
  <device><id>9</id><device_name>SDI 9</device_name></device>
  <device><id>100</id><device_name>SDI 100</device_name></device>
</device_list>`
	transport := newFakeTransport().
		on(http.MethodGet, testBaseURL+"/devices", 200, list).
		on(http.MethodGet, testBaseURL+"/live_events?filter=active", 200, `<live_event_list/>`)
	c := newTestClient(t, transport, false)

	devices, err := c.GetInputDevices(context.Background())
	if err != nil {
		t.Fatalf("GetInputDevices: %v", err)
	}
	var ids []string
	for _, d := range devices {
		ids = append(ids, d.ID)
		if !d.Availability {
			t.Fatalf("device %s should be available with no active events", d.ID)
		}
	}
	if !reflect.DeepEqual(ids, []string{"9", "10", "100"}) {
		t.Fatalf("ids = %v", ids)
	}
}

func TestGetInputDevicesRejectsNonNumericID(t *testing.T) {
	transport := newFakeTransport().
		on(http.MethodGet, testBaseURL+"/devices", 200, `<device_list><device><id>abc</id></device></device_list>`).
		on(http.MethodGet, testBaseURL+"/live_events?filter=active", 200, `<live_event_list/>`)
	c := newTestClient(t, transport, false)

	if _, err := c.GetInputDevices(context.Background()); err == nil {
		t.Fatal("expected error for non-numeric device id")
	}
}

func TestGetInputDevicesPropagatesActiveEventsFailure(t *testing.T) {
	transport := newFakeTransport().
		on(http.MethodGet, testBaseURL+"/devices", 200, sampleDeviceList).
		on(http.MethodGet, testBaseURL+"/live_events?filter=active", 500, "boom")
	c := newTestClient(t, transport, false)

	_, err := c.GetInputDevices(context.Background())
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != 500 {
		t.Fatalf("expected 500 ResponseError, got %v", err)
	}
}

func TestGetInputDeviceByID(t *testing.T) {
	transport := deviceTransport()
	c := newTestClient(t, transport, false)

	device, err := c.GetInputDeviceByID(context.Background(), "2")
	if err != nil {
		t.Fatalf("GetInputDeviceByID: %v", err)
	}
	want := Device{
		ID: "2", DeviceName: "HD-SDI 2", DeviceNumber: "0", DeviceType: "AJA",
		Description: "AJA Capture Card", Channel: "2", ChannelType: "HD-SDI",
		Quad: true, Availability: true,
	}
	if device != want {
		t.Fatalf("GetInputDeviceByID = %+v, want %+v", device, want)
	}
	if transport.requests[0].url != testBaseURL+"/devices/2" {
		t.Fatalf("first request = %+v", transport.requests[0])
	}
}
