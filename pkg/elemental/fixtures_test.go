package elemental

import (
	"context"
	"fmt"
	"sync"

	"github.com/samvad-hq/elemental-live/pkg/httpclient"
)

const testBaseURL = "http://elemental.example.com"

const sampleCreateResponse = `<?xml version="1.0" encoding="UTF-8"?>
<live_event href="/live_events/53" product="Elemental Live" version="2.14.3">
  <id>53</id>
  <name>qvbr_mediastore</name>
  <input>
    <id>71</id>
  </input>
  <status>pending</status>
</live_event>`

const sampleEvent = `<?xml version="1.0" encoding="UTF-8"?>
<live_event href="/live_events/139" product="Elemental Live" version="2.14.3">
  <id>139</id>
  <name>mortyg3b4</name>
  <input>
    <id>151</id>
    <device_input>
      <device_name>HD-SDI 1</device_name>
    </device_input>
  </input>
  <status>complete</status>
  <output_group>
    <apple_live_group_settings>
      <destination>
        <uri>https://vmjhch43nfkghi.data.mediastore.us-east-1.amazonaws.com/mortyg3b4/master/mortyg3b4.m3u8</uri>
        <username>ak</username>
      </destination>
    </apple_live_group_settings>
  </output_group>
  <output_group>
    <apple_live_group_settings>
      <destination>
        <uri>https://vmjhch43nfkghi.data.mediastore.us-east-1.amazonaws.com/mortyg3b4/backup/mortyg3b4.m3u8</uri>
      </destination>
    </apple_live_group_settings>
  </output_group>
</live_event>`

const sampleEventStatus = `<?xml version="1.0" encoding="UTF-8"?>
<live_event_status href="/live_events/139/status">
  <status>running</status>
  <elapsed>3721</elapsed>
</live_event_status>`

const sampleActiveEvents = `<?xml version="1.0" encoding="UTF-8"?>
<live_event_list>
  <live_event href="/live_events/139">
    <id>139</id>
    <name>mortyg3b4</name>
    <status>running</status>
    <input>
      <id>151</id>
      <device_input>
        <id>52</id>
        <device_type>AJA</device_type>
        <device_name>HD-SDI 1</device_name>
      </device_input>
    </input>
  </live_event>
  <live_event href="/live_events/140">
    <id>140</id>
    <name>file-loop</name>
    <status>preprocessing</status>
    <input>
      <id>152</id>
      <file_input>
        <uri>/data/loop.ts</uri>
      </file_input>
    </input>
  </live_event>
</live_event_list>`

// Listed out of order to exercise sorting.
const sampleDeviceList = `<?xml version="1.0" encoding="UTF-8"?>
<device_list>
  <device href="/devices/2">
    <id>2</id>
    <name nil="true"></name>
    <device_name>HD-SDI 2</device_name>
    <device_number>0</device_number>
    <device_type>AJA</device_type>
    <description>AJA Capture Card</description>
    <channel>2</channel>
    <channel_type>HD-SDI</channel_type>
    <quad>false</quad>
  </device>
  <device href="/devices/1">
    <id>1</id>
    <name nil="true"></name>
    <device_name>HD-SDI 1</device_name>
    <device_number>0</device_number>
    <device_type>AJA</device_type>
    <description>AJA Capture Card</description>
    <channel>1</channel>
    <channel_type>HD-SDI</channel_type>
    <quad>false</quad>
  </device>
</device_list>`

const sampleSingleDevice = `<?xml version="1.0" encoding="UTF-8"?>
<device href="/devices/2">
  <id>2</id>
  <name nil="true"></name>
  <device_name>HD-SDI 2</device_name>
  <device_number>0</device_number>
  <device_type>AJA</device_type>
  <description>AJA Capture Card</description>
  <channel>2</channel>
  <channel_type>HD-SDI</channel_type>
  <quad>true</quad>
</device>`

const samplePreviewSuccess = `{"type":"success","preview_image_id":1563568669}`

const sampleErrorResponse = `<?xml version="1.0" encoding="UTF-8"?>
<errors>
  <error>Live event not found</error>
</errors>`

type recordedRequest struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

type fakeResponse struct {
	status int
	body   string
}

func (r fakeResponse) Body() []byte    { return []byte(r.body) }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeTransport serves canned responses keyed by "METHOD url" and records every call.
type fakeTransport struct {
	mu       sync.Mutex
	routes   map[string]fakeResponse
	err      error
	requests []recordedRequest
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: make(map[string]fakeResponse)}
}

func (f *fakeTransport) on(method, url string, status int, body string) *fakeTransport {
	f.routes[method+" "+url] = fakeResponse{status: status, body: body}
	return f
}

func (f *fakeTransport) Do(_ context.Context, method, url string, headers map[string]string, body []byte) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method: method, url: url, headers: headers, body: string(body)})
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.routes[method+" "+url]
	if !ok {
		return fakeResponse{status: 404, body: fmt.Sprintf("no route for %s %s", method, url)}, nil
	}
	return resp, nil
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return recordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}
