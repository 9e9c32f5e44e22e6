package elemental

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SourceTypeDeviceInput previews a physical capture device.
const SourceTypeDeviceInput = "DeviceInput"

const previewOp = "generate preview"

type previewResponse struct {
	Type           string          `json:"type"`
	Message        string          `json:"message"`
	PreviewImageID json.RawMessage `json:"preview_image_id"`
}

// GeneratePreview asks the appliance to grab a thumbnail from a device input.
func (c *Client) GeneratePreview(ctx context.Context, inputID string) (PreviewResult, error) {
	return c.GenerateSourcePreview(ctx, SourceTypeDeviceInput, inputID)
}

// GenerateSourcePreview asks the appliance to grab a thumbnail from an input
// of the given source type.
func (c *Client) GenerateSourcePreview(ctx context.Context, sourceType, inputID string) (PreviewResult, error) {
	u := c.url("/inputs/generate_preview")
	headers := c.Headers(u)
	headers["Accept"] = "*/*"
	headers["Content-Type"] = contentTypeForm

	resp, err := c.send(ctx, http.MethodPost, u, headers, previewForm(sourceType, inputID))
	if err != nil {
		return PreviewResult{}, err
	}

	body := resp.Body()
	opErr := func(msg string, cause error) error {
		return &OperationError{
			Op:         previewOp,
			StatusCode: resp.StatusCode(),
			Body:       string(body),
			Message:    msg,
			Err:        cause,
		}
	}

	var parsed previewResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return PreviewResult{}, opErr("", fmt.Errorf("decode preview response: %w", err))
	}
	if strings.EqualFold(parsed.Type, "error") {
		return PreviewResult{}, opErr(parsed.Message, nil)
	}
	imageID, err := rawID(parsed.PreviewImageID)
	if err != nil {
		return PreviewResult{}, opErr(parsed.Message, err)
	}

	return PreviewResult{
		ImageID:    imageID,
		PreviewURL: c.url("/images/thumbs/p_%s_job_0.jpg", imageID),
	}, nil
}

// previewForm keeps the bracketed Rails-style keys the appliance expects.
func previewForm(sourceType, inputID string) []byte {
	fields := [][2]string{
		{"input_key", "0"},
		{"live_event[inputs_attributes][0][source_type]", sourceType},
		{"live_event[inputs_attributes][0][device_input_attributes][sdi_settings_attributes][input_format]", "Auto"},
		{"live_event[inputs_attributes][0][device_input_attributes][device_id]", inputID},
	}
	var buf bytes.Buffer
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(f[0])
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(f[1]))
	}
	return buf.Bytes()
}

// rawID accepts the image id as either a JSON number or string.
func rawID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errors.New("preview response has no preview_image_id")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("decode preview_image_id: %w", err)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
		return "", errors.New("preview response has empty preview_image_id")
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("decode preview_image_id: %w", err)
	}
	return n.String(), nil
}
