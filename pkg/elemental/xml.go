package elemental

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// walkText streams the document and calls fn for every element with its
// ancestry (root first) and its trimmed direct character data.
func walkText(data []byte, fn func(path []string, text string)) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		path  []string
		texts []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			texts = append(texts, &strings.Builder{})
		case xml.CharData:
			if n := len(texts); n > 0 {
				texts[n-1].Write(t)
			}
		case xml.EndElement:
			n := len(path)
			if n == 0 {
				continue
			}
			fn(path, strings.TrimSpace(texts[n-1].String()))
			path = path[:n-1]
			texts = texts[:n-1]
		}
	}
	if len(path) != 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func endsWith(path []string, suffix ...string) bool {
	if len(path) < len(suffix) {
		return false
	}
	offset := len(path) - len(suffix)
	for i, s := range suffix {
		if path[offset+i] != s {
			return false
		}
	}
	return true
}

// parseStatus returns the <status> directly under the root, falling back to
// the first <status> anywhere in the document.
func parseStatus(data []byte) (string, bool, error) {
	var rootStatus, anyStatus string
	var haveRoot, haveAny bool
	err := walkText(data, func(path []string, text string) {
		if path[len(path)-1] != "status" {
			return
		}
		if len(path) == 2 && !haveRoot {
			rootStatus, haveRoot = text, true
		}
		if !haveAny {
			anyStatus, haveAny = text, true
		}
	})
	if err != nil {
		return "", false, err
	}
	if haveRoot {
		return rootStatus, true, nil
	}
	return anyStatus, haveAny, nil
}

type createdEventXML struct {
	IDs []string `xml:"id"`
}

type deviceXML struct {
	ID           string `xml:"id"`
	Name         string `xml:"name"`
	DeviceName   string `xml:"device_name"`
	DeviceNumber string `xml:"device_number"`
	DeviceType   string `xml:"device_type"`
	Description  string `xml:"description"`
	Channel      string `xml:"channel"`
	ChannelType  string `xml:"channel_type"`
	Quad         string `xml:"quad"`
}

type deviceListXML struct {
	Devices []deviceXML `xml:"device"`
}

func (d deviceXML) toDevice() Device {
	return Device{
		ID:           strings.TrimSpace(d.ID),
		Name:         strings.TrimSpace(d.Name),
		DeviceName:   strings.TrimSpace(d.DeviceName),
		DeviceNumber: strings.TrimSpace(d.DeviceNumber),
		DeviceType:   strings.TrimSpace(d.DeviceType),
		Description:  strings.TrimSpace(d.Description),
		Channel:      strings.TrimSpace(d.Channel),
		ChannelType:  strings.TrimSpace(d.ChannelType),
		Quad:         strings.EqualFold(strings.TrimSpace(d.Quad), "true"),
	}
}

type liveEventListXML struct {
	Events []liveEventXML `xml:"live_event"`
}

type liveEventXML struct {
	ID     string `xml:"id"`
	Name   string `xml:"name"`
	Status string `xml:"status"`
	Inputs []struct {
		DeviceName string `xml:"device_input>device_name"`
	} `xml:"input"`
}

func (e liveEventXML) toLiveEvent() LiveEvent {
	out := LiveEvent{
		ID:     strings.TrimSpace(e.ID),
		Name:   strings.TrimSpace(e.Name),
		Status: strings.TrimSpace(e.Status),
	}
	for _, in := range e.Inputs {
		if name := strings.TrimSpace(in.DeviceName); name != "" {
			out.DeviceNames = append(out.DeviceNames, name)
		}
	}
	return out
}
