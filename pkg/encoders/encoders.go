package encoders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/elemental-live/pkg/elemental"
	"gopkg.in/yaml.v3"
)

// Package encoders loads the set of ElementalLive appliances to manage from YAML/JSON.

const defaultTimeoutSeconds = 30

// Encoder describes one appliance entry.
type Encoder struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	BaseURL        string `json:"base_url" yaml:"base_url"`
	User           string `json:"user" yaml:"user"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        *bool  `json:"enabled" yaml:"enabled"`
}

type fileRegistry struct {
	Encoders []Encoder `json:"encoders" yaml:"encoders"`
}

// Registry holds the loaded encoder entries.
type Registry struct {
	mu       sync.RWMutex
	encoders []Encoder
	idx      map[string]Encoder
}

// LoadRegistry loads the encoder registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("encoders file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open encoders file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read encoders file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(fileReg.Encoders)
}

// NewRegistry sanitizes and validates entries.
func NewRegistry(entries []Encoder) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("encoders file contains no encoders entries")
	}

	reg := &Registry{
		encoders: make([]Encoder, len(entries)),
		idx:      make(map[string]Encoder, len(entries)),
	}
	for i := range entries {
		enc := sanitizeEncoder(entries[i])
		if err := validateEncoder(enc); err != nil {
			return nil, fmt.Errorf("encoders[%d]: %w", i, err)
		}
		if _, exists := reg.idx[enc.ID]; exists {
			return nil, fmt.Errorf("duplicate encoder id %q", enc.ID)
		}
		reg.encoders[i] = enc
		reg.idx[enc.ID] = enc
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg fileRegistry
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("encoders file format not recognized (expected YAML or JSON)")
}

func sanitizeEncoder(e Encoder) Encoder {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	e.User = strings.TrimSpace(e.User)
	e.APIKey = strings.TrimSpace(e.APIKey)

	if e.Name == "" {
		e.Name = e.ID
	}
	if e.TimeoutSeconds <= 0 {
		e.TimeoutSeconds = defaultTimeoutSeconds
	}
	if e.Enabled == nil {
		def := true
		e.Enabled = &def
	}
	return e
}

func validateEncoder(e Encoder) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.BaseURL == "" {
		return fmt.Errorf("base_url is required for encoder %q", e.ID)
	}
	if (e.User == "") != (e.APIKey == "") {
		return fmt.Errorf("user and api_key must be set together for encoder %q", e.ID)
	}
	return nil
}

// ByID returns the encoder entry for id.
func (r *Registry) ByID(id string) (Encoder, bool) {
	if r == nil {
		return Encoder{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Encoder{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.idx[id]
	return e, ok
}

// All returns every configured encoder.
func (r *Registry) All() []Encoder {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Encoder, len(r.encoders))
	copy(out, r.encoders)
	return out
}

// Enabled returns encoders that are enabled.
func (r *Registry) Enabled() []Encoder {
	all := r.All()
	out := make([]Encoder, 0, len(all))
	for _, e := range all {
		if e.EnabledValue() {
			out = append(out, e)
		}
	}
	return out
}

// EnabledValue returns the enabled flag defaulting to true.
func (e Encoder) EnabledValue() bool {
	if e.Enabled == nil {
		return true
	}
	return *e.Enabled
}

// Timeout returns the per-request timeout for the encoder.
func (e Encoder) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// ClientConfig maps the entry onto elemental client settings.
func (e Encoder) ClientConfig() elemental.Config {
	return elemental.Config{
		BaseURL: e.BaseURL,
		User:    e.User,
		APIKey:  e.APIKey,
		Timeout: e.Timeout(),
	}
}

// NewClient builds an elemental client for the entry.
func (e Encoder) NewClient(opts ...elemental.Option) (*elemental.Client, error) {
	c, err := elemental.New(e.ClientConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("encoder %s: %w", e.ID, err)
	}
	return c, nil
}
