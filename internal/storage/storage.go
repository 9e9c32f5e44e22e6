// Package storage remembers the last observed state of monitored subjects.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks the last observed state per key.
type Store interface {
	Close() error
	LastState(key string) (string, bool, error)
	SaveState(key, state string) error
	// StatesWithPrefix returns every unexpired state whose key starts with prefix.
	StatesWithPrefix(prefix string) (map[string]string, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	StateTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultStateTTL        = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.StateTTL <= 0 {
		opts.StateTTL = defaultStateTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore never remembers anything, so every observation is a transition.
type noopStore struct{}

func (noopStore) Close() error                           { return nil }
func (noopStore) LastState(string) (string, bool, error) { return "", false, nil }
func (noopStore) SaveState(string, string) error         { return nil }

func (noopStore) StatesWithPrefix(string) (map[string]string, error) { return nil, nil }
