package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/elemental-live/internal/config"
	"github.com/samvad-hq/elemental-live/internal/logger"
	"github.com/samvad-hq/elemental-live/internal/monitor"
	"github.com/samvad-hq/elemental-live/internal/storage"
	"github.com/samvad-hq/elemental-live/pkg/encoders"
	"github.com/samvad-hq/elemental-live/pkg/publishers"
)

// Monitor represents the encoder monitor runtime. It owns the poll loop and
// the lifecycles of the state store and publishers.
type Monitor struct {
	cfg          *config.Config
	encoderReg   *encoders.Registry
	dispatcher   *publishers.Dispatcher
	service      *monitor.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewMonitor builds a monitor runtime from config files.
func NewMonitor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	encoderReg, err := encoders.LoadRegistry(cfg.EncodersFile)
	if err != nil {
		return nil, fmt.Errorf("load encoders registry: %w", err)
	}
	encoderList := encoderReg.All()
	encoderIDs := make([]string, 0, len(encoderList))
	for _, e := range encoderList {
		encoderIDs = append(encoderIDs, e.ID)
	}
	log.InfoObj("encoders registry loaded", "encoders_meta", map[string]any{
		"count": len(encoderIDs),
		"ids":   encoderIDs,
	})

	pubCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	enabledPublishers := publishers.Enabled(pubCfgs)
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	dispatcher, err := publishers.OpenAll(ctx, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("open publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers opened", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		StateTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = dispatcher.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"state_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Monitor{
		cfg:          cfg,
		encoderReg:   encoderReg,
		dispatcher:   dispatcher,
		service:      monitor.NewService(nil, dispatcher, log, store),
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil || m.service == nil {
		return fmt.Errorf("monitor is not initialized")
	}
	defer m.close()

	encs := m.encoderReg.Enabled()
	if len(encs) == 0 {
		m.log.WarnObj("no encoders enabled; monitor idle", "encoders_file", m.cfg.EncodersFile)
		<-ctx.Done()
		return nil
	}

	m.log.InfoObj("monitor loop starting", "monitor_state", map[string]any{
		"encoders_count":   len(encs),
		"publishers_count": m.dispatcher.Size(),
		"poll_interval":    m.pollInterval.String(),
	})

	if err := m.runOnce(ctx, encs); err != nil {
		m.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("monitor loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := m.runOnce(ctx, encs); err != nil {
				m.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// runOnce performs a single poll pass across all encoders.
func (m *Monitor) runOnce(ctx context.Context, encs []encoders.Encoder) error {
	start := time.Now()
	m.log.InfoObj("poll started", "poll_meta", map[string]any{
		"encoders_count": len(encs),
		"started_at":     start.UTC(),
	})
	if err := m.service.Run(ctx, encs); err != nil {
		return err
	}
	m.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"encoders_count": len(encs),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return nil
}

func (m *Monitor) close() {
	if m == nil {
		return
	}
	if m.dispatcher != nil {
		if err := m.dispatcher.Close(); err != nil {
			m.log.ErrorObj("publishers close failed", "error", err)
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
