package service

import (
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"assetserve/internal/engine"
)

// Source maps an OS path to the engine keys that cache it
type Source interface {
	Changed(e *engine.Engine, osPath string) (string, bool)
}

// ChangeService turns file system notifications into engine invalidations
// and asset events
type ChangeService struct {
	source Source
	engine *engine.Engine
	bus    *EventBus
	log    *zap.Logger
}

// NewChangeService creates a change service. bus may be nil.
func NewChangeService(source Source, e *engine.Engine, bus *EventBus, logger *zap.Logger) *ChangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeService{
		source: source,
		engine: e,
		bus:    bus,
		log:    logger.Named("changes"),
	}
}

// FileChanged invalidates what the engine knows about osPath and tells
// subscribers. Paths outside the source are ignored.
func (s *ChangeService) FileChanged(osPath string) {
	rel, ok := s.source.Changed(s.engine, osPath)
	if !ok {
		return
	}

	eventType := EventAssetChanged
	if _, err := os.Stat(osPath); errors.Is(err, fs.ErrNotExist) {
		eventType = EventAssetRemoved
	}
	s.log.Info("asset changed", zap.String("path", rel), zap.String("event", string(eventType)))

	if s.bus != nil {
		s.bus.Publish(Event{Type: eventType, Payload: AssetPayload{Path: rel}})
	}
}
