package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// LogPublisher writes events to the log. Used when Pub/Sub is disabled.
// Pub/Sub無効時にイベントをログへ出力
type LogPublisher struct {
	logger *zap.Logger
}

var _ inventory.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger.Named("events")}
}

// PublishLotReconciled implements inventory.EventPublisher
func (p *LogPublisher) PublishLotReconciled(_ context.Context, event inventory.LotReconciledEvent) error {
	p.logger.Info(inventory.EventTypeLotReconciled,
		zap.String("kind", string(event.Kind)),
		zap.String("reference", event.Reference),
		zap.String("lot", event.Lot),
		zap.Int("drums", event.Drums),
		zap.Float64("total_kg", event.TotalKg),
		zap.String("actor", event.Actor),
	)
	return nil
}

// PublishDrumsMoved implements inventory.EventPublisher
func (p *LogPublisher) PublishDrumsMoved(_ context.Context, event inventory.DrumsMovedEvent) error {
	p.logger.Info(inventory.EventTypeDrumsMoved,
		zap.String("lot", event.Lot),
		zap.String("destination", event.Destination),
		zap.Int("entries", len(event.Entries)),
		zap.String("actor", event.Actor),
	)
	return nil
}

// PublishRollback implements inventory.EventPublisher
func (p *LogPublisher) PublishRollback(_ context.Context, event inventory.RollbackEvent) error {
	p.logger.Info(inventory.EventTypeRollback,
		zap.Int("removed", len(event.Removed)),
		zap.Stringers("orphaned", event.Orphaned),
		zap.String("actor", event.Actor),
	)
	return nil
}
