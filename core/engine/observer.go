package engine

import (
	"go.uber.org/zap"
)

// KindNotApplicable marks a fee excluded by the applicability matcher
const KindNotApplicable = "NOT_APPLICABLE"

// Event describes one fee the engine skipped or flagged
type Event struct {
	FeeID        string
	FeeName      string
	Jurisdiction string
	// Kind is an error type such as DATA_INTEGRITY, or KindNotApplicable
	Kind   string
	Reason string
}

// Observer receives one event per skipped or flagged fee
type Observer interface {
	// FeeSkipped is called for fees left out of the breakdown
	FeeSkipped(e Event)

	// FeeFlagged is called for fees kept in the breakdown with an issue
	FeeFlagged(e Event)
}

// NopObserver discards every event
type NopObserver struct{}

func (NopObserver) FeeSkipped(Event) {}
func (NopObserver) FeeFlagged(Event) {}

// LogObserver writes events to a zap logger. Matcher exclusions are
// logged at debug level, data problems at warn.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an observer that logs through logger
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) fields(e Event) []zap.Field {
	return []zap.Field{
		zap.String("fee_id", e.FeeID),
		zap.String("fee_name", e.FeeName),
		zap.String("jurisdiction", e.Jurisdiction),
		zap.String("kind", e.Kind),
		zap.String("reason", e.Reason),
	}
}

func (o *LogObserver) FeeSkipped(e Event) {
	if e.Kind == KindNotApplicable {
		o.logger.Debug("fee skipped", o.fields(e)...)
		return
	}
	o.logger.Warn("fee skipped", o.fields(e)...)
}

func (o *LogObserver) FeeFlagged(e Event) {
	o.logger.Warn("fee flagged", o.fields(e)...)
}
