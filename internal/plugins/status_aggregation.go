package plugins

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/reasonctx"
)

// statusRollupEvery is how many AssertionAdded events pass before
// StatusAggregation logs a rolled-up counter snapshot, so a busy reasoner
// doesn't produce one structured log line per fact.
const statusRollupEvery = 500

// StatusAggregation is a pure observer: it holds no state the rest of the
// core depends on, only running counters for operator-facing logging. It
// relays every SystemStatus event (capacity pressure, rejected commits)
// immediately, and periodically logs a throughput snapshot so a log
// reader can see the reasoner is alive without a line per derivation.
type StatusAggregation struct {
	logger *zap.Logger

	added     atomic.Uint64
	retracted atomic.Uint64
	evicted   atomic.Uint64
	derived   atomic.Uint64
}

// NewStatusAggregation returns an unstarted StatusAggregation plugin.
func NewStatusAggregation(logger *zap.Logger) *StatusAggregation {
	return &StatusAggregation{logger: noopLogger(logger)}
}

func (p *StatusAggregation) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, p.onAssertionAdded)
	eventbus.Subscribe(bus, p.onAssertionRetracted)
	eventbus.Subscribe(bus, p.onAssertionEvicted)
	eventbus.Subscribe(bus, p.onSystemStatus)
	eventbus.Subscribe(bus, p.onRuleAdded)
	eventbus.Subscribe(bus, p.onRuleRemoved)
	return nil
}

func (p *StatusAggregation) Shutdown() {}

func (p *StatusAggregation) onAssertionAdded(e eventbus.AssertionAdded) {
	n := p.added.Add(1)
	if len(e.Assertion.Support) > 0 {
		p.derived.Add(1)
	}
	if n%statusRollupEvery == 0 {
		p.logThroughput()
	}
}

func (p *StatusAggregation) onAssertionRetracted(e eventbus.AssertionRetracted) {
	p.retracted.Add(1)
}

func (p *StatusAggregation) onAssertionEvicted(e eventbus.AssertionEvicted) {
	n := p.evicted.Add(1)
	p.logger.Info("assertion evicted under capacity pressure",
		zap.String("id", e.Assertion.ID),
		zap.String("note", e.Note),
		zap.Uint64("total_evicted", n),
	)
}

func (p *StatusAggregation) onSystemStatus(e eventbus.SystemStatus) {
	fields := []zap.Field{
		zap.String("note", e.Note),
		zap.Time("timestamp", e.Timestamp),
	}
	switch e.Level {
	case eventbus.StatusHalt:
		p.logger.Error(e.Message, fields...)
	case eventbus.StatusWarn:
		p.logger.Warn(e.Message, fields...)
	default:
		p.logger.Info(e.Message, fields...)
	}
}

func (p *StatusAggregation) onRuleAdded(e eventbus.RuleAdded) {
	p.logger.Debug("rule added", zap.String("id", e.Rule.ID), zap.String("form", e.Rule.CanonicalKey()))
}

func (p *StatusAggregation) onRuleRemoved(e eventbus.RuleRemoved) {
	p.logger.Debug("rule removed", zap.String("id", e.Rule.ID), zap.String("form", e.Rule.CanonicalKey()))
}

func (p *StatusAggregation) logThroughput() {
	p.logger.Info("reasoner throughput",
		zap.Uint64("assertions_added", p.added.Load()),
		zap.Uint64("assertions_derived", p.derived.Load()),
		zap.Uint64("assertions_retracted", p.retracted.Load()),
		zap.Uint64("assertions_evicted", p.evicted.Load()),
	)
}
