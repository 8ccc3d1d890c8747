package plugins

import (
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
)

// Retraction translates RetractionRequest events into KB/rule-set
// mutations: retracting a single assertion by id (cascading to its
// dependents), dropping an entire note's KB, or removing a rule by its
// canonical form.
type Retraction struct {
	logger *zap.Logger
}

// NewRetraction returns an unstarted Retraction plugin.
func NewRetraction(logger *zap.Logger) *Retraction {
	return &Retraction{logger: noopLogger(logger)}
}

func (p *Retraction) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.RetractionRequest) {
		p.onRetractionRequest(bus, ctx, e)
	})
	return nil
}

func (p *Retraction) Shutdown() {}

func (p *Retraction) onRetractionRequest(bus *eventbus.Bus, ctx *reasonctx.Context, e eventbus.RetractionRequest) {
	switch e.Kind {
	case eventbus.ByID:
		p.retractByID(ctx, e.Note, e.ID)
	case eventbus.ByNote:
		p.retractByNote(bus, ctx, e.Note)
	case eventbus.ByRuleForm:
		p.retractByRuleForm(ctx, e.KIF)
	default:
		p.logger.Warn("dropping retraction request with unknown kind")
	}
}

func (p *Retraction) retractByID(ctx *reasonctx.Context, note, id string) {
	if _, ok := ctx.GetKB(note).Retract(id); !ok {
		p.logger.Warn("retraction by id found nothing to remove",
			zap.String("id", id), zap.String("note", note))
	}
}

// retractByNote cascades every assertion out of note's KB (publishing
// AssertionRetracted for each), then drops the KB itself and announces
// the removal.
func (p *Retraction) retractByNote(bus *eventbus.Bus, ctx *reasonctx.Context, note string) {
	if note == "" {
		p.logger.Warn("dropping retraction by note with empty note (global KB is never dropped)")
		return
	}
	k := ctx.GetKB(note)
	k.Clear()
	ctx.RemoveKB(note)
	bus.Publish(eventbus.NoteRemoved{Note: note})
}

func (p *Retraction) retractByRuleForm(ctx *reasonctx.Context, kif term.Term) {
	list, ok := kif.(*term.List)
	if !ok {
		p.logger.Warn("dropping retraction by rule form for non-list KIF", zap.String("kif", kif.String()))
		return
	}
	if _, ok := ctx.RemoveRuleByForm(list); !ok {
		p.logger.Warn("retraction by rule form found no matching rule", zap.String("kif", list.String()))
	}
}
