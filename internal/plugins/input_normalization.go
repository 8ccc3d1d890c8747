package plugins

import (
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/model"
	"github.com/automenta/cog-sub003/internal/reasonctx"
	"github.com/automenta/cog-sub003/internal/term"
	"github.com/automenta/cog-sub003/internal/unify"
)

// InputNormalization turns raw ExternalInput KIF into PotentialAssertion
// events (or Context rule registrations), dispatching on the top-level
// operator.
type InputNormalization struct {
	logger *zap.Logger
}

// NewInputNormalization returns an unstarted InputNormalization plugin.
func NewInputNormalization(logger *zap.Logger) *InputNormalization {
	return &InputNormalization{logger: noopLogger(logger)}
}

func (p *InputNormalization) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.ExternalInput) {
		p.normalize(bus, ctx, e)
	})
	return nil
}

func (p *InputNormalization) Shutdown() {}

func (p *InputNormalization) normalize(bus *eventbus.Bus, ctx *reasonctx.Context, in eventbus.ExternalInput) {
	list, ok := in.KIF.(*term.List)
	if !ok {
		p.logger.Warn("dropping non-list top-level input", zap.String("kif", in.KIF.String()))
		return
	}

	op, hasOp := list.Operator()
	if !hasOp {
		p.emitPositive(bus, ctx, in, list)
		return
	}

	switch op {
	case "=>", "<=>":
		rules, warn, orUsed, ok := buildRule(list, nil)
		if !ok {
			if orUsed {
				p.logger.Warn("dropping rule: `or` in antecedent is unsupported", zap.String("kif", list.String()))
			} else {
				p.logger.Warn("dropping malformed rule", zap.String("kif", list.String()))
			}
			return
		}
		if warn {
			p.logger.Warn("rule consequent introduces variables not covered by its antecedent",
				zap.String("kif", list.String()))
		}
		for _, r := range rules {
			ctx.AddRule(r)
		}

	case "forall":
		vars, body, ok := quantifierParts(list)
		if !ok {
			p.logger.Warn("dropping malformed forall", zap.String("kif", list.String()))
			return
		}
		if bodyList, isList := body.(*term.List); isList {
			if bodyOp, ok := bodyList.Operator(); ok && (bodyOp == "=>" || bodyOp == "<=>") {
				rules, warn, orUsed, ok := buildRule(bodyList, vars)
				if !ok {
					if orUsed {
						p.logger.Warn("dropping forall-wrapped rule: `or` in antecedent is unsupported", zap.String("kif", list.String()))
					} else {
						p.logger.Warn("dropping malformed forall-wrapped rule", zap.String("kif", list.String()))
					}
					return
				}
				if warn {
					p.logger.Warn("forall-wrapped rule consequent introduces uncovered variables",
						zap.String("kif", list.String()))
				}
				for _, r := range rules {
					ctx.AddRule(r)
				}
				// A forall-wrapped implication is stored as a Context
				// Rule for forward chaining AND as a UNIVERSAL assertion
				// so find_universals_by_predicate also carries it; the
				// universal-instantiation plugin matches the body's
				// antecedent and emits the same consequent as forward
				// chaining would, and the KB's exact-duplicate check
				// keeps whichever path fires second a no-op.
			}
		}
		p.emitUniversal(bus, ctx, in, list, vars)

	case "exists":
		vars, body, ok := quantifierParts(list)
		if !ok {
			p.logger.Warn("dropping malformed exists", zap.String("kif", list.String()))
			return
		}
		skolemized := ctx.Skolemize(body, vars, unify.Bindings{})
		skolemizedList, ok := skolemized.(*term.List)
		if !ok {
			p.logger.Warn("skolemized exists body is not a list", zap.String("kif", list.String()))
			return
		}
		p.normalize(bus, ctx, eventbus.ExternalInput{KIF: skolemizedList, SourceNote: in.SourceNote, Base: in.Base})

	case "not":
		if list.Len() != 2 {
			p.logger.Warn("dropping not with arity != 1", zap.String("kif", list.String()))
			return
		}
		if _, isList := list.Children()[1].(*term.List); !isList {
			p.logger.Warn("dropping not applied to a non-list", zap.String("kif", list.String()))
			return
		}
		p.emitPositive(bus, ctx, in, list)

	default:
		p.emitPositive(bus, ctx, in, list)
	}
}

// quantifierParts decomposes (forall (vars...) body) / (exists (vars...)
// body) into the bound variable names and the body term.
func quantifierParts(list *term.List) ([]string, term.Term, bool) {
	if list.Len() != 3 {
		return nil, nil, false
	}
	varList, ok := list.Children()[1].(*term.List)
	if !ok || varList.Len() == 0 {
		return nil, nil, false
	}
	vars := make([]string, 0, varList.Len())
	for _, c := range varList.Children() {
		v, ok := c.(*term.Var)
		if !ok {
			return nil, nil, false
		}
		vars = append(vars, v.Name())
	}
	return vars, list.Children()[2], true
}

func (p *InputNormalization) emitPositive(bus *eventbus.Bus, ctx *reasonctx.Context, in eventbus.ExternalInput, kif *term.List) {
	if kif.HasVars() {
		p.logger.Warn("dropping ground input containing free variables", zap.String("kif", kif.String()))
		return
	}
	kind := model.Ground
	if kif.HasSkolem() {
		kind = model.Skolemized
	}
	pot := &model.PotentialAssertion{
		KIF:        kif,
		Priority:   in.Base / (1 + float64(kif.Weight())),
		SourceNote: in.SourceNote,
		Kind:       kind,
		IsNegated:  isNegated(kif),
		TargetNote: in.SourceNote,
	}
	pot.IsEquality, pot.IsOrientedEquality = equalityFlags(effectiveTerm(kif, pot.IsNegated))
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: pot})
}

func (p *InputNormalization) emitUniversal(bus *eventbus.Bus, ctx *reasonctx.Context, in eventbus.ExternalInput, kif *term.List, vars []string) {
	pot := &model.PotentialAssertion{
		KIF:            kif,
		Priority:       in.Base / (1 + float64(kif.Weight())),
		SourceNote:     in.SourceNote,
		Kind:           model.Universal,
		QuantifiedVars: vars,
		TargetNote:     in.SourceNote,
	}
	bus.Publish(eventbus.PotentialAssertionEvent{Potential: pot})
}

// equalityFlags reports whether t is an equality, and whether it is an
// oriented one (weight(lhs) > weight(rhs), making it usable as a
// left-to-right rewrite rule).
func equalityFlags(t *term.List) (isEquality, isOriented bool) {
	op, ok := t.Operator()
	if !ok || op != "=" || t.Len() != 3 {
		return false, false
	}
	lhs, rhs := t.Children()[1], t.Children()[2]
	return true, lhs.Weight() > rhs.Weight()
}
