package plugins

import (
	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/reasonctx"
)

// Commit subscribes to PotentialAssertionEvent and forwards each
// candidate to the correct KB. It contains no admission logic of its
// own — that all lives in kb.KB.Commit.
type Commit struct{}

// NewCommit returns an unstarted Commit plugin.
func NewCommit() *Commit { return &Commit{} }

func (p *Commit) Init(bus *eventbus.Bus, ctx *reasonctx.Context) error {
	eventbus.Subscribe(bus, func(e eventbus.PotentialAssertionEvent) {
		ctx.GetKB(e.Potential.TargetNote).Commit(e.Potential)
	})
	return nil
}

func (p *Commit) Shutdown() {}
