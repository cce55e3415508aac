package grouping

import (
	"context"

	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/logx"
)

var _ host.Listener = (*Service)(nil)

// Host events can arrive while a category lock is held on the same goroutine,
// so they only queue a sweep for the Sweeper's Run loop.

// OnGroupRemoved drops a removed group from the mapping and the pending set.
// Errors are logged and swallowed.
func (s *Service) OnGroupRemoved(ctx context.Context, groupID int) {
	log := logx.Ctx(ctx).With("group", groupID)
	s.pending.ClearPending(groupID)
	if err := s.state.PruneGroup(ctx, groupID); err != nil {
		log.Warn("prune removed group failed", "err", err)
	}
	s.sweeper.Trigger()
}

// OnGroupUpdated reconciles a rename or recolor reported by the host. Errors
// are logged and swallowed.
func (s *Service) OnGroupUpdated(ctx context.Context, group host.Group) {
	log := logx.Ctx(ctx).With("group", group.ID)
	if err := s.state.ApplyGroupUpdate(ctx, group); err != nil {
		log.Warn("apply group update failed", "err", err, "title", group.Title, "color", group.Color)
	}
	s.sweeper.Trigger()
}
