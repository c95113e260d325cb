package sync

import (
	"context"
	"fmt"
	"sort"

	"parley/internal/logging"
	"parley/internal/types"
)

// SetFilter switches the view filter and reloads. The FilterLoading flag is
// raised instead of the generic Loading flag so the presentation layer can
// keep the old list on screen during the transition.
func (s *Synchronizer) SetFilter(ctx context.Context, filter types.Filter) error {
	if !filter.Valid() {
		return fmt.Errorf("unknown filter %q", filter)
	}
	view := s.store.View()
	if view.Filter == filter {
		return nil
	}
	s.store.SetFilter(filter)
	s.store.SetFilterLoading(true)
	return s.load(ctx, filter, view.Search, true)
}

// SetSearch records the search text immediately and schedules the reload
// behind a settle window so rapid typing does not flood the gateway. Each
// call supersedes the previous pending reload.
func (s *Synchronizer) SetSearch(term string) {
	s.store.SetSearch(term)
	s.tasks.Schedule(taskSearch, s.searchDebounce, func() {
		view := s.store.View()
		if view.Search != term {
			return
		}
		if err := s.load(context.Background(), view.Filter, view.Search, true); err != nil {
			s.log.Warn("search reload failed", logging.F("search", term), logging.F("err", err))
		}
	})
}

// scheduleSettleReload runs after a pin/archive/title mutation: it waits out
// the settle delay so the remote write propagates, then either applies the
// pending automatic filter switch or refreshes the current view. Failures are
// best-effort and swallowed.
func (s *Synchronizer) scheduleSettleReload() {
	s.tasks.Schedule(taskSettle, s.settleDelay, func() {
		ctx := context.Background()
		// A switch to the filter already on screen still needs the reload;
		// SetFilter would treat it as a no-op.
		if target, ok := s.store.ConsumePendingFilter(); ok && target != s.store.View().Filter {
			if err := s.SetFilter(ctx, target); err != nil {
				s.log.Warn("automatic filter switch failed",
					logging.F("filter", string(target)), logging.F("err", err))
			}
			return
		}
		view := s.store.View()
		if err := s.load(ctx, view.Filter, view.Search, true); err != nil {
			s.log.Warn("settle reload failed", logging.F("err", err))
		}
	})
}

// filterTarget computes the automatic view transition for a pinned/archived
// change. Archival transitions win when both flags changed in one call, and
// at most one transition fires per mutation.
func filterTarget(prev, next types.Session, current types.Filter) (types.Filter, bool) {
	if prev.Archived != next.Archived {
		if next.Archived {
			return types.FilterArchived, true
		}
		return types.FilterAll, true
	}
	if prev.Pinned != next.Pinned {
		if next.Pinned {
			if current != types.FilterPinned {
				return types.FilterPinned, true
			}
			return "", false
		}
		if current == types.FilterPinned {
			return types.FilterAll, true
		}
		return "", false
	}
	return "", false
}

// sortSessions orders a loaded list for display: pinned first, then most
// recently updated. The archived view has no pin concept, so it sorts by
// recency alone.
func sortSessions(sessions []types.Session, filter types.Filter) []types.Session {
	sorted := make([]types.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if filter != types.FilterArchived && a.Pinned != b.Pinned {
			return a.Pinned
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	return sorted
}
