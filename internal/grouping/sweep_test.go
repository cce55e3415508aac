package grouping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabsort/internal/cleanup"
	"github.com/hpungsan/tabsort/internal/host"
)

// gatedHost parks GroupTabs for one tab until release is closed.
type gatedHost struct {
	*host.Memory
	gateTab int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedHost) GroupTabs(ctx context.Context, tabID int, existingGroupID *int) (int, error) {
	if tabID == g.gateTab {
		close(g.entered)
		<-g.release
	}
	return g.Memory.GroupTabs(ctx, tabID, existingGroupID)
}

func TestSweep_DoesNotRemoveGroupBeingReused(t *testing.T) {
	mem := host.NewMemory()
	gated := &gatedHost{Memory: mem, entered: make(chan struct{}), release: make(chan struct{})}
	hs := newHarnessWithHost(t, gated, mem)
	hs.cfg.Settings.AutoCleanupGraceMs = host.Int64Ptr(0)
	ctx := context.Background()

	mem.OpenTab(1, "anchor", "https://example.com", true)
	first := mem.OpenTab(1, "a", "https://www.youtube.com/watch?v=a", false)
	created, err := hs.svc.GroupTab(ctx, first, "Music", host.Palette)
	require.NoError(t, err)
	require.NoError(t, mem.CloseTab(first.ID))

	// A second Music tab reaches the host while the group is still empty.
	second := mem.OpenTab(1, "b", "https://www.youtube.com/watch?v=b", false)
	gated.gateTab = second.ID
	type outcome struct {
		res *GroupResult
		err error
	}
	grouped := make(chan outcome, 1)
	go func() {
		res, err := hs.svc.GroupTab(ctx, second, "Music", host.Palette)
		grouped <- outcome{res, err}
	}()
	<-gated.entered

	reports := make(chan cleanup.Report, 1)
	go func() { reports <- hs.svc.Sweeper().Sweep(ctx) }()

	require.Eventually(t, func() bool { return hs.svc.locks.Held("Music") == 2 }, time.Second, time.Millisecond)
	close(gated.release)

	got := <-grouped
	require.NoError(t, got.err)
	require.Equal(t, created.GroupID, got.res.GroupID)
	require.False(t, got.res.Created)

	r := <-reports
	require.Empty(t, r.Removed)
	require.Equal(t, 1, r.Rescued)

	tab, _ := mem.Tab(second.ID)
	require.Equal(t, created.GroupID, tab.GroupID)
	id, ok := hs.svc.State().GroupID("Music")
	require.True(t, ok)
	require.Equal(t, created.GroupID, id)
}
