package grouping

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/host"
)

func TestOnGroupUpdated_RenameCarriesColor(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	tab := hs.host.OpenTab(1, "a", "https://www.youtube.com/watch?v=a", true)

	res, err := hs.svc.GroupTab(ctx, tab, "Tech", host.Palette)
	require.NoError(t, err)

	// User renames the group in the browser.
	_, err = hs.host.UpdateGroup(ctx, res.GroupID, host.GroupUpdate{Title: host.StringPtr("Technology")})
	require.NoError(t, err)

	col, err := hs.svc.colors.AssignColor(ctx, "Technology", tab.ID, tab.WindowID, host.Palette)
	require.NoError(t, err)
	require.Equal(t, res.Color, col)

	_, ok := hs.svc.State().GroupID("Tech")
	require.False(t, ok)
	id, ok := hs.svc.State().GroupID("Technology")
	require.True(t, ok)
	require.Equal(t, res.GroupID, id)
}

func TestOnGroupUpdated_Recolor(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	tab := hs.host.OpenTab(1, "a", "https://www.youtube.com/watch?v=a", true)
	res, err := hs.svc.GroupTab(ctx, tab, "Tech", []host.Color{host.Blue})
	require.NoError(t, err)

	_, err = hs.host.UpdateGroup(ctx, res.GroupID, host.GroupUpdate{Color: host.ColorPtr(host.Orange)})
	require.NoError(t, err)

	col, ok := hs.svc.State().CachedColor("Tech")
	require.True(t, ok)
	require.Equal(t, host.Orange, col)
	require.Equal(t, host.Orange, hs.store.grouping.CategoryColors["Tech"])
}

func TestOnGroupRemoved_PrunesMapping(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	tab := hs.host.OpenTab(1, "a", "https://www.youtube.com/watch?v=a", true)
	res, err := hs.svc.GroupTab(ctx, tab, "Tech", host.Palette)
	require.NoError(t, err)
	hs.svc.Pending().MarkPending(res.GroupID)

	require.NoError(t, hs.host.RemoveGroup(ctx, res.GroupID))

	_, ok := hs.svc.State().GroupID("Tech")
	require.False(t, ok)
	_, ok = hs.svc.State().CachedColor("Tech")
	require.False(t, ok)
	require.Zero(t, hs.svc.Pending().Len())
	require.NotContains(t, hs.store.grouping.CategoryGroupIDs, "Tech")
}

func TestEvents_SwallowErrorsBeforeInitialize(t *testing.T) {
	mem := host.NewMemory()
	cfg := config.DefaultConfig()
	svc := NewService(mem, &memStore{}, func() *config.Config { return cfg })

	require.NotPanics(t, func() {
		svc.OnGroupRemoved(context.Background(), 1)
		svc.OnGroupUpdated(context.Background(), host.Group{ID: 1, Title: "x"})
	})
}

func TestEvents_QueueSweepForRunLoop(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Unix(1_700_000_000, 0).UnixNano())
	mem := host.NewMemory()
	cfg := config.DefaultConfig()
	svc := NewService(mem, &memStore{}, func() *config.Config { return cfg },
		WithClock(func() time.Time { return time.Unix(0, now.Load()) }))
	require.NoError(t, svc.Initialize(context.Background()))
	mem.Subscribe(svc)
	ctx := context.Background()

	mem.OpenTab(1, "anchor", "https://example.com", true)
	tab := mem.OpenTab(1, "a", "https://www.youtube.com/watch?v=a", false)
	res, err := svc.GroupTab(ctx, tab, "Tech", host.Palette)
	require.NoError(t, err)
	require.NoError(t, mem.CloseTab(tab.ID))

	// Events only queue; nothing is swept until the loop runs.
	svc.OnGroupUpdated(ctx, host.Group{ID: 999})
	_, pending := svc.Pending().Timestamp(res.GroupID)
	require.False(t, pending)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go svc.Sweeper().Run(runCtx, 0)

	require.Eventually(t, func() bool {
		_, ok := svc.Pending().Timestamp(res.GroupID)
		return ok
	}, time.Second, time.Millisecond)

	// After the grace period the next event removes it.
	now.Add(int64(cfg.Settings.Grace()))
	svc.OnGroupUpdated(ctx, host.Group{ID: 999})
	require.Eventually(t, func() bool {
		_, err := mem.GetGroup(ctx, res.GroupID)
		return err != nil
	}, time.Second, time.Millisecond, "empty group removed after grace")
	_, ok := svc.State().GroupID("Tech")
	require.False(t, ok)
}
