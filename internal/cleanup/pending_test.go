package cleanup

import (
	"testing"
	"time"
)

func TestMarkPending_KeepsFirstTimestamp(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCoordinator(func() time.Time { return now })

	first := c.MarkPending(7)
	now = now.Add(5 * time.Second)
	again := c.MarkPending(7)

	if !first.Equal(again) {
		t.Errorf("second mark = %v, want first mark %v", again, first)
	}
	ts, ok := c.Timestamp(7)
	if !ok || !ts.Equal(first) {
		t.Errorf("Timestamp(7) = %v, %v", ts, ok)
	}
}

func TestClearPending(t *testing.T) {
	c := NewCoordinator(nil)
	c.MarkPending(1)
	c.MarkPending(2)

	c.ClearPending(1)
	c.ClearPending(99)

	if _, ok := c.Timestamp(1); ok {
		t.Error("group 1 still pending after clear")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestPending_Sorted(t *testing.T) {
	c := NewCoordinator(nil)
	for _, id := range []int{5, 2, 9, 1} {
		c.MarkPending(id)
	}
	got := c.Pending()
	want := []int{1, 2, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("Pending = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Pending = %v, want %v", got, want)
		}
	}
}

func TestMarkPending_AfterClearRestartsTimer(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCoordinator(func() time.Time { return now })
	c.MarkPending(3)
	c.ClearPending(3)

	now = now.Add(time.Minute)
	ts := c.MarkPending(3)
	if !ts.Equal(now) {
		t.Errorf("restarted mark = %v, want %v", ts, now)
	}
}
