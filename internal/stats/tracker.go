// Package stats records grouping outcomes.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/hpungsan/tabsort/internal/errors"
)

// Stats are the persisted grouping statistics.
type Stats struct {
	TotalGrouped      int            `json:"total_grouped"`
	CategoryCount     map[string]int `json:"category_count"`
	GroupingSuccesses int            `json:"grouping_successes"`
	GroupingFailures  int            `json:"grouping_failures"`
	TotalDurationMs   int64          `json:"total_duration_ms"`
	LastDurationMs    int64          `json:"last_duration_ms"`
	UpdatedAt         int64          `json:"updated_at,omitempty"`
}

// AverageDurationMs is the mean duration over every recorded attempt.
func (s Stats) AverageDurationMs() int64 {
	attempts := int64(s.GroupingSuccesses + s.GroupingFailures)
	if attempts == 0 {
		return 0
	}
	return s.TotalDurationMs / attempts
}

// Store persists stats.
type Store interface {
	ReadStats(ctx context.Context) (Stats, error)
	WriteStats(ctx context.Context, s Stats) error
}

// Outcome is one grouping attempt.
type Outcome struct {
	Category string
	Success  bool
	Duration time.Duration
}

// Tracker merges outcomes into the stored stats. Each Record is a single
// read-merge-write under the tracker lock, so concurrent calls never lose updates.
type Tracker struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// RecordSuccess records a successful grouping.
func (t *Tracker) RecordSuccess(ctx context.Context, category string, d time.Duration) error {
	return t.Record(ctx, Outcome{Category: category, Success: true, Duration: d})
}

// RecordFailure records a failed grouping attempt.
func (t *Tracker) RecordFailure(ctx context.Context, category string, d time.Duration) error {
	return t.Record(ctx, Outcome{Category: category, Success: false, Duration: d})
}

// Record merges one outcome into the stored stats.
func (t *Tracker) Record(ctx context.Context, o Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.store.ReadStats(ctx)
	if err != nil {
		return errors.NewPersistence("readStats", err).WithDomain(errors.DomainStats)
	}
	if s.CategoryCount == nil {
		s.CategoryCount = make(map[string]int)
	}

	ms := o.Duration.Milliseconds()
	if o.Success {
		s.TotalGrouped++
		s.GroupingSuccesses++
		if o.Category != "" {
			s.CategoryCount[o.Category]++
		}
	} else {
		s.GroupingFailures++
	}
	s.TotalDurationMs += ms
	s.LastDurationMs = ms
	s.UpdatedAt = t.now().Unix()

	if err := t.store.WriteStats(ctx, s); err != nil {
		return errors.NewPersistence("writeStats", err).WithDomain(errors.DomainStats)
	}
	return nil
}

// Snapshot returns the stored stats.
func (t *Tracker) Snapshot(ctx context.Context) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.store.ReadStats(ctx)
	if err != nil {
		return Stats{}, errors.NewPersistence("readStats", err).WithDomain(errors.DomainStats)
	}
	if s.CategoryCount == nil {
		s.CategoryCount = make(map[string]int)
	}
	return s, nil
}

// Reset clears the stored stats.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.WriteStats(ctx, Stats{CategoryCount: map[string]int{}, UpdatedAt: t.now().Unix()}); err != nil {
		return errors.NewPersistence("writeStats", err).WithDomain(errors.DomainStats)
	}
	return nil
}
