package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/state"
	"github.com/hpungsan/tabsort/internal/stats"
)

// Store persists grouping state and stats in SQLite. It implements state.Store
// and stats.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ReadGroupingState loads the whole mapping.
func (s *Store) ReadGroupingState(ctx context.Context) (state.GroupingState, error) {
	st := state.GroupingState{
		CategoryColors:   make(map[string]host.Color),
		CategoryGroupIDs: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, color, group_id FROM grouping_state`)
	if err != nil {
		return state.GroupingState{}, fmt.Errorf("query grouping_state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			color    sql.NullString
			groupID  sql.NullInt64
		)
		if err := rows.Scan(&category, &color, &groupID); err != nil {
			return state.GroupingState{}, fmt.Errorf("scan grouping_state: %w", err)
		}
		if color.Valid && color.String != "" {
			st.CategoryColors[category] = host.Color(color.String)
		}
		if groupID.Valid {
			st.CategoryGroupIDs[category] = int(groupID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return state.GroupingState{}, fmt.Errorf("iterate grouping_state: %w", err)
	}
	return st, nil
}

// WriteGroupingState replaces the whole mapping in one transaction.
func (s *Store) WriteGroupingState(ctx context.Context, st state.GroupingState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grouping_state`); err != nil {
		return fmt.Errorf("clear grouping_state: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO grouping_state (category, color, group_id, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	for _, e := range st.Entries() {
		var groupID sql.NullInt64
		if e.GroupID != nil {
			groupID = sql.NullInt64{Int64: int64(*e.GroupID), Valid: true}
		}
		color := sql.NullString{String: string(e.Color), Valid: e.Color != ""}
		if _, err := stmt.ExecContext(ctx, e.Category, color, groupID, now); err != nil {
			return fmt.Errorf("insert %q: %w", e.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadStats loads the stored stats. A fresh database reads as zero stats.
func (s *Store) ReadStats(ctx context.Context) (stats.Stats, error) {
	out := stats.Stats{CategoryCount: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT total_grouped, grouping_successes, grouping_failures,
			total_duration_ms, last_duration_ms, updated_at
		FROM stats_totals WHERE id = 1
	`).Scan(&out.TotalGrouped, &out.GroupingSuccesses, &out.GroupingFailures,
		&out.TotalDurationMs, &out.LastDurationMs, &out.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		return stats.Stats{}, fmt.Errorf("query stats_totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, count FROM stats_categories`)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("query stats_categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return stats.Stats{}, fmt.Errorf("scan stats_categories: %w", err)
		}
		out.CategoryCount[category] = count
	}
	if err := rows.Err(); err != nil {
		return stats.Stats{}, fmt.Errorf("iterate stats_categories: %w", err)
	}
	return out, nil
}

// WriteStats replaces the stored stats in one transaction.
func (s *Store) WriteStats(ctx context.Context, st stats.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stats_totals (
			id, total_grouped, grouping_successes, grouping_failures,
			total_duration_ms, last_duration_ms, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_grouped = excluded.total_grouped,
			grouping_successes = excluded.grouping_successes,
			grouping_failures = excluded.grouping_failures,
			total_duration_ms = excluded.total_duration_ms,
			last_duration_ms = excluded.last_duration_ms,
			updated_at = excluded.updated_at
	`, st.TotalGrouped, st.GroupingSuccesses, st.GroupingFailures,
		st.TotalDurationMs, st.LastDurationMs, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert stats_totals: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stats_categories`); err != nil {
		return fmt.Errorf("clear stats_categories: %w", err)
	}
	for category, count := range st.CategoryCount {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stats_categories (category, count) VALUES (?, ?)`, category, count); err != nil {
			return fmt.Errorf("insert %q: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
