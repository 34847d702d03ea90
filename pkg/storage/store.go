// Package storage is the durable progress gateway: quest completion,
// points and aggregate stats, scoped per target sub-application. Backed by
// SQLite so progress survives restarts and concurrent writers.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	_ "modernc.org/sqlite"
)

// ProgressRecord is the per-quest completion record.
type ProgressRecord struct {
	Completed   bool
	CompletedAt time.Time
	Mode        string
	SubApp      string
}

// UserStats is the per-sub-application aggregate.
type UserStats struct {
	TotalPoints     int
	QuestsCompleted int
	QuestsAttempted int
	LastQuestDate   time.Time
}

// Gateway is the SQLite-backed store. All operations are safe for
// concurrent use and may fail when storage is unavailable; callers that
// have already completed a quest in memory must not roll that back on a
// failed save.
type Gateway struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS quest_progress (
	quest_id     TEXT PRIMARY KEY,
	completed    INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	mode         TEXT NOT NULL DEFAULT '',
	sub_app      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS user_stats (
	sub_app          TEXT PRIMARY KEY,
	total_points     INTEGER NOT NULL DEFAULT 0,
	quests_completed INTEGER NOT NULL DEFAULT 0,
	quests_attempted INTEGER NOT NULL DEFAULT 0,
	last_quest_date  TEXT
);
`

// Open opens (or creates) the store at path. ":memory:" gives an
// ephemeral store for tests.
func Open(path string) (*Gateway, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}
	// The store sees one logical writer per extension surface; a single
	// connection sidesteps SQLITE_BUSY on concurrent saves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Gateway{db: db}, nil
}

// Close releases the underlying database.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// SaveQuestProgress upserts the completion record for a quest.
func (g *Gateway) SaveQuestProgress(ctx context.Context, questID string, rec ProgressRecord) error {
	completed := 0
	if rec.Completed {
		completed = 1
	}
	var completedAt interface{}
	if !rec.CompletedAt.IsZero() {
		completedAt = rec.CompletedAt.UTC().Format(time.RFC3339)
	}
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO quest_progress (quest_id, completed, completed_at, mode, sub_app)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(quest_id) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			mode = excluded.mode,
			sub_app = excluded.sub_app`,
		questID, completed, completedAt, rec.Mode, rec.SubApp)
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", questID, err)
	}
	return nil
}

// GetCompletedQuests returns the IDs of completed quests whose sub-app
// matches the filter. An empty filter matches everything; the filter is a
// glob pattern, e.g. "payroll" or "payroll*".
func (g *Gateway) GetCompletedQuests(ctx context.Context, subAppFilter string) ([]string, error) {
	match, err := compileFilter(subAppFilter)
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx,
		`SELECT quest_id, sub_app FROM quest_progress WHERE completed = 1 ORDER BY quest_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed quests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, subApp string
		if err := rows.Scan(&id, &subApp); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if match(subApp) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// GetUserStats aggregates stats across sub-apps matching the filter.
func (g *Gateway) GetUserStats(ctx context.Context, subAppFilter string) (UserStats, error) {
	match, err := compileFilter(subAppFilter)
	if err != nil {
		return UserStats{}, err
	}
	rows, err := g.db.QueryContext(ctx,
		`SELECT sub_app, total_points, quests_completed, quests_attempted, COALESCE(last_quest_date, '') FROM user_stats`)
	if err != nil {
		return UserStats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats UserStats
	for rows.Next() {
		var subApp, lastDate string
		var points, completed, attempted int
		if err := rows.Scan(&subApp, &points, &completed, &attempted, &lastDate); err != nil {
			return UserStats{}, fmt.Errorf("failed to scan stats row: %w", err)
		}
		if !match(subApp) {
			continue
		}
		stats.TotalPoints += points
		stats.QuestsCompleted += completed
		stats.QuestsAttempted += attempted
		if lastDate != "" {
			if t, err := time.Parse(time.RFC3339, lastDate); err == nil && t.After(stats.LastQuestDate) {
				stats.LastQuestDate = t
			}
		}
	}
	return stats, rows.Err()
}

// MarkQuestAttempted bumps the attempt counter for a sub-app.
func (g *Gateway) MarkQuestAttempted(ctx context.Context, subApp string) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO user_stats (sub_app, quests_attempted, last_quest_date)
		VALUES (?, 1, ?)
		ON CONFLICT(sub_app) DO UPDATE SET
			quests_attempted = quests_attempted + 1,
			last_quest_date = excluded.last_quest_date`,
		subApp, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// IncrementQuestCompletion adds a completion and its points to a sub-app's
// aggregate.
func (g *Gateway) IncrementQuestCompletion(ctx context.Context, points int, subApp string) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO user_stats (sub_app, total_points, quests_completed, last_quest_date)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(sub_app) DO UPDATE SET
			total_points = total_points + excluded.total_points,
			quests_completed = quests_completed + 1,
			last_quest_date = excluded.last_quest_date`,
		subApp, points, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// ResetAllProgress deletes progress and stats for sub-apps matching the
// filter. An empty filter wipes everything.
func (g *Gateway) ResetAllProgress(ctx context.Context, subAppFilter string) error {
	match, err := compileFilter(subAppFilter)
	if err != nil {
		return err
	}

	// Glob filters can't run in SQL; collect matching scopes first.
	subApps := make(map[string]bool)
	for _, table := range []string{"quest_progress", "user_stats"} {
		rows, err := g.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT sub_app FROM %s`, table))
		if err != nil {
			return fmt.Errorf("failed to enumerate sub-apps: %w", err)
		}
		for rows.Next() {
			var subApp string
			if err := rows.Scan(&subApp); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan sub-app: %w", err)
			}
			if match(subApp) {
				subApps[subApp] = true
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}

	for subApp := range subApps {
		if _, err := g.db.ExecContext(ctx, `DELETE FROM quest_progress WHERE sub_app = ?`, subApp); err != nil {
			return fmt.Errorf("failed to reset progress for %s: %w", subApp, err)
		}
		if _, err := g.db.ExecContext(ctx, `DELETE FROM user_stats WHERE sub_app = ?`, subApp); err != nil {
			return fmt.Errorf("failed to reset stats for %s: %w", subApp, err)
		}
	}
	return nil
}

// compileFilter turns a sub-app glob into a predicate. Empty matches all.
func compileFilter(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid sub-app filter %q: %w", pattern, err)
	}
	return g.Match, nil
}
