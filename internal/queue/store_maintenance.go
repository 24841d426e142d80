package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stats returns per-stage counts of items grouped by stage status.
func (s *Store) Stats(ctx context.Context) (map[Stage]map[Status]int, error) {
	stats := make(map[Stage]map[Status]int, len(pipelineOrder))
	for _, stage := range pipelineOrder {
		rows, err := s.db.QueryContext(
			ctx,
			`SELECT `+stage.col("status")+`, COUNT(1) FROM work_items GROUP BY `+stage.col("status"),
		)
		if err != nil {
			return nil, fmt.Errorf("ledger stats for %s: %w", stage, err)
		}
		counts := make(map[Status]int)
		for rows.Next() {
			var status Status
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				rows.Close()
				return nil, err
			}
			counts[status] = count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		stats[stage] = counts
	}
	return stats, nil
}

// Health aggregates item-level state for diagnostic output. An item counts as
// claimed if any stage holds a claim, failed if any stage failed, completed
// once the terminal stage finishes, and pending otherwise.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	items, err := s.List(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{Total: len(items)}
	for _, item := range items {
		switch {
		case item.Failed():
			health.Failed++
		case item.Done():
			health.Completed++
		case itemClaimed(item):
			health.Claimed++
		default:
			health.Pending++
		}
	}
	return health, nil
}

func itemClaimed(item *Item) bool {
	for _, stage := range pipelineOrder {
		if item.State(stage).Status == StatusClaimed {
			return true
		}
	}
	return false
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}
	if s.db == nil {
		return health, errors.New("ledger database connection unavailable")
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'work_items'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = true

	row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM work_items")
	if err := row.Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count work items: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// RetryFailed resets every failed stage on an item back to pending with a
// fresh attempt budget. Used by the manual retry command.
func (s *Store) RetryFailed(ctx context.Context, id int64) error {
	nowStr := formatTime(time.Now())
	for _, stage := range pipelineOrder {
		err := s.execWithoutResultRetry(
			ctx,
			`UPDATE work_items SET
                `+stage.col("status")+` = ?,
                `+stage.col("attempts")+` = 0,
                `+stage.col("error")+` = '',
                `+stage.col("retry_at")+` = NULL,
                `+stage.col("claim_token")+` = NULL,
                updated_at = ?
             WHERE id = ? AND `+stage.col("status")+` = ?`,
			string(StatusPending),
			nowStr,
			id,
			string(StatusFailed),
		)
		if err != nil {
			return fmt.Errorf("retry failed %s: %w", stage, err)
		}
	}
	return nil
}

// ClearCompleted removes items whose terminal stage has completed.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	terminal := pipelineOrder[len(pipelineOrder)-1]
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM work_items WHERE `+terminal.col("status")+` = ?`,
		string(StatusCompleted),
	)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear completed: rows affected: %w", err)
	}
	return int(affected), nil
}

// ClearFailed removes items with at least one failed stage.
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	var clauses []string
	var args []any
	for _, stage := range pipelineOrder {
		clauses = append(clauses, stage.col("status")+" = ?")
		args = append(args, string(StatusFailed))
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM work_items WHERE `+strings.Join(clauses, " OR "),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear failed: rows affected: %w", err)
	}
	return int(affected), nil
}

// ClearAll removes every item from the ledger.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM work_items`)
	if err != nil {
		return 0, fmt.Errorf("clear all: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear all: rows affected: %w", err)
	}
	return int(affected), nil
}
