package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ClaimBatch atomically claims up to limit eligible items for one stage on
// behalf of claimantID and returns them in their post-claim state. An item is
// eligible when the stage is pending (or its claim is older than staleTTL),
// its retry backoff has elapsed, and the predecessor stage has completed. The
// whole batch is a single UPDATE so two claimants can never take the same
// item: SQLite serializes the writes and the loser's predicate no longer
// matches.
func (s *Store) ClaimBatch(ctx context.Context, stage Stage, claimantID string, limit int, staleTTL time.Duration) ([]*Item, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", string(stage))
	}
	if claimantID == "" {
		return nil, errors.New("claimant id is required")
	}
	if limit <= 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	token, err := encodeClaimToken(ClaimToken{ClaimantID: claimantID, AcquiredAt: now})
	if err != nil {
		return nil, err
	}
	nowStr := formatTime(now)
	staleCutoff := formatTime(now.Add(-staleTTL))

	statusCol := stage.col("status")
	tokenCol := stage.col("claim_token")
	retryCol := stage.col("retry_at")

	eligible := `(` + statusCol + ` = ? OR (` + statusCol + ` = ? AND json_extract(` + tokenCol + `, '$.acquired_at') < ?))` +
		` AND (` + retryCol + ` IS NULL OR ` + retryCol + ` <= ?)`
	args := []any{
		string(StatusClaimed), token, nowStr,
		string(StatusPending), string(StatusClaimed), staleCutoff, nowStr,
	}
	if prev, ok := stage.Predecessor(); ok {
		eligible += ` AND ` + prev.col("status") + ` = ?`
		args = append(args, string(StatusCompleted))
	}
	args = append(args, limit)

	query := `UPDATE work_items SET ` + statusCol + ` = ?, ` + tokenCol + ` = ?, updated_at = ?
        WHERE id IN (
            SELECT id FROM work_items
            WHERE ` + eligible + `
            ORDER BY created_at, id
            LIMIT ?
        )
        RETURNING ` + itemColumns

	ctx = ensureContext(ctx)
	var items []*Item
	claimErr := retryOnBusy(ctx, func() error {
		items = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				return fmt.Errorf("scan claimed item: %w", err)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if claimErr != nil {
		return nil, fmt.Errorf("claim batch for %s: %w", stage, claimErr)
	}
	return items, nil
}

// Release finishes a claim according to the outcome. The write is guarded by
// both claim state and claimant identity, so a release arriving after the
// claim was reclaimed and re-issued elsewhere is a harmless no-op; the bool
// reports whether the caller still owned the claim.
//
//   - OutcomeCompleted marks the stage done and clears the error.
//   - OutcomeRetry returns the item to pending, burns one attempt, records
//     the error, and arms the retry backoff.
//   - OutcomeDeferred returns the item to pending untouched: resource
//     shortage is not the item's fault, so the attempt budget survives.
//   - OutcomeFailed parks the item in failed with the error recorded.
func (s *Store) Release(ctx context.Context, stage Stage, itemID int64, claimantID string, outcome Outcome, stageErr string, retryAt *time.Time) (bool, error) {
	if !stage.Valid() {
		return false, fmt.Errorf("unknown stage %q", string(stage))
	}
	nextStatus, err := outcome.status()
	if err != nil {
		return false, err
	}

	statusCol := stage.col("status")
	tokenCol := stage.col("claim_token")
	nowStr := formatTime(time.Now())

	set := statusCol + ` = ?, ` + tokenCol + ` = NULL, updated_at = ?`
	args := []any{string(nextStatus), nowStr}
	switch outcome {
	case OutcomeCompleted:
		set += `, ` + stage.col("error") + ` = '', ` + stage.col("retry_at") + ` = NULL`
	case OutcomeRetry:
		set += `, ` + stage.col("attempts") + ` = ` + stage.col("attempts") + ` + 1`
		set += `, ` + stage.col("error") + ` = ?, ` + stage.col("retry_at") + ` = ?`
		args = append(args, stageErr, nullableTime(retryAt))
	case OutcomeFailed:
		set += `, ` + stage.col("attempts") + ` = ` + stage.col("attempts") + ` + 1`
		set += `, ` + stage.col("error") + ` = ?, ` + stage.col("retry_at") + ` = NULL`
		args = append(args, stageErr)
	case OutcomeDeferred:
		// Attempts, error, and backoff all stay as they were.
	}
	args = append(args, itemID, string(StatusClaimed), claimantID)

	query := `UPDATE work_items SET ` + set + `
        WHERE id = ? AND ` + statusCol + ` = ?
          AND json_extract(` + tokenCol + `, '$.claimant_id') = ?`

	res, execErr := s.execWithRetry(ctx, query, args...)
	if execErr != nil {
		return false, fmt.Errorf("release %s claim: %w", stage, execErr)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release %s claim: rows affected: %w", stage, err)
	}
	return affected > 0, nil
}

// ReclaimStale flips claims older than ttl back to pending across every
// stage, leaving attempts and recorded errors untouched so crashes don't
// consume retry budget. Returns the number of reclaimed claims.
func (s *Store) ReclaimStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := formatTime(time.Now().Add(-ttl))
	nowStr := formatTime(time.Now())

	total := 0
	for _, stage := range pipelineOrder {
		statusCol := stage.col("status")
		tokenCol := stage.col("claim_token")
		res, err := s.execWithRetry(
			ctx,
			`UPDATE work_items SET `+statusCol+` = ?, `+tokenCol+` = NULL, updated_at = ?
             WHERE `+statusCol+` = ? AND json_extract(`+tokenCol+`, '$.acquired_at') < ?`,
			string(StatusPending),
			nowStr,
			string(StatusClaimed),
			cutoff,
		)
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s claims: %w", stage, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s claims: rows affected: %w", stage, err)
		}
		total += int(affected)
	}
	return total, nil
}

// ReleaseAllFor returns every claim held by claimantID to pending. Called on
// startup so a restarted process hands back claims from its previous life
// immediately instead of waiting out the TTL.
func (s *Store) ReleaseAllFor(ctx context.Context, claimantID string) (int, error) {
	if claimantID == "" {
		return 0, errors.New("claimant id is required")
	}
	nowStr := formatTime(time.Now())

	total := 0
	for _, stage := range pipelineOrder {
		statusCol := stage.col("status")
		tokenCol := stage.col("claim_token")
		res, err := s.execWithRetry(
			ctx,
			`UPDATE work_items SET `+statusCol+` = ?, `+tokenCol+` = NULL, updated_at = ?
             WHERE `+statusCol+` = ? AND json_extract(`+tokenCol+`, '$.claimant_id') = ?`,
			string(StatusPending),
			nowStr,
			string(StatusClaimed),
			claimantID,
		)
		if err != nil {
			return total, fmt.Errorf("release %s claims for %s: %w", stage, claimantID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("release %s claims for %s: rows affected: %w", stage, claimantID, err)
		}
		total += int(affected)
	}
	return total, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}
