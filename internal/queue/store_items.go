package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var itemColumns = buildItemColumns()

func buildItemColumns() string {
	cols := []string{
		"id", "campaign_id", "media_id", "media_title", "audio_url",
		"declared_size_bytes", "enrichment_json", "transcript_path",
		"description_text", "vetting_score", "vetting_json", "match_notes",
		"pitch_draft",
	}
	for _, stage := range pipelineOrder {
		cols = append(cols,
			stage.col("status"),
			stage.col("claim_token"),
			stage.col("attempts"),
			stage.col("error"),
			stage.col("retry_at"),
		)
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		campaignID      string
		mediaID         string
		mediaTitle      sql.NullString
		audioURL        sql.NullString
		declaredSize    sql.NullInt64
		enrichmentJSON  sql.NullString
		transcriptPath  sql.NullString
		descriptionText sql.NullString
		vettingScore    sql.NullFloat64
		vettingJSON     sql.NullString
		matchNotes      sql.NullString
		pitchDraft      sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)
	type stageRow struct {
		status    sql.NullString
		token     sql.NullString
		attempts  sql.NullInt64
		lastError sql.NullString
		retryRaw  sql.NullString
	}
	stageRows := make([]stageRow, len(pipelineOrder))

	dest := []any{
		&id, &campaignID, &mediaID, &mediaTitle, &audioURL,
		&declaredSize, &enrichmentJSON, &transcriptPath,
		&descriptionText, &vettingScore, &vettingJSON, &matchNotes,
		&pitchDraft,
	}
	for i := range stageRows {
		dest = append(dest,
			&stageRows[i].status,
			&stageRows[i].token,
			&stageRows[i].attempts,
			&stageRows[i].lastError,
			&stageRows[i].retryRaw,
		)
	}
	dest = append(dest, &createdRaw, &updatedRaw)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		CampaignID:        campaignID,
		MediaID:           mediaID,
		MediaTitle:        mediaTitle.String,
		AudioURL:          audioURL.String,
		DeclaredSizeBytes: declaredSize.Int64,
		EnrichmentJSON:    enrichmentJSON.String,
		TranscriptPath:    transcriptPath.String,
		DescriptionText:   descriptionText.String,
		VettingScore:      vettingScore.Float64,
		VettingJSON:       vettingJSON.String,
		MatchNotes:        matchNotes.String,
		PitchDraft:        pitchDraft.String,
		States:            make(map[Stage]*StageState, len(pipelineOrder)),
	}
	for i, stage := range pipelineOrder {
		row := stageRows[i]
		st := &StageState{
			Status:    Status(row.status.String),
			Attempts:  int(row.attempts.Int64),
			LastError: row.lastError.String,
		}
		if st.Status == "" {
			st.Status = StatusPending
		}
		if row.token.Valid {
			token, err := decodeClaimToken(row.token.String)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage, err)
			}
			st.Claim = token
		}
		if row.retryRaw.Valid && row.retryRaw.String != "" {
			retryAt, err := parseTimeString(row.retryRaw.String)
			if err != nil {
				return nil, fmt.Errorf("stage %s: parse retry_at: %w", stage, err)
			}
			st.RetryAt = &retryAt
		}
		item.States[stage] = st
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(claimTimeFormat)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(claimTimeFormat, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// NewDiscovery inserts a freshly discovered campaign/media pairing with every
// stage pending. Re-discovering an existing pairing is a no-op that returns
// the stored item, so intake sweeps stay idempotent.
func (s *Store) NewDiscovery(ctx context.Context, campaignID, mediaID, mediaTitle, audioURL string, declaredSizeBytes int64) (*Item, error) {
	if strings.TrimSpace(campaignID) == "" || strings.TrimSpace(mediaID) == "" {
		return nil, errors.New("campaign id and media id are required")
	}
	timestamp := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO work_items (
            campaign_id, media_id, media_title, audio_url,
            declared_size_bytes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		campaignID,
		mediaID,
		mediaTitle,
		audioURL,
		declaredSizeBytes,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return s.FindByPairing(ctx, campaignID, mediaID)
		}
		return nil, fmt.Errorf("insert discovery: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a work item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByPairing returns the item for a campaign/media pairing, nil when absent.
func (s *Store) FindByPairing(ctx context.Context, campaignID, mediaID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE campaign_id = ? AND media_id = ? LIMIT 1`,
		campaignID,
		mediaID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by pairing: %w", err)
	}
	return item, nil
}

// List returns all work items ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// ItemsByStageStatus returns items whose given stage holds the given status.
func (s *Store) ItemsByStageStatus(ctx context.Context, stage Stage, status Status) ([]*Item, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", string(stage))
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE `+stage.col("status")+` = ? ORDER BY created_at, id`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("items by stage status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Update persists an item's business fields. Stage claim lifecycle columns
// are owned by the claim operations and never written here.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()

	err := s.execWithoutResultRetry(
		ctx,
		`UPDATE work_items SET
            media_title = ?, audio_url = ?, declared_size_bytes = ?,
            enrichment_json = ?, transcript_path = ?, description_text = ?,
            vetting_score = ?, vetting_json = ?, match_notes = ?,
            pitch_draft = ?, updated_at = ?
         WHERE id = ?`,
		item.MediaTitle,
		item.AudioURL,
		item.DeclaredSizeBytes,
		item.EnrichmentJSON,
		item.TranscriptPath,
		item.DescriptionText,
		item.VettingScore,
		item.VettingJSON,
		item.MatchNotes,
		item.PitchDraft,
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Remove deletes a work item.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM work_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}
