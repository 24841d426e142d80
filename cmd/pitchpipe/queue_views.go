package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"pitchpipe/internal/queue"
)

func buildStageStatusRows(stats map[queue.Stage]map[queue.Status]int) [][]string {
	total := 0
	for _, counts := range stats {
		for _, n := range counts {
			total += n
		}
	}
	if total == 0 {
		return nil
	}

	rows := make([][]string, 0, len(stats))
	for _, stg := range queue.Stages() {
		counts := stats[stg]
		rows = append(rows, []string{
			string(stg),
			strconv.Itoa(counts[queue.StatusPending]),
			strconv.Itoa(counts[queue.StatusClaimed]),
			strconv.Itoa(counts[queue.StatusCompleted]),
			strconv.Itoa(counts[queue.StatusFailed]),
		})
	}
	return rows
}

func buildQueueListRows(items []*queue.Item, now time.Time) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.CampaignID,
			truncateTitle(item.MediaTitle, 40),
			itemStageLabel(item),
			itemSizeLabel(item),
			itemClaimAge(item, now),
		})
	}
	return rows
}

func itemStageLabel(item *queue.Item) string {
	stg, status, ok := item.CurrentStage()
	if !ok {
		return "done"
	}
	return fmt.Sprintf("%s/%s", stg, status)
}

func itemSizeLabel(item *queue.Item) string {
	if item.DeclaredSizeBytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(item.DeclaredSizeBytes))
}

// itemClaimAge shows how long the active claim has been held, if any.
func itemClaimAge(item *queue.Item, now time.Time) string {
	for _, stg := range queue.Stages() {
		st := item.State(stg)
		if st.Status == queue.StatusClaimed && st.Claim != nil {
			return humanizeDuration(st.Claim.Age(now))
		}
	}
	return "-"
}

func humanizeDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

func truncateTitle(title string, max int) string {
	if max <= 3 || len(title) <= max {
		return title
	}
	return title[:max-3] + "..."
}
