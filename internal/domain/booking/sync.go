package booking

import (
	"fmt"
	"time"
)

type ProductSyncResult struct {
	Success  bool
	Total    int
	Synced   int
	Skipped  int
	Failed   int
	Errors   []string
	Warnings []string
	Duration time.Duration
	Products []Product
	Metadata map[string]any
}

func SyncSuccess(total, synced, skipped, failed int, d time.Duration) *ProductSyncResult {
	return &ProductSyncResult{
		Success:  true,
		Total:    total,
		Synced:   synced,
		Skipped:  skipped,
		Failed:   failed,
		Duration: d,
	}
}

func SyncFailure(errs ...string) *ProductSyncResult {
	return &ProductSyncResult{Success: false, Errors: errs}
}

// SuccessRate is synced/total as a percentage; zero when nothing was seen.
func (r *ProductSyncResult) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Synced) / float64(r.Total) * 100
}

func (r *ProductSyncResult) Summary() string {
	if !r.Success {
		return fmt.Sprintf("Sync failed with %d error(s)", len(r.Errors))
	}
	s := fmt.Sprintf("Synced %d/%d products", r.Synced, r.Total)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", skipped %d", r.Skipped)
	}
	if r.Failed > 0 {
		s += fmt.Sprintf(", failed %d", r.Failed)
	}
	if secs := int(r.Duration.Seconds()); secs > 0 {
		s += fmt.Sprintf(" in %ds", secs)
	}
	return s
}
