// Package stats rolls up vendor delivery failures over a date window.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// UnknownLabel groups rows whose reason or category could not be resolved.
const UnknownLabel = "Unknown"

// FailureSlice is one ranked rollup entry. Share is the percentage of all
// failures in the window, rounded to one decimal; shares sum to roughly 100
// with rounding drift.
type FailureSlice struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Aggregator answers "what is failing, and why" over a window.
type Aggregator struct {
	submissions repository.SubmissionRepository
	outcomes    repository.OutcomeRepository
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(submissions repository.SubmissionRepository, outcomes repository.OutcomeRepository) *Aggregator {
	return &Aggregator{submissions: submissions, outcomes: outcomes}
}

// FailuresByReason ranks failed outcomes in the window by vendor failure
// reason.
func (a *Aggregator) FailuresByReason(ctx context.Context, window domain.DateWindow) ([]FailureSlice, error) {
	failed, err := a.outcomes.ListFailed(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed outcomes: %w", err)
	}

	counts := make(map[string]int)
	for _, o := range failed {
		label := UnknownLabel
		if o.FailureReason != nil && *o.FailureReason != "" {
			label = *o.FailureReason
		}
		counts[label]++
	}

	return rank(counts, len(failed)), nil
}

// FailuresByType ranks failed outcomes in the window by notification
// category, resolved through the submission export: each failure is paired
// with the submission for the same phone on the same calendar day. The
// pairing uses a pre-built index so the pass stays linear in the window
// size.
func (a *Aggregator) FailuresByType(ctx context.Context, window domain.DateWindow) ([]FailureSlice, error) {
	failed, err := a.outcomes.ListFailed(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed outcomes: %w", err)
	}
	if len(failed) == 0 {
		return nil, nil
	}

	submissions, err := a.submissions.List(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	// Earliest submission per (phone, day) wins; lists arrive
	// earliest-first.
	categories := make(map[string]string, len(submissions))
	for _, s := range submissions {
		key := s.Phone + "|" + domain.DayKey(s.SubmittedAt)
		if _, seen := categories[key]; !seen {
			categories[key] = s.Category
		}
	}

	counts := make(map[string]int)
	for _, o := range failed {
		label, ok := categories[o.Phone+"|"+domain.DayKey(o.SentAt)]
		if !ok {
			label = UnknownLabel
		}
		counts[label]++
	}

	return rank(counts, len(failed)), nil
}

// rank orders rollup entries by count descending, label ascending for equal
// counts, with shares of the given total.
func rank(counts map[string]int, total int) []FailureSlice {
	if total == 0 {
		return nil
	}

	slices := make([]FailureSlice, 0, len(counts))
	for label, count := range counts {
		slices = append(slices, FailureSlice{
			Label: label,
			Count: count,
			Share: math.Round(float64(count)/float64(total)*1000) / 10,
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Count != slices[j].Count {
			return slices[i].Count > slices[j].Count
		}
		return slices[i].Label < slices[j].Label
	})
	return slices
}
