// Package search applies the sync filter semantics to the local mirror,
// without touching the network for anything but detail files.
package search

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/archive"
)

// Entries walks the mirror and returns the entries matching the filter,
// sorted by day and time. Days are pruned with the date predicates
// before any per-day work; per-day workers run under the same bounded
// concurrency cap as a sync and fan their matches into a channel the
// coordinator drains. Filter-input errors (a bad regex term, a term
// filter against an undownloaded entry) are returned directly.
func Entries(ctx context.Context, source *archive.Source, filter *archive.Filter, threads int, logger zerolog.Logger) ([]*archive.Entry, error) {
	log := logger.With().Str("component", "Search").Logger()

	days, err := source.Store().Days()
	if err != nil {
		// A missing mirror is an empty result, not a failure.
		log.Debug().Err(err).Msg("No local mirror to search")
		return nil, nil
	}

	var wanted []string
	for _, day := range days {
		if filter.DayOK(day) {
			wanted = append(wanted, day)
		}
	}

	results := make(chan dayMatches)
	sem := make(chan struct{}, threads)

	var wg sync.WaitGroup
	for _, day := range wanted {
		wg.Add(1)
		go func(day string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- searchDay(ctx, source, filter, day)
		}(day)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var matches []*archive.Entry
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		matches = append(matches, res.entries...)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Day != matches[j].Day {
			return matches[i].Day < matches[j].Day
		}
		return matches[i].Time < matches[j].Time
	})
	return matches, nil
}

// dayMatches is one per-day worker's outcome.
type dayMatches struct {
	entries []*archive.Entry
	err     error
}

func searchDay(ctx context.Context, source *archive.Source, filter *archive.Filter, day string) (res dayMatches) {
	times, err := source.Store().Times(day)
	if err != nil {
		return res
	}

	for _, t := range times {
		entry := source.NewEntry(day, t)

		ok, err := filter.EntryOK(ctx, entry, false)
		if err != nil {
			res.err = err
			return res
		}
		if !ok {
			continue
		}

		// Resolve what we can so descriptions are informative; entries
		// without a readable detail file still match as "unknown".
		_ = entry.ResolveDetails(ctx)
		res.entries = append(res.entries, entry)
	}
	return res
}
