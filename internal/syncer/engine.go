// Package syncer implements the filtered synchronization engine: it
// walks the remote day/time hierarchy, decides per time-slot whether its
// files are wanted, and downloads the resulting set under bounded
// concurrency with classified failures.
package syncer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
	"github.com/ragelog/ragesync/internal/listing"
	"github.com/ragelog/ragesync/internal/progress"
)

// Engine orchestrates a sync in three strictly sequential phases:
// discover the (day, time) pairs, decide which entries to pull and
// collect their download tasks, then download. Within each phase the
// work items run under one bounded-concurrency wave capped at the
// configured thread count, with results fanned into a channel the
// coordinator drains after every worker has finished.
type Engine struct {
	cfg        *config.Config
	client     *httpclient.Client
	source     *archive.Source
	store      *archive.Store
	filter     *archive.Filter
	tracker    *progress.Tracker
	downloader *Downloader
	logger     zerolog.Logger
}

// NewEngine wires an engine and its downloader.
func NewEngine(cfg *config.Config, client *httpclient.Client, source *archive.Source, filter *archive.Filter, tracker *progress.Tracker, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		client:     client,
		source:     source,
		store:      source.Store(),
		filter:     filter,
		tracker:    tracker,
		downloader: NewDownloader(cfg, client, source, tracker, logger),
		logger:     logger.With().Str("component", "SyncEngine").Logger(),
	}
}

// Downloader exposes the engine's downloader so the caller can retry
// just a failed subset.
func (e *Engine) Downloader() *Downloader { return e.downloader }

// pair is one discovered (day, time) unit handed from phase 1 to phase 2.
type pair struct {
	day  string
	time string
}

// Sync runs the full discover, decide, download sequence. It returns
// nil when everything synced, *ListingError when any listing or
// metadata fetch failed (retry the whole sync), *DownloadError when
// only individual files failed (retry just those), or a filter-input
// error verbatim.
func (e *Engine) Sync(ctx context.Context) error {
	if e.store.IsEmpty() {
		e.tracker.Logf("\x1b[33;1mWARNING:\x1b[0m It appears you are syncing for the first time. This may take a while.")
	}

	days, err := e.fetchDays(ctx)
	if err != nil {
		return err
	}

	e.logger.Debug().Int("days", len(days)).Msg("Days to check after pruning")

	pairs, discoverOK := e.discoverTimes(ctx, days)
	tasks, decideOK, filterErr := e.decide(ctx, pairs)

	if filterErr != nil {
		return filterErr
	}
	if !discoverOK || !decideOK {
		return &ListingError{}
	}

	if len(tasks) == 0 {
		e.tracker.Logf("✅ You're already all synced up!")
		return nil
	}

	e.tracker.Logf("Starting file downloads...")
	return e.downloader.Download(ctx, tasks)
}

// fetchDays retrieves the top-level day listing once and prunes the
// days the date predicates already reject, before any per-day call.
func (e *Engine) fetchDays(ctx context.Context) ([]string, error) {
	body, err := e.client.FetchOK(ctx, e.source.ListURL())
	if err != nil {
		e.tracker.Errorf("Couldn't get list of days from server: %v", err)
		return nil, &ListingError{}
	}

	var days []string
	for _, day := range listing.Links(string(body)) {
		if e.filter.DayOK(day) {
			days = append(days, day)
		}
	}
	return days, nil
}

// discoverTimes is phase 1: list the time-slots of every day
// concurrently. Failures are logged and flagged but never abort the
// sibling fetches; the flag is inspected only after the phase is done.
func (e *Engine) discoverTimes(ctx context.Context, days []string) ([]pair, bool) {
	e.tracker.Reset("Checking days:")
	e.tracker.AddToTotal(len(days))

	type dayResult struct {
		day    string
		times  []string
		failed bool
	}

	results := make(chan dayResult)
	sem := make(chan struct{}, e.cfg.Threads)

	var wg sync.WaitGroup
	for _, day := range days {
		wg.Add(1)
		go func(day string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			e.tracker.AddOneStarted()
			defer e.tracker.FinishedOne()

			body, err := e.client.FetchOK(ctx, e.source.ListURL(day))
			if err != nil {
				e.tracker.Errorf("Could not get list of times of day %s: %v", day, err)
				results <- dayResult{failed: true}
				return
			}
			results <- dayResult{day: day, times: listing.Links(string(body))}
		}(day)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var pairs []pair
	ok := true
	for res := range results {
		if res.failed {
			ok = false
			continue
		}
		for _, t := range res.times {
			pairs = append(pairs, pair{day: res.day, time: t})
		}
	}
	return pairs, ok
}

// decide is phase 2: evaluate the filter against every discovered pair
// and collect the download tasks. Metadata or listing fetch failures
// taint the crawl exactly like phase-1 failures; filter-input errors
// surface directly.
func (e *Engine) decide(ctx context.Context, pairs []pair) ([]Task, bool, error) {
	e.tracker.Reset("Checking entries:")
	e.tracker.AddToTotal(len(pairs))

	results := make(chan decision)
	sem := make(chan struct{}, e.cfg.Threads)

	var wg sync.WaitGroup
	for _, p := range pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			e.tracker.AddOneStarted()
			defer e.tracker.FinishedOne()

			results <- e.decideOne(ctx, p)
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var tasks []Task
	var filterErr error
	ok := true
	for res := range results {
		if res.err != nil && filterErr == nil {
			filterErr = res.err
		}
		if res.failed {
			ok = false
		}
		tasks = append(tasks, res.tasks...)
	}
	return tasks, ok, filterErr
}

// decision is one phase-2 worker's outcome.
type decision struct {
	tasks  []Task
	failed bool
	err    error
}

func (e *Engine) decideOne(ctx context.Context, p pair) (res decision) {
	entry := e.source.NewEntry(p.day, p.time)

	keep, err := e.filter.EntryOK(ctx, entry, true)
	if err != nil {
		res.err = err
		return res
	}

	// An undecidable predicate fell back to the unsure policy; the
	// decision stands for this attempt, but the crawl as a whole can no
	// longer be trusted and must be retried.
	if entry.ResolutionFailed() {
		e.tracker.Errorf("Could not resolve details of entry %s", entry.DateTime())
		res.failed = true
	}

	if keep {
		// Sync must see what the server currently has, not the local copy.
		if err := entry.RetrieveFileList(ctx, true); err != nil {
			e.tracker.Errorf("Could not retrieve list of files at %s: %v", entry.DateTime(), err)
			res.failed = true
			return res
		}

		if err := e.store.EnsureEntryDir(p.day, p.time); err != nil {
			// The write failures that follow are recorded per file in
			// phase 3, keeping directory trouble on the download-failure
			// path rather than aborting the crawl.
			e.tracker.Errorf("Could not create directory for %s: %v", entry.DateTime(), err)
		}

		for _, name := range entry.Files() {
			if !e.store.HasFile(p.day, p.time, name) {
				res.tasks = append(res.tasks, Task{Day: p.day, Time: p.time, Name: name})
			}
		}
		return res
	}

	if e.cfg.CacheDetails && !entry.DetailsCached() {
		if err := e.store.EnsureEntryDir(p.day, p.time); err != nil {
			e.tracker.Errorf("Could not create directory for %s: %v", entry.DateTime(), err)
		}
		res.tasks = append(res.tasks, Task{Day: p.day, Time: p.time, Name: archive.DetailsFile, CacheOnly: true})
	}

	return res
}
