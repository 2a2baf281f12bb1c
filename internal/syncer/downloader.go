package syncer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
	"github.com/ragelog/ragesync/internal/progress"
)

// Downloader fetches file bodies over the authenticated channel and
// writes them into the mirror. It creates no directories: every task's
// entry directory must already exist.
type Downloader struct {
	cfg     *config.Config
	client  *httpclient.Client
	source  *archive.Source
	store   *archive.Store
	tracker *progress.Tracker
	logger  zerolog.Logger
}

// NewDownloader creates a downloader sharing the engine's collaborators.
func NewDownloader(cfg *config.Config, client *httpclient.Client, source *archive.Source, tracker *progress.Tracker, logger zerolog.Logger) *Downloader {
	return &Downloader{
		cfg:     cfg,
		client:  client,
		source:  source,
		store:   source.Store(),
		tracker: tracker,
		logger:  logger.With().Str("component", "Downloader").Logger(),
	}
}

// Download fetches every task under the configured concurrency cap.
// Per-task failures (fetch or write) are isolated: they are logged,
// collected, and reported together as a *DownloadError carrying exactly
// the failed subset. A nil return means every task succeeded or the
// list was empty.
func (d *Downloader) Download(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	d.tracker.Reset("Downloaded:")
	d.tracker.AddToTotal(len(tasks))

	failures := make(chan Task)
	sem := make(chan struct{}, d.cfg.Threads)

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			d.tracker.AddOneStarted()
			defer d.tracker.FinishedOne()

			if err := d.downloadOne(ctx, task); err != nil {
				failures <- task
			}
		}(task)
	}

	go func() {
		wg.Wait()
		close(failures)
	}()

	// The coordinator is the only reader, and it drains after all
	// workers are done sending.
	var failed []Task
	for task := range failures {
		failed = append(failed, task)
	}

	if len(failed) > 0 {
		d.logger.Warn().Int("failed", len(failed)).Int("total", len(tasks)).Msg("Some downloads failed")
		return &DownloadError{Tasks: failed}
	}
	return nil
}

func (d *Downloader) downloadOne(ctx context.Context, task Task) error {
	if task.CacheOnly {
		d.tracker.Logf("Caching details of \x1b[32;1m%s/%s\x1b[0m", task.Day, task.Time)
	} else {
		d.tracker.Logf("Downloading file \x1b[32;1m%s\x1b[0m", task.Subdir())
	}

	body, err := d.client.FetchOK(ctx, d.source.FileURL(task.Day, task.Time, task.Name))
	if err != nil {
		d.tracker.Errorf("Failed to download file %s: %v", task.Subdir(), err)
		return err
	}

	if err := d.store.WriteFile(task.Day, task.Time, task.Name, body); err != nil {
		d.tracker.Errorf("Couldn't write file %s: %v", task.Subdir(), err)
		return err
	}

	d.tracker.Logf("✅ Saved file \x1b[32;1m%s\x1b[0m", task.Subdir())
	return nil
}
