// Package prune removes mirrored entries that match a filter.
package prune

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/search"
)

// Run deletes every downloaded entry the filter accepts and reports
// each removal. Filter-input errors abort before anything is deleted.
func Run(ctx context.Context, source *archive.Source, filter *archive.Filter, threads int, out io.Writer, logger zerolog.Logger) error {
	if out == nil {
		out = os.Stdout
	}
	log := logger.With().Str("component", "Prune").Logger()

	entries, err := search.Entries(ctx, source, filter, threads, logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Your conditions did not turn up any results :(")
		return nil
	}

	store := source.Store()
	for _, entry := range entries {
		dir := store.EntryDir(entry.Day, entry.Time)
		if err := store.RemoveEntry(entry.Day, entry.Time); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Could not remove logs")
			continue
		}
		fmt.Fprintf(out, "Deleted entry at %s\n", dir)
	}
	return nil
}
