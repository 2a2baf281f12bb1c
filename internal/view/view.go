package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/syncer"
)

// Viewer prints archived log files to a terminal, downloading the
// owning entry on demand when only part of it is mirrored.
type Viewer struct {
	source     *archive.Source
	downloader *syncer.Downloader
	in         io.Reader
	out        io.Writer
	logger     zerolog.Logger
}

func NewViewer(source *archive.Source, downloader *syncer.Downloader, in io.Reader, out io.Writer, logger zerolog.Logger) *Viewer {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Viewer{
		source:     source,
		downloader: downloader,
		in:         in,
		out:        out,
		logger:     logger.With().Str("component", "Viewer").Logger(),
	}
}

// EnsureDownloaded fetches every file of the entry that is not yet in
// the mirror. Entries already fully downloaded are left untouched.
func (v *Viewer) EnsureDownloaded(ctx context.Context, entry *archive.Entry) error {
	if entry.IsDownloaded() {
		return nil
	}

	fmt.Fprintf(v.out, "🟡 It appears not all files are downloaded for this entry; downloading all files now\n")

	if err := entry.RetrieveFileList(ctx, true); err != nil {
		return fmt.Errorf("retrieving file list for %s: %w", entry.DateTime(), err)
	}

	store := v.source.Store()
	if err := store.EnsureEntryDir(entry.Day, entry.Time); err != nil {
		return fmt.Errorf("creating entry directory: %w", err)
	}

	tasks := make([]syncer.Task, 0, len(entry.Files()))
	for _, name := range entry.Files() {
		if !store.HasFile(entry.Day, entry.Time, name) {
			tasks = append(tasks, syncer.Task{Day: entry.Day, Time: entry.Time, Name: name})
		}
	}

	if err := v.downloader.Download(ctx, tasks); err != nil {
		return err
	}

	if err := entry.ResolveDetails(ctx); err != nil {
		v.logger.Warn().Err(err).Str("entry", entry.DateTime()).Msg("Could not resolve entry details after download")
	}
	return nil
}

// View shows one file of the entry, colorized, on the output writer.
// When file is empty the user picks one from a numbered list; names in
// matches are annotated so search hits stand out.
func (v *Viewer) View(ctx context.Context, entry *archive.Entry, file string, matches []string) error {
	if !entry.IsDownloaded() {
		return archive.ErrViewBeforeDownload
	}

	if entry.Files() == nil {
		if err := entry.RetrieveFileList(ctx, false); err != nil {
			return fmt.Errorf("retrieving file list for %s: %w", entry.DateTime(), err)
		}
	}

	// The prompt shows who filed the rage shake and why; resolve the
	// details lazily when we got here without going through a search.
	if _, ok := entry.Metadata(); !ok {
		if err := entry.ResolveDetails(ctx); err != nil {
			v.logger.Warn().Err(err).Str("entry", entry.DateTime()).Msg("Could not resolve entry details")
		}
	}

	files := entry.Files()
	if len(files) == 0 {
		fmt.Fprintln(v.out, "Huh. Looks like there's no logs for this entry.")
		return nil
	}

	if file == "" {
		chosen, ok, err := v.pickFile(files, matches)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		file = chosen
	}

	text, err := v.source.Store().ReadFile(entry.Day, entry.Time, file)
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", entry.DateTime(), file, err)
	}

	fmt.Fprintf(v.out, "Loading in log at %s...\n\n", v.source.Store().FilePath(entry.Day, entry.Time, file))
	fmt.Fprintln(v.out, entry.Description())

	for _, line := range strings.Split(string(text), "\n") {
		fmt.Fprintln(v.out, colorizeLine(line))
	}
	return nil
}

// pickFile prompts with a numbered list and reads the chosen index.
// ok is false when the user gives no answer.
func (v *Viewer) pickFile(files, matches []string) (string, bool, error) {
	annotated := make(map[string]bool, len(matches))
	for _, m := range matches {
		annotated[m] = true
	}

	fmt.Fprintln(v.out, "Files:")
	for i, name := range files {
		if annotated[name] {
			fmt.Fprintf(v.out, "  %d) %s (matches)\n", i+1, name)
		} else {
			fmt.Fprintf(v.out, "  %d) %s\n", i+1, name)
		}
	}
	fmt.Fprint(v.out, "> ")

	scanner := bufio.NewScanner(v.in)
	if !scanner.Scan() {
		return "", false, nil
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		return "", false, nil
	}

	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(files) {
		return "", false, fmt.Errorf("invalid selection %q: pick a number between 1 and %d", answer, len(files))
	}
	return files[idx-1], true, nil
}
