package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/completion"
	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
	"github.com/ragelog/ragesync/internal/logger"
	"github.com/ragelog/ragesync/internal/progress"
	"github.com/ragelog/ragesync/internal/prune"
	"github.com/ragelog/ragesync/internal/search"
	"github.com/ragelog/ragesync/internal/syncer"
	"github.com/ragelog/ragesync/internal/view"
)

const usage = `ragesync mirrors a remote rageshake log archive locally.

Usage: ragesync <command> [flags]

Commands:
  sync     Download all the logs from the server that you don't currently have on your device
  desync   Clear all logs off of your device
  search   Search through the logs currently on your device
  view     View a specific entry (e.g. '2021-07-08/161300' or '2021-07-08/161300/details.log.gz')
  prune    Delete all entries that match the terms
  complete List completions for the view command

Run 'ragesync <command> -h' for the flags of one command.`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "sync":
		return runSync(ctx, args[1:])
	case "desync":
		return runDesync(args[1:])
	case "search":
		return runSearch(ctx, args[1:])
	case "view":
		return runView(ctx, args[1:])
	case "prune":
		return runPrune(ctx, args[1:])
	case "complete":
		return runComplete(args[1:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s\n", args[0], usage)
		return 2
	}
}

// app bundles the pieces every subcommand wires the same way.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	client  *httpclient.Client
	store   *archive.Store
	source  *archive.Source
	tracker *progress.Tracker
}

func newApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	hc := httpclient.DefaultConfig()
	hc.Username = cfg.Username
	hc.Password = cfg.Password
	client := httpclient.New(hc, log)

	mirror, err := cfg.MirrorDir()
	if err != nil {
		return nil, err
	}

	store := archive.NewStore(afero.NewOsFs(), mirror)
	source := archive.NewSource(client, store, cfg, log)
	tracker := progress.NewTracker("", os.Stdout)

	return &app{cfg: cfg, log: log, client: client, store: store, source: source, tracker: tracker}, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "\x1b[31;1mERROR:\x1b[0m %v\n", err)
	return 1
}

func runSync(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	ff := newFilterFlags(fs)
	threads := fs.Int("threads", 0, "How many concurrent downloads to run. Overrides the config file")
	fs.IntVar(threads, "s", 0, "Alias for -threads")
	_ = fs.Parse(args)
	ff.record(fs)

	a, err := newApp(ff.ConfigFile)
	if err != nil {
		return fail(err)
	}
	if *threads > 0 {
		a.cfg.Threads = *threads
	}

	filter := syncFilter(a.cfg, a.store, ff, time.Now())
	engine := syncer.NewEngine(a.cfg, a.client, a.source, filter, a.tracker, a.log)

	fmt.Println("Starting sync with server...")

	lim := a.cfg.RetryLimit()
	backoff := syncer.DefaultBackoff()
	retried := 0

	err = engine.Sync(ctx)
	for err != nil {
		if lim != 0 && retried >= lim {
			break
		}
		retried++

		var listErr *syncer.ListingError
		var dlErr *syncer.DownloadError
		switch {
		case errors.As(err, &listErr):
			a.tracker.Reset("Checking days:")
			fmt.Println("\nUnable to get a full list of directories; trying again...")
			if werr := backoff.Wait(ctx, retried); werr != nil {
				return fail(werr)
			}
			err = engine.Sync(ctx)
		case errors.As(err, &dlErr):
			a.tracker.Reset("Downloaded:")
			fmt.Println("\nSome files failed to download. Retrying them...")
			if werr := backoff.Wait(ctx, retried); werr != nil {
				return fail(werr)
			}
			err = engine.Downloader().Download(ctx, dlErr.Tasks)
		default:
			// Filter-input problems and cancellation never get better
			// with a retry.
			return fail(err)
		}
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

func runDesync(args []string) int {
	fs := flag.NewFlagSet("desync", flag.ExitOnError)
	configFile := fs.String("config", "", "The TOML config file to use")
	_ = fs.Parse(args)

	a, err := newApp(*configFile)
	if err != nil {
		return fail(err)
	}

	days, err := a.store.Days()
	if err != nil {
		// Nothing mirrored yet means nothing to remove.
		return 0
	}
	for _, day := range days {
		if err := a.store.RemoveDay(day); err != nil {
			a.log.Error().Err(err).Str("day", day).Msg("Unable to remove logs")
			continue
		}
		fmt.Printf("Removed logs at %s\n", day)
	}
	return 0
}

func runSearch(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	ff := newFilterFlags(fs)
	preview := fs.Bool("preview", false, "See only an overview of the selected issue, as opposed to viewing any of the logs")
	fs.BoolVar(preview, "p", false, "Alias for -preview")
	_ = fs.Parse(args)
	ff.record(fs)

	a, err := newApp(ff.ConfigFile)
	if err != nil {
		return fail(err)
	}

	filter := ff.filter(time.Now())
	fmt.Printf("%s...\n\n", searchBanner(ff))

	entries, err := search.Entries(ctx, a.source, filter, a.cfg.Threads, a.log)
	if err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		fmt.Println(":( It looks like your search terms didn't turn up any results")
		return 0
	}

	idx, ok := pickEntry(entries)
	if !ok {
		return 0
	}
	entry := entries[idx]

	if *preview {
		fmt.Println(entry.Description())
		return 0
	}

	var matches []string
	if filter.Term != "" {
		// The term already passed regex validation during the search.
		matches, _ = entry.FilesContainingTerm(ctx, filter.Term)
	}

	downloader := syncer.NewDownloader(a.cfg, a.client, a.source, a.tracker, a.log)
	viewer := view.NewViewer(a.source, downloader, os.Stdin, os.Stdout, a.log)
	if err := viewer.View(ctx, entry, "", matches); err != nil {
		return fail(err)
	}
	return 0
}

func runView(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	configFile := fs.String("config", "", "The TOML config file to use")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		return fail(errors.New("you must enter an entry to view, e.g. '2021-07-08/161300'"))
	}

	parts := strings.SplitN(strings.Trim(fs.Arg(0), "/"), "/", 3)
	if len(parts) < 2 {
		return fail(errors.New("you must enter at least a day and time to view"))
	}
	day, entryTime := parts[0], parts[1]
	var file string
	if len(parts) == 3 {
		file = parts[2]
	}

	a, err := newApp(*configFile)
	if err != nil {
		return fail(err)
	}

	entry := a.source.NewEntry(day, entryTime)
	downloader := syncer.NewDownloader(a.cfg, a.client, a.source, a.tracker, a.log)
	viewer := view.NewViewer(a.source, downloader, os.Stdin, os.Stdout, a.log)

	if err := viewer.EnsureDownloaded(ctx, entry); err != nil {
		return fail(err)
	}
	if err := viewer.View(ctx, entry, file, nil); err != nil {
		if errors.Is(err, archive.ErrViewBeforeDownload) {
			return fail(fmt.Errorf("cannot view %s: %w", entry.DateTime(), err))
		}
		return fail(err)
	}
	return 0
}

func runPrune(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	ff := newFilterFlags(fs)
	_ = fs.Parse(args)
	ff.record(fs)

	a, err := newApp(ff.ConfigFile)
	if err != nil {
		return fail(err)
	}

	if err := prune.Run(ctx, a.source, ff.filter(time.Now()), a.cfg.Threads, os.Stdout, a.log); err != nil {
		return fail(err)
	}
	return 0
}

func runComplete(args []string) int {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	install := fs.Bool("install", false, "Install completion to your $SHELL")
	fs.BoolVar(install, "i", false, "Alias for -install")
	configFile := fs.String("config", "", "The TOML config file to use")
	_ = fs.Parse(args)

	if *install {
		if err := completion.Install(os.Stdin, os.Stdout); err != nil {
			return fail(err)
		}
		return 0
	}

	a, err := newApp(*configFile)
	if err != nil {
		return fail(err)
	}
	completion.List(a.store.Fs(), a.store.Root(), fs.Arg(0), os.Stdout)
	return 0
}

func searchBanner(ff *filterFlags) string {
	banner := "Searching for logs"
	if ff.User != "" {
		banner += fmt.Sprintf(" by user \x1b[1m%s\x1b[0m", ff.User)
	}
	if ff.When != "" {
		banner += fmt.Sprintf(" from \x1b[1m%s\x1b[0m", ff.When)
	}
	if ff.Term != "" {
		banner += fmt.Sprintf(" containing the term '\x1b[1m%s\x1b[0m'", ff.Term)
	}
	return banner
}

// pickEntry shows the matches as a numbered list and reads a 1-based
// selection from stdin. ok is false when the user gives no answer.
func pickEntry(entries []*archive.Entry) (int, bool) {
	fmt.Println("Matches:")
	for i, entry := range entries {
		fmt.Printf("  %d) %s\n", i+1, entry.SelectableDescription())
	}
	fmt.Print("> ")

	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return 0, false
	}
	idx := 0
	if _, err := fmt.Sscanf(answer, "%d", &idx); err != nil || idx < 1 || idx > len(entries) {
		return 0, false
	}
	return idx - 1, true
}
