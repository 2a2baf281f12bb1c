package archive

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
	"github.com/ragelog/ragesync/internal/listing"
)

// Source ties the remote archive and the local mirror together: it
// creates entries and resolves their metadata, memoizing parsed detail
// files for the lifetime of the run so search, prune and view do not
// re-parse the same entry twice.
type Source struct {
	client *httpclient.Client
	store  *Store
	cfg    *config.Config
	cache  *gocache.Cache
	logger zerolog.Logger
}

// NewSource creates a source over the given client and store.
func NewSource(client *httpclient.Client, store *Store, cfg *config.Config, logger zerolog.Logger) *Source {
	return &Source{
		client: client,
		store:  store,
		cfg:    cfg,
		cache:  gocache.New(gocache.NoExpiration, 0),
		logger: logger.With().Str("component", "ArchiveSource").Logger(),
	}
}

// Store returns the local mirror backing this source.
func (s *Source) Store() *Store { return s.store }

// ListURL builds a directory-listing URL; with no parts it lists days.
func (s *Source) ListURL(parts ...string) string {
	url := s.cfg.Server + "/api/listing/"
	if len(parts) > 0 {
		url += strings.Join(parts, "/") + "/"
	}
	return url
}

// FileURL builds the URL of one file's body.
func (s *Source) FileURL(day, time, name string) string {
	return fmt.Sprintf("%s/api/listing/%s/%s/%s", s.cfg.Server, day, time, name)
}

// NewEntry creates a fresh entry for one remote time-slot. Entries are
// never persisted; every run re-derives them from the listings.
func (s *Source) NewEntry(day, time string) *Entry {
	trim := func(v string) string {
		return strings.Trim(v, "/\\")
	}
	return &Entry{Day: trim(day), Time: trim(time), src: s}
}

func (s *Source) cachedMeta(day, time string) (Metadata, bool) {
	if v, ok := s.cache.Get(day + "/" + time); ok {
		return v.(Metadata), true
	}
	return Metadata{}, false
}

func (s *Source) rememberMeta(day, time string, md Metadata) {
	s.cache.SetDefault(day+"/"+time, md)
}

// metaState is the explicit resolution state of an entry's metadata, so
// call sites can never observe a partially resolved entry.
type metaState int

const (
	metaUnresolved metaState = iota
	metaResolved
	metaUnavailable
)

// Entry identifies one remote time-slot (one incident report) and
// carries its lazily resolved attributes.
type Entry struct {
	Day  string // e.g. "2021-07-21"
	Time string // e.g. "022901"

	src *Source

	files  []string // nil until listed
	state  metaState
	meta   Metadata
	osHint OS // heuristic result, less reliable than a parsed detail file
}

// DateTime returns the entry's day/time identifier.
func (e *Entry) DateTime() string {
	return e.Day + "/" + e.Time
}

// Files returns the most recently retrieved file listing, or nil.
func (e *Entry) Files() []string { return e.files }

// RetrieveFileList populates the entry's file names, sorted. When
// forceRemote is set it asks the server, which is what sync needs: the
// decision must be made against what the server currently has. Otherwise
// it lists the files already downloaded locally.
func (e *Entry) RetrieveFileList(ctx context.Context, forceRemote bool) error {
	if forceRemote {
		body, err := e.src.client.FetchOK(ctx, e.src.ListURL(e.Day, e.Time))
		if err != nil {
			return fmt.Errorf("could not list files of entry %s: %w", e.DateTime(), err)
		}
		e.files = listing.Links(string(body))
	} else if names, err := e.src.store.EntryFiles(e.Day, e.Time); err == nil {
		e.files = names
	}

	sort.Strings(e.files)
	return nil
}

// IsDownloaded reports whether any of the entry's files are on disk.
func (e *Entry) IsDownloaded() bool {
	return e.src.store.EntryDownloaded(e.Day, e.Time)
}

// DetailsCached reports whether the entry's detail file is on disk.
func (e *Entry) DetailsCached() bool {
	return e.src.store.HasFile(e.Day, e.Time, DetailsFile)
}

// Metadata returns the resolved metadata. ok is false until a detail
// file has been parsed.
func (e *Entry) Metadata() (md Metadata, ok bool) {
	return e.meta, e.state == metaResolved
}

// ResolutionFailed reports whether a remote metadata fetch failed for
// this entry, which taints the current crawl.
func (e *Entry) ResolutionFailed() bool {
	return e.state == metaUnavailable
}

// ResolveDetails parses the entry's detail file, preferring the local
// copy and fetching from the server otherwise. Once resolved the fields
// are authoritative and are never re-fetched; a failed fetch leaves the
// entry unavailable but retryable.
func (e *Entry) ResolveDetails(ctx context.Context) error {
	if e.state == metaResolved {
		return nil
	}

	if md, ok := e.src.cachedMeta(e.Day, e.Time); ok {
		e.meta = md
		e.state = metaResolved
		return nil
	}

	var text string
	if data, err := e.src.store.ReadFile(e.Day, e.Time, DetailsFile); err == nil {
		text = string(data)
	} else {
		body, err := e.src.client.FetchOK(ctx, e.src.FileURL(e.Day, e.Time, DetailsFile))
		if err != nil {
			e.state = metaUnavailable
			return fmt.Errorf("could not fetch details of entry %s: %w", e.DateTime(), err)
		}
		text = string(body)
	}

	e.meta = parseDetails(text)
	e.state = metaResolved
	e.src.rememberMeta(e.Day, e.Time, e.meta)
	return nil
}

// ResolveOS determines the entry's client OS: a local detail file is
// authoritative; otherwise, when the heuristic is enabled, the file
// listing alone may give it away (a console log means iOS); failing
// both, the remote detail file is fetched. The heuristic result is an
// approximation and callers should not trust it like a parsed detail
// file.
func (e *Entry) ResolveOS(ctx context.Context, syncing bool) (OS, error) {
	if e.DetailsCached() {
		if err := e.ResolveDetails(ctx); err == nil {
			return e.meta.OS, nil
		}
		e.src.logger.Warn().Str("entry", e.DateTime()).Msg("Could not parse local detail file")
	}

	if e.src.cfg.OSHeuristics {
		if e.files == nil {
			if err := e.RetrieveFileList(ctx, syncing); err != nil {
				e.state = metaUnavailable
				return OSUnknown, err
			}
		}
		for _, name := range e.files {
			if strings.HasPrefix(name, "console") {
				e.osHint = OSiOS
				return e.osHint, nil
			}
		}
	}

	if err := e.ResolveDetails(ctx); err != nil {
		return OSUnknown, err
	}
	return e.meta.OS, nil
}

// FilesContainingTerm returns the names of downloaded files whose
// contents match the term regex.
func (e *Entry) FilesContainingTerm(ctx context.Context, term string) ([]string, error) {
	re, err := regexp.Compile(term)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadRegexTerm, term)
	}

	if e.files == nil {
		if err := e.RetrieveFileList(ctx, false); err != nil {
			return nil, err
		}
	}

	var matches []string
	for _, name := range e.files {
		data, err := e.src.store.ReadFile(e.Day, e.Time, name)
		if err != nil {
			continue
		}
		if re.Match(data) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// Description renders the multi-line summary shown by search previews.
func (e *Entry) Description() string {
	md := e.meta
	return fmt.Sprintf(
		"\x1b[1m%s\x1b[0m: %s\n\tOS:       \x1b[32;1m%s\x1b[0m\n\tVersion:  \x1b[32;1m%s\x1b[0m\n\tLocation: %s\n",
		orUnknown(md.UserID), orUnknown(md.Reason), md.OS, orUnknown(md.Version), e.DateTime())
}

// SelectableDescription renders the one-line label used in pickers.
func (e *Entry) SelectableDescription() string {
	md := e.meta

	timeDisplay := e.Time
	if len(e.Time) == 6 {
		timeDisplay = e.Time[:2] + ":" + e.Time[2:4] + ":" + e.Time[4:]
	}

	return fmt.Sprintf("%s (%s, on %s at %s): %s",
		orUnknown(md.UserID), md.OS, e.Day, timeDisplay, orUnknown(md.Reason))
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
