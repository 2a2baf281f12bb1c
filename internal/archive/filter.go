package archive

import (
	"context"
	"strings"
)

// Filter is the immutable predicate configuration an entry is judged
// against. A zero field means the corresponding predicate is not
// configured. Any selects OR combination of the active predicates
// instead of AND. RejectUnsure is the result a predicate evaluates to
// when the data it needs could not be obtained.
type Filter struct {
	OSes         []OS
	Before       *DateTriple
	After        *DateTriple
	When         []DateTriple
	User         string
	Term         string
	Any          bool
	RejectUnsure bool
}

// verdict is a three-valued predicate outcome.
type verdict int

const (
	verdictFalse verdict = iota
	verdictTrue
	verdictUnknown
)

func verdictOf(b bool) verdict {
	if b {
		return verdictTrue
	}
	return verdictFalse
}

func (f *Filter) hasDateBounds() bool {
	return f.Before != nil || f.After != nil || len(f.When) > 0
}

// DayOK evaluates just the date predicates against a day name. With no
// date predicate configured every day passes; a day name that does not
// parse resolves to the unsure policy.
func (f *Filter) DayOK(day string) bool {
	if !f.hasDateBounds() {
		return true
	}

	date, ok := ParseDate(day)
	if !ok {
		return f.RejectUnsure
	}

	if f.Any {
		return f.beforeOK(date) || f.afterOK(date) || f.whenOK(date)
	}
	return f.beforeOK(date) && f.afterOK(date) && f.whenOK(date)
}

// beforeOK requires the date to be strictly before the bound.
func (f *Filter) beforeOK(date DateTriple) bool {
	return f.Before == nil || date.Less(*f.Before)
}

// afterOK requires the date to be strictly after the bound.
func (f *Filter) afterOK(date DateTriple) bool {
	return f.After == nil || f.After.Less(date)
}

func (f *Filter) whenOK(date DateTriple) bool {
	if len(f.When) == 0 {
		return true
	}
	for _, when := range f.When {
		if when == date {
			return true
		}
	}
	return false
}

func (f *Filter) osOK(os OS) bool {
	if len(f.OSes) == 0 {
		return true
	}
	for _, candidate := range f.OSes {
		if candidate == os {
			return true
		}
	}
	return false
}

func (f *Filter) userOK(user string) bool {
	return f.User == "" || strings.Contains(user, f.User)
}

// EntryOK decides whether an entry passes the configured predicates,
// resolving metadata on demand. Each predicate yields a three-valued
// outcome folded in order: under AND a false is decisive, under OR a
// true is decisive, and an unknown resolves immediately to the unsure
// policy. The content-term predicate necessarily runs last, since it
// requires the entry to be downloaded, and its result is returned
// directly; when the entry is not local it fails with
// ErrTermBeforeDownload instead.
func (f *Filter) EntryOK(ctx context.Context, entry *Entry, syncing bool) (bool, error) {
	if f.hasDateBounds() {
		if decided, result := f.fold(verdictOf(f.DayOK(entry.Day))); decided {
			return result, nil
		}
	}

	// A detail file already on disk is free information; parse it up
	// front so the OS and user predicates can use it without a fetch.
	if entry.DetailsCached() {
		if err := entry.ResolveDetails(ctx); err != nil {
			entry.src.logger.Warn().Err(err).Str("entry", entry.DateTime()).Msg("Failed to read cached details")
		}
	}

	if len(f.OSes) > 0 {
		outcome := verdictUnknown
		if os, err := entry.ResolveOS(ctx, syncing); err == nil && os != OSUnknown {
			outcome = verdictOf(f.osOK(os))
		}
		if decided, result := f.fold(outcome); decided {
			return result, nil
		}
	}

	if f.User != "" {
		outcome := verdictUnknown
		if err := entry.ResolveDetails(ctx); err == nil {
			if md, ok := entry.Metadata(); ok && md.UserID != "" {
				outcome = verdictOf(f.userOK(md.UserID))
			}
		}
		if decided, result := f.fold(outcome); decided {
			return result, nil
		}
	}

	if f.Term != "" {
		if !entry.IsDownloaded() {
			return false, ErrTermBeforeDownload
		}
		matches, err := entry.FilesContainingTerm(ctx, f.Term)
		if err != nil {
			return false, err
		}
		return len(matches) > 0, nil
	}

	// No configured predicate was decisive: under AND everything held,
	// under OR the entry survives only because nothing rejected it.
	return true, nil
}

// fold combines one predicate outcome with the AND/OR combinator.
// decided reports whether evaluation can stop with result.
func (f *Filter) fold(v verdict) (decided bool, result bool) {
	switch v {
	case verdictUnknown:
		return true, f.RejectUnsure
	case verdictTrue:
		if f.Any {
			return true, true
		}
	case verdictFalse:
		if !f.Any {
			return true, false
		}
	}
	return false, false
}
