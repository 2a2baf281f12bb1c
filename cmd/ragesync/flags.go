package main

import (
	"flag"
	"strings"
	"time"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/config"
)

// filterFlags holds the selection flags shared by the sync, search and
// prune subcommands.
type filterFlags struct {
	ConfigFile string
	OS         string
	Before     string
	After      string
	When       string
	User       string
	Term       string
	Any        bool
	Unsure     bool

	set map[string]bool
}

func newFilterFlags(fs *flag.FlagSet) *filterFlags {
	ff := &filterFlags{set: make(map[string]bool)}
	fs.StringVar(&ff.ConfigFile, "config", "", "The TOML config file to use. Located at the user config dir as ragesync.toml by default")
	fs.StringVar(&ff.ConfigFile, "c", "", "Alias for -config")
	fs.StringVar(&ff.User, "user", "", "Select logs from a specific user")
	fs.StringVar(&ff.User, "u", "", "Alias for -user")
	fs.StringVar(&ff.When, "when", "", "Select logs from a specific day (e.g. 'yesterday', 'friday', '2021-07-09')")
	fs.StringVar(&ff.When, "w", "", "Alias for -when")
	fs.StringVar(&ff.Term, "term", "", "Select logs containing a specific term (regex supported)")
	fs.StringVar(&ff.Term, "t", "", "Alias for -term")
	fs.StringVar(&ff.OS, "os", "", "Select logs from a specific OS (either 'ios', 'android', or 'desktop')")
	fs.StringVar(&ff.OS, "o", "", "Alias for -os")
	fs.StringVar(&ff.Before, "before", "", "Select logs from before a certain date")
	fs.StringVar(&ff.Before, "b", "", "Alias for -before")
	fs.StringVar(&ff.After, "after", "", "Select logs from after a certain date")
	fs.StringVar(&ff.After, "a", "", "Alias for -after")
	fs.BoolVar(&ff.Any, "any", false, "Accept entries matching any condition instead of all of them")
	fs.BoolVar(&ff.Unsure, "unsure", false, "Skip entries whose details could not be determined")
	return ff
}

// record remembers which flags were given on the command line so sync
// knows which config-file defaults to override. Call after Parse.
func (ff *filterFlags) record(fs *flag.FlagSet) {
	alias := map[string]string{
		"c": "config", "u": "user", "w": "when", "t": "term",
		"o": "os", "b": "before", "a": "after",
	}
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if canonical, ok := alias[name]; ok {
			name = canonical
		}
		ff.set[name] = true
	})
}

// filter builds a filter from the command line alone, ignoring the
// config file. Used by search and prune.
func (ff *filterFlags) filter(now time.Time) *archive.Filter {
	f := &archive.Filter{
		User:         ff.User,
		Term:         ff.Term,
		Any:          ff.Any,
		RejectUnsure: !ff.Unsure,
	}
	ff.applyDates(f, now)
	ff.applyOSes(f)
	return f
}

// syncFilter starts from the config file's sync-* defaults and lets
// command-line flags override them one by one. When sync-since-last-day
// is on and the mirror already has content, the newest mirrored day
// replaces every other date bound.
func syncFilter(cfg *config.Config, store *archive.Store, ff *filterFlags, now time.Time) *archive.Filter {
	f := &archive.Filter{
		User:         cfg.SyncUser,
		Any:          cfg.SyncAny,
		RejectUnsure: !cfg.SyncUnsure,
	}
	for _, name := range strings.Split(cfg.SyncOS, ",") {
		if name == "" {
			continue
		}
		if os, err := archive.ParseOS(name); err == nil {
			f.OSes = append(f.OSes, os)
		}
	}
	if d, ok := archive.ParseDayExpr(cfg.SyncBefore, now); ok {
		f.Before = &d
	}
	if d, ok := archive.ParseDayExpr(cfg.SyncAfter, now); ok {
		f.After = &d
	}
	if cfg.SyncWhen != "" {
		f.When = archive.ParseDayExprList(cfg.SyncWhen, now)
	}

	if cfg.SyncSinceLastDay {
		if last, ok := store.LastSyncedDay(); ok {
			f.Before = nil
			f.When = nil
			f.Term = ""
			f.After = &last
		}
	}

	if ff.set["user"] {
		f.User = ff.User
	}
	if ff.set["term"] {
		f.Term = ff.Term
	}
	if ff.set["any"] && ff.Any {
		f.Any = true
	}
	if ff.set["unsure"] && ff.Unsure {
		f.RejectUnsure = false
	}
	if ff.set["when"] || ff.set["before"] || ff.set["after"] {
		ff.applyDates(f, now)
	}
	if ff.set["os"] {
		f.OSes = nil
		ff.applyOSes(f)
	}
	return f
}

func (ff *filterFlags) applyDates(f *archive.Filter, now time.Time) {
	if ff.When != "" {
		f.When = archive.ParseDayExprList(ff.When, now)
	}
	if d, ok := archive.ParseDayExpr(ff.Before, now); ok {
		f.Before = &d
	}
	if d, ok := archive.ParseDayExpr(ff.After, now); ok {
		f.After = &d
	}
}

func (ff *filterFlags) applyOSes(f *archive.Filter) {
	if ff.OS == "" {
		return
	}
	if os, err := archive.ParseOS(ff.OS); err == nil {
		f.OSes = []archive.OS{os}
	}
}
