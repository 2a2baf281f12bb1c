package archive

import (
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// DetailsFile is the reserved file name within every entry holding the
// structured text block describing who/what/why.
const DetailsFile = "details.log.gz"

// Store is the local mirror of the archive: one directory per day, one
// subdirectory per time-slot, zero or more downloaded files in each.
// All filesystem access goes through afero so tests can run in memory.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates a store rooted at root on the given filesystem.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Root returns the mirror's root directory.
func (s *Store) Root() string { return s.root }

// Fs exposes the underlying filesystem for collaborators that walk the
// mirror directly.
func (s *Store) Fs() afero.Fs { return s.fs }

// EntryDir returns the local directory of one time-slot.
func (s *Store) EntryDir(day, time string) string {
	return filepath.Join(s.root, day, time)
}

// FilePath returns the local path of one file within an entry.
func (s *Store) FilePath(day, time, name string) string {
	return filepath.Join(s.root, day, time, name)
}

// EnsureEntryDir creates an entry's directory, parents included.
func (s *Store) EnsureEntryDir(day, time string) error {
	return s.fs.MkdirAll(s.EntryDir(day, time), 0o755)
}

// HasFile reports whether a file is already present locally.
func (s *Store) HasFile(day, time, name string) bool {
	if _, err := s.fs.Stat(s.FilePath(day, time, name)); err != nil {
		return false
	}
	return true
}

// WriteFile writes a downloaded file verbatim. It creates no
// intermediate directories: the entry directory must already exist.
func (s *Store) WriteFile(day, time, name string, data []byte) error {
	return afero.WriteFile(s.fs, s.FilePath(day, time, name), data, 0o644)
}

// ReadFile reads one downloaded file.
func (s *Store) ReadFile(day, time, name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.FilePath(day, time, name))
}

// EntryFiles lists the files currently downloaded for an entry, sorted
// by name.
func (s *Store) EntryFiles(day, time string) ([]string, error) {
	return s.childNames(s.EntryDir(day, time))
}

// EntryDownloaded reports whether an entry has any files on disk.
func (s *Store) EntryDownloaded(day, time string) bool {
	names, err := s.childNames(s.EntryDir(day, time))
	return err == nil && len(names) > 0
}

// Days lists the day directories of the mirror, sorted.
func (s *Store) Days() ([]string, error) {
	return s.childNames(s.root)
}

// Times lists the time-slot directories of one day, sorted.
func (s *Store) Times(day string) ([]string, error) {
	return s.childNames(filepath.Join(s.root, day))
}

// RemoveEntry deletes one entry's directory and everything in it.
func (s *Store) RemoveEntry(day, time string) error {
	return s.fs.RemoveAll(s.EntryDir(day, time))
}

// RemoveDay deletes one whole day directory.
func (s *Store) RemoveDay(day string) error {
	return s.fs.RemoveAll(filepath.Join(s.root, day))
}

// IsEmpty reports whether the mirror is missing or holds nothing,
// which marks a first-time sync.
func (s *Store) IsEmpty() bool {
	names, err := s.childNames(s.root)
	return err != nil || len(names) == 0
}

// LastSyncedDay returns the newest locally synced day, by triple
// comparison of day names that parse as dates.
func (s *Store) LastSyncedDay() (DateTriple, bool) {
	days, err := s.Days()
	if err != nil {
		return DateTriple{}, false
	}

	var newest DateTriple
	found := false
	for _, day := range days {
		triple, ok := ParseDate(day)
		if !ok {
			continue
		}
		if !found || newest.Less(triple) {
			newest = triple
			found = true
		}
	}
	return newest, found
}

func (s *Store) childNames(dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}
