package archive

import "errors"

// Filter-input errors. These are user mistakes, reported directly and
// never retried.
var (
	// ErrBadRegexTerm means the content term did not compile as a regex.
	ErrBadRegexTerm = errors.New("search term is not a valid regex")

	// ErrTermBeforeDownload means a content-term filter was applied to an
	// entry that has not been downloaded locally.
	ErrTermBeforeDownload = errors.New("cannot filter by term before downloading")

	// ErrViewBeforeDownload means an entry was viewed before being
	// downloaded.
	ErrViewBeforeDownload = errors.New("cannot view an entry before downloading it")
)
