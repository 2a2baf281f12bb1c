package syncer

import "fmt"

// ListingError means a directory-listing call failed or returned
// unparseable text somewhere in the crawl: an unknown subset of entries
// may have been skipped, so the whole discover+decide sequence must be
// retried.
type ListingError struct{}

func (e *ListingError) Error() string {
	return "retrieving the list of files failed"
}

// DownloadError means the crawl succeeded but some individual file
// transfers failed. It carries exactly the failed tasks, so the caller
// can retry just that subset.
type DownloadError struct {
	Tasks []Task
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%d file(s) failed to download", len(e.Tasks))
}
