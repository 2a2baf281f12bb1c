package syncer

// Task is one file to fetch from the archive and write into the mirror.
type Task struct {
	Day  string
	Time string
	Name string

	// CacheOnly marks a task that fetches only the detail file of an
	// entry the filter rejected, so a later run can decide offline. It
	// only affects how the task is labelled, never how it is downloaded.
	CacheOnly bool
}

// Subdir is the task's day/time/file path relative to the archive root.
func (t Task) Subdir() string {
	return t.Day + "/" + t.Time + "/" + t.Name
}
