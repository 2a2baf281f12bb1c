package syncer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragelog/ragesync/internal/archive"
	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
	"github.com/ragelog/ragesync/internal/progress"
)

// unwritableFs fails every open-for-write of one file name, standing in
// for a full disk or permission problem on a single path.
type unwritableFs struct {
	afero.Fs
	failName string
}

func (f *unwritableFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == f.failName && flag&os.O_WRONLY != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func newTestDownloader(t *testing.T, fs afero.Fs, handler http.Handler) (*Downloader, *archive.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Server: srv.URL, Threads: 4}
	client := httpclient.New(httpclient.DefaultConfig(), zerolog.Nop())
	store := archive.NewStore(fs, "/mirror")
	source := archive.NewSource(client, store, cfg, zerolog.Nop())
	tracker := progress.NewTracker("", &bytes.Buffer{})

	return NewDownloader(cfg, client, source, tracker, zerolog.Nop()), store
}

func TestDownloadEmptyTaskList(t *testing.T) {
	d, _ := newTestDownloader(t, afero.NewMemMapFs(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty task list")
	}))
	assert.NoError(t, d.Download(context.Background(), nil))
}

func TestDownloadWritesEveryTask(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("body of " + filepath.Base(r.URL.Path)))
	})
	d, store := newTestDownloader(t, afero.NewMemMapFs(), handler)

	require.NoError(t, store.EnsureEntryDir("2024-03-05", "120000"))
	tasks := []Task{
		{Day: "2024-03-05", Time: "120000", Name: "a.log"},
		{Day: "2024-03-05", Time: "120000", Name: "b.log"},
	}

	require.NoError(t, d.Download(context.Background(), tasks))

	data, err := store.ReadFile("2024-03-05", "120000", "a.log")
	require.NoError(t, err)
	assert.Equal(t, "body of a.log", string(data))
	assert.True(t, store.HasFile("2024-03-05", "120000", "b.log"))
}

func TestDownloadCollectsExactlyTheFailedSubset(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	fs := &unwritableFs{Fs: afero.NewMemMapFs(), failName: "b.log"}
	d, store := newTestDownloader(t, fs, handler)

	require.NoError(t, store.EnsureEntryDir("2024-03-05", "120000"))
	tasks := []Task{
		{Day: "2024-03-05", Time: "120000", Name: "a.log"},
		{Day: "2024-03-05", Time: "120000", Name: "b.log"},
		{Day: "2024-03-05", Time: "120000", Name: "c.log"},
	}

	err := d.Download(context.Background(), tasks)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Len(t, dlErr.Tasks, 1)
	assert.Equal(t, "b.log", dlErr.Tasks[0].Name)

	assert.True(t, store.HasFile("2024-03-05", "120000", "a.log"), "siblings of a failed task still land")
	assert.True(t, store.HasFile("2024-03-05", "120000", "c.log"))
}

func TestDownloadFetchFailureIsCollected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "gone.log" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	d, store := newTestDownloader(t, afero.NewMemMapFs(), handler)

	require.NoError(t, store.EnsureEntryDir("2024-03-05", "120000"))
	tasks := []Task{
		{Day: "2024-03-05", Time: "120000", Name: "gone.log"},
		{Day: "2024-03-05", Time: "120000", Name: "fine.log"},
	}

	err := d.Download(context.Background(), tasks)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Len(t, dlErr.Tasks, 1)
	assert.Equal(t, "gone.log", dlErr.Tasks[0].Name)
}

func TestTaskSubdir(t *testing.T) {
	task := Task{Day: "2024-03-05", Time: "120000", Name: "a.log"}
	assert.Equal(t, "2024-03-05/120000/a.log", task.Subdir())
}
