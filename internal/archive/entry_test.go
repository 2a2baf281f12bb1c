package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragelog/ragesync/internal/config"
	"github.com/ragelog/ragesync/internal/httpclient"
)

// newTestSource wires a source against an httptest server and an
// in-memory mirror. handler may be nil when the test never goes remote.
func newTestSource(t *testing.T, handler http.Handler) (*Source, *Store, *httptest.Server) {
	t.Helper()

	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		})
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Server: srv.URL, Threads: 2, OSHeuristics: true}
	client := httpclient.New(httpclient.DefaultConfig(), zerolog.Nop())
	store := NewStore(afero.NewMemMapFs(), "/mirror")

	return NewSource(client, store, cfg, zerolog.Nop()), store, srv
}

func TestSourceURLs(t *testing.T) {
	source, _, srv := newTestSource(t, nil)

	assert.Equal(t, srv.URL+"/api/listing/", source.ListURL())
	assert.Equal(t, srv.URL+"/api/listing/2021-07-08/", source.ListURL("2021-07-08"))
	assert.Equal(t, srv.URL+"/api/listing/2021-07-08/161300/log.gz", source.FileURL("2021-07-08", "161300", "log.gz"))
}

func TestNewEntryTrimsSeparators(t *testing.T) {
	source, _, _ := newTestSource(t, nil)

	entry := source.NewEntry("/2021-07-08/", "161300/")
	assert.Equal(t, "2021-07-08", entry.Day)
	assert.Equal(t, "161300", entry.Time)
	assert.Equal(t, "2021-07-08/161300", entry.DateTime())
}

func TestRetrieveFileListLocal(t *testing.T) {
	source, store, _ := newTestSource(t, nil)

	require.NoError(t, store.EnsureEntryDir("2021-07-08", "161300"))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "b.log", []byte("x")))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "a.log", []byte("x")))

	entry := source.NewEntry("2021-07-08", "161300")
	require.NoError(t, entry.RetrieveFileList(context.Background(), false))
	assert.Equal(t, []string{"a.log", "b.log"}, entry.Files())
}

func TestRetrieveFileListRemote(t *testing.T) {
	source, _, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/listing/2021-07-08/161300/", r.URL.Path)
		_, _ = w.Write([]byte(`<html><body><a href="x">details.log.gz</a> <a href="y">console.0.log.gz/</a></body></html>`))
	}))

	entry := source.NewEntry("2021-07-08", "161300")
	require.NoError(t, entry.RetrieveFileList(context.Background(), true))
	assert.Equal(t, []string{"console.0.log.gz", "details.log.gz"}, entry.Files())
}

func TestResolveDetailsPrefersLocalFile(t *testing.T) {
	source, store, _ := newTestSource(t, nil)

	details := "crash on launch\nApplication: element-android\nuser_id: @bob:example.org\n"
	require.NoError(t, store.EnsureEntryDir("2021-07-08", "161300"))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", DetailsFile, []byte(details)))

	entry := source.NewEntry("2021-07-08", "161300")
	require.NoError(t, entry.ResolveDetails(context.Background()))

	md, ok := entry.Metadata()
	require.True(t, ok)
	assert.Equal(t, "crash on launch", md.Reason)
	assert.Equal(t, OSAndroid, md.OS)
	assert.Equal(t, "@bob:example.org", md.UserID)
}

func TestResolveDetailsFetchesRemoteOnce(t *testing.T) {
	requests := 0
	source, _, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte("remote reason\nuser_id: @carol:example.org\n"))
	}))

	entry := source.NewEntry("2021-07-08", "161300")
	require.NoError(t, entry.ResolveDetails(context.Background()))
	assert.Equal(t, 1, requests)

	// A later entry for the same slot hits the run-scoped cache, not
	// the network.
	again := source.NewEntry("2021-07-08", "161300")
	require.NoError(t, again.ResolveDetails(context.Background()))
	assert.Equal(t, 1, requests)

	md, ok := again.Metadata()
	require.True(t, ok)
	assert.Equal(t, "@carol:example.org", md.UserID)
}

func TestResolveDetailsFailureIsRetryable(t *testing.T) {
	source, _, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	entry := source.NewEntry("2021-07-08", "161300")
	err := entry.ResolveDetails(context.Background())
	require.Error(t, err)
	assert.True(t, entry.ResolutionFailed())

	_, ok := entry.Metadata()
	assert.False(t, ok)
}

func TestResolveOSConsoleHeuristic(t *testing.T) {
	source, store, _ := newTestSource(t, nil)

	// A console log is written by the iOS client only, so no detail
	// file fetch is needed.
	require.NoError(t, store.EnsureEntryDir("2021-07-08", "161300"))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "console.0.log.gz", []byte("x")))

	entry := source.NewEntry("2021-07-08", "161300")
	os, err := entry.ResolveOS(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OSiOS, os)

	_, ok := entry.Metadata()
	assert.False(t, ok, "the heuristic must not fake resolved metadata")
}

func TestResolveOSLocalDetailsBeatHeuristic(t *testing.T) {
	source, store, _ := newTestSource(t, nil)

	details := "reason\nApplication: element-android\n"
	require.NoError(t, store.EnsureEntryDir("2021-07-08", "161300"))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", DetailsFile, []byte(details)))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "console.0.log.gz", []byte("x")))

	entry := source.NewEntry("2021-07-08", "161300")
	os, err := entry.ResolveOS(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, OSAndroid, os)
}

func TestFilesContainingTerm(t *testing.T) {
	source, store, _ := newTestSource(t, nil)

	require.NoError(t, store.EnsureEntryDir("2021-07-08", "161300"))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "a.log", []byte("nothing here")))
	require.NoError(t, store.WriteFile("2021-07-08", "161300", "b.log", []byte("fatal error: panic")))

	entry := source.NewEntry("2021-07-08", "161300")
	matches, err := entry.FilesContainingTerm(context.Background(), "fatal (error|warning)")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.log"}, matches)
}

func TestFilesContainingTermBadRegex(t *testing.T) {
	source, _, _ := newTestSource(t, nil)

	entry := source.NewEntry("2021-07-08", "161300")
	_, err := entry.FilesContainingTerm(context.Background(), "(unclosed")
	assert.ErrorIs(t, err, ErrBadRegexTerm)
}
