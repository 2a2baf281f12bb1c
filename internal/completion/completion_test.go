package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMirror(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range []string{
		"/mirror/2024-03-05/120000",
		"/mirror/2024-03-05/130000",
		"/mirror/2024-03-06/090000",
	} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	require.NoError(t, afero.WriteFile(fs, "/mirror/2024-03-05/120000/details.log.gz", []byte("x"), 0o644))
	return fs
}

func listLines(t *testing.T, fs afero.Fs, input string) []string {
	t.Helper()
	var buf bytes.Buffer
	List(fs, "/mirror", input, &buf)
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestListEmptyInputListsDays(t *testing.T) {
	got := listLines(t, newMirror(t), "")
	assert.ElementsMatch(t, []string{"2024-03-05", "2024-03-06"}, got)
}

func TestListDayListsTimes(t *testing.T) {
	got := listLines(t, newMirror(t), "2024-03-05")
	assert.ElementsMatch(t, []string{"2024-03-05/120000", "2024-03-05/130000"}, got)
}

func TestListTrailingSlash(t *testing.T) {
	got := listLines(t, newMirror(t), "2024-03-05/")
	assert.ElementsMatch(t, []string{"2024-03-05/120000", "2024-03-05/130000"}, got)
}

func TestListPartialPrefixCompletes(t *testing.T) {
	got := listLines(t, newMirror(t), "2024-03-05/12")
	assert.Equal(t, []string{"2024-03-05/120000"}, got)
}

func TestListEntryListsFiles(t *testing.T) {
	got := listLines(t, newMirror(t), "2024-03-05/120000")
	assert.Equal(t, []string{"2024-03-05/120000/details.log.gz"}, got)
}

func TestListNoMatch(t *testing.T) {
	assert.Empty(t, listLines(t, newMirror(t), "2030-01-01/12"))
	assert.Empty(t, listLines(t, newMirror(t), "nothing/here/at/all"))
}
