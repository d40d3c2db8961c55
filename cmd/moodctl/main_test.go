package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodcal/internal/backend"
	"moodcal/internal/config"
	"moodcal/internal/storage/memory"
)

// run executes one moodctl invocation against store.
func run(t *testing.T, store *memory.Store, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context, *globalFlags) (*config.Config, *backend.BackendResult, error) {
		return &config.Config{}, &backend.BackendResult{
			Store:   store,
			Cleanup: func() error { return nil },
		}, nil
	}
	var out bytes.Buffer
	root := newRootCommand(&out, open)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, store *memory.Store, args ...string) string {
	t.Helper()
	out, err := run(t, store, args...)
	require.NoError(t, err, out)
	return out
}

func TestPersonAndMoodCommands(t *testing.T) {
	store := memory.New()

	out := mustRun(t, store, "person", "add", "Ann", "--color", "#00ff00", "--moods", "Happy, Sad")
	assert.Contains(t, out, "Registered Ann (id 1)")

	out = mustRun(t, store, "person", "list")
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "Happy, Sad")

	mustRun(t, store, "person", "edit", "1", "--name", "Anna")
	out = mustRun(t, store, "person", "list")
	assert.Contains(t, out, "Anna")
	assert.Contains(t, out, "#00ff00")

	mustRun(t, store, "mood", "set", "2024-02-01", "1", "Happy", "--notes", "sunny")
	out = mustRun(t, store, "mood", "set", "2024-02-01", "1", "--notes", "rainy")
	assert.Contains(t, out, "2024-02-01 person 1: Happy")

	out = mustRun(t, store, "calendar", "month", "--date", "2024-02-10")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, " 1(1)")
	assert.Contains(t, out, "Anna: Happy (rainy)")
	assert.Contains(t, out, "next: 2024-03-10")

	mustRun(t, store, "mood", "clear", "2024-02-01", "1")
	_, err := run(t, store, "mood", "clear", "2024-02-01", "1")
	assert.Error(t, err)

	mustRun(t, store, "person", "rm", "1")
	_, err = run(t, store, "person", "rm", "1")
	assert.Error(t, err)
}

func TestCommandValidation(t *testing.T) {
	store := memory.New()
	mustRun(t, store, "person", "add", "Ann")

	for _, args := range [][]string{
		{"mood", "set", "01/02/2024", "1", "Happy"},
		{"mood", "set", "2024-02-01", "x", "Happy"},
		{"mood", "set", "2024-02-01", "1"},
		{"person", "add", "Bob", "--color", "blue"},
		{"cycle", "apply", "1", "--preset", "Standard 28-day"},
		{"calendar", "week", "--date", "2024-02-30"},
	} {
		_, err := run(t, store, args...)
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestCycleCommands(t *testing.T) {
	store := memory.New()
	mustRun(t, store, "person", "add", "Ann")

	out := mustRun(t, store, "cycle", "presets")
	assert.Contains(t, out, "Standard 28-day (28 days)")

	out = mustRun(t, store, "cycle", "apply", "1", "--start", "2024-01-01", "--preset", "Standard 28-day")
	assert.Contains(t, out, "Applied 28 days over a 28 day span")

	tmpl := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte(`name: custom
phases:
  - {name: Flow, start: 1, end: 5, mood: Flow}
  - {name: Ovulation, start: 14, end: 14, mood: Ovulation}
  - {name: PMT, start: 20, end: 28, mood: PMT}
`), 0644))
	out = mustRun(t, store, "cycle", "apply", "1", "--start", "2024-03-01", "--length", "28", "--repeat", "--template", tmpl)
	assert.Contains(t, out, "Applied 45 days over a 84 day span")

	out = mustRun(t, store, "stats", "moods", "--year", "2024", "--person", "1")
	assert.Contains(t, out, "Flow")
	assert.Contains(t, out, "total")

	out = mustRun(t, store, "calendar", "year", "--date", "2024-05-05")
	assert.Contains(t, out, "2024")
	assert.Contains(t, out, "previous: 2023-05-05")

	out = mustRun(t, store, "export", "csv")
	assert.True(t, strings.HasPrefix(out, "date,person_id,person,color,mood,notes\n"), out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1+28+45)

	path := filepath.Join(t.TempDir(), "out.csv")
	out = mustRun(t, store, "export", "csv", "--out", path)
	assert.Contains(t, out, "Wrote 73 rows")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestStatsNoData(t *testing.T) {
	out := mustRun(t, memory.New(), "stats", "moods")
	assert.Equal(t, "no data\n", out)
}

func TestSheetsAuthRequiresClient(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")
	_, err := run(t, memory.New(), "export", "sheets-auth", "--timeout", "1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing oauth client")
}

func TestHeatLevel(t *testing.T) {
	assert.Equal(t, byte(' '), heatLevel(0, 4))
	assert.Equal(t, byte('.'), heatLevel(1, 4))
	assert.Equal(t, byte('#'), heatLevel(4, 4))
	assert.Equal(t, byte(' '), heatLevel(3, 0))
}

func TestAwaitCodeChecksState(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String() + "/callback"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := awaitCode(ctx, ln, "expected-state")
		done <- result{code, err}
	}()

	resp, err := http.Get(base + "?state=forged&code=evil")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(base + "?code=evil")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(base + "?state=expected-state&code=good")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "good", res.code)
}
