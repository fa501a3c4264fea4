package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada-remote/internal/api"
	"github.com/idilsaglam/tada-remote/internal/config"
	"github.com/idilsaglam/tada-remote/internal/devserver"
	"github.com/idilsaglam/tada-remote/internal/model"
	"github.com/idilsaglam/tada-remote/internal/ui"
)

func TestMain(m *testing.M) {
	ui.SetTheme("mono")
	os.Exit(m.Run())
}

type harness struct {
	t      *testing.T
	url    string
	api    *api.Client
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := devserver.New(devserver.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	ac, err := api.New(ts.URL)
	require.NoError(t, err)
	return &harness{t: t, url: ts.URL, api: ac}
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return Run(context.Background(), args, Options{
		Config: &config.Config{APIURL: h.url},
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})
}

func (h *harness) remote() []model.Todo {
	h.t.Helper()
	items, err := h.api.List(context.Background())
	require.NoError(h.t, err)
	return items
}

func TestHelpAndUsage(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 0, h.run("help"))
	assert.Contains(t, h.stdout.String(), "Subcommands:")

	assert.Equal(t, 2, Run(context.Background(), nil, Options{Stdout: &h.stdout, Stderr: &h.stderr}))
	assert.Equal(t, 2, h.run("frobnicate"))
	assert.Contains(t, h.stderr.String(), "unknown subcommand: frobnicate")

	assert.Equal(t, 2, h.run("add"))
	assert.Equal(t, 2, h.run("done"))
	assert.Equal(t, 2, h.run("rm", "1", "2"))
	assert.Equal(t, 2, h.run("edit", "1"))
	assert.Equal(t, 2, h.run("show"))
}

func TestMissingAPIURL(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Run(context.Background(), []string{"ls"}, Options{Config: &config.Config{}, Stdout: &out, Stderr: &errOut})
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "api url not configured")
	assert.Contains(t, errOut.String(), "TADA_API_URL")
}

func TestAddAndList(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "-d", "2L", "Buy", "milk"))
	assert.Contains(t, h.stdout.String(), "ok added ")

	items := h.remote()
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)
	assert.Equal(t, "2L", items[0].Description)

	require.Equal(t, 0, h.run("ls"))
	out := h.stdout.String()
	assert.Contains(t, out, "Total 1")
	assert.Contains(t, out, " 1. [ ] Buy milk - 2L  ("+items[0].TodoID+")")
}

func TestAddBlankTitle(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 2, h.run("add", "   "))
	assert.Empty(t, h.remote())
}

func TestDoneToggles(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "a"))
	require.Equal(t, 0, h.run("add", "b"))

	require.Equal(t, 0, h.run("done", "2"))
	assert.Contains(t, h.stdout.String(), "marked done")
	items := h.remote()
	assert.False(t, items[0].Completed)
	assert.True(t, items[1].Completed)

	require.Equal(t, 0, h.run("done", items[1].TodoID))
	assert.Contains(t, h.stdout.String(), "marked pending")
	assert.False(t, h.remote()[1].Completed)
}

func TestIndexOutOfRange(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "a"))
	assert.Equal(t, 2, h.run("done", "5"))
	assert.Contains(t, h.stderr.String(), "index out of range: have 1, got 5")
	assert.Equal(t, 2, h.run("rm", "no-such-id"))
	assert.Contains(t, h.stderr.String(), `no todo with id "no-such-id"`)
}

func TestEdit(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "-d", "keep", "a"))
	require.Equal(t, 0, h.run("add", "b"))

	require.Equal(t, 0, h.run("edit", "1", "-title", "A"))
	items := h.remote()
	assert.Equal(t, "A", items[0].Title)
	assert.Equal(t, "keep", items[0].Description, "unset fields come from the current record")
	assert.Equal(t, "b", items[1].Title)

	require.Equal(t, 0, h.run("edit", "1", "-d", ""))
	assert.Empty(t, h.remote()[0].Description)

	assert.Equal(t, 2, h.run("edit", "1", "-title", "  "))
	assert.Equal(t, "A", h.remote()[0].Title)
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "a"))
	require.Equal(t, 0, h.run("add", "b"))
	require.Equal(t, 0, h.run("rm", "1"))
	items := h.remote()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Title)
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "-d", "details", "a"))
	id := h.remote()[0].TodoID

	require.Equal(t, 0, h.run("show", id))
	assert.Contains(t, h.stdout.String(), "details")
	assert.Contains(t, h.stdout.String(), "status:  pending")

	require.Equal(t, 0, h.run("show", "1"))
	assert.Contains(t, h.stdout.String(), "id:      "+id)

	assert.Equal(t, 2, h.run("show", "missing"))
}

func TestGroupedList(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("add", "a"))
	require.Equal(t, 0, h.run("add", "b"))
	require.Equal(t, 0, h.run("done", "1"))

	h.stdout.Reset()
	code := Run(context.Background(), []string{"ls", "-plain"}, Options{
		Config: &config.Config{APIURL: h.url, Group: true},
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})
	require.Equal(t, 0, code)
	out := h.stdout.String()
	pending := strings.Index(out, "Pending")
	done := strings.Index(out, "Done")
	require.True(t, pending >= 0 && done > pending, out)
	// full-list indexes survive grouping
	assert.Contains(t, out[pending:done], " 2. [ ] b")
	assert.Contains(t, out[done:], " 1. [x] a")
}

func TestEmptyList(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("ls", "-plain"))
	assert.Contains(t, h.stdout.String(), "nothing to do")
}

func TestServerDown(t *testing.T) {
	h := newHarness(t)
	h.url = "http://127.0.0.1:1"
	assert.Equal(t, 1, h.run("ls"))
	assert.Contains(t, h.stderr.String(), "load:")
	assert.Equal(t, 1, h.run("add", "x"))
}
