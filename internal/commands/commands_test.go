package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/core/config"
	"github.com/hay-kot/errq/internal/core/record"
	"github.com/hay-kot/errq/internal/data/db"
	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/internal/reporter"
)

type harness struct {
	app *errq.App
	out *bytes.Buffer
	run func(args ...string) error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.UserID = "cfg-user"

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	app := errq.NewApp(&cfg, database)
	flags := &Flags{Config: &cfg, DataDir: cfg.DataDir}

	out := &bytes.Buffer{}
	h := &harness{app: app, out: out}
	h.run = func(args ...string) error {
		out.Reset()
		root := &cli.Command{
			Name:           "errq",
			Writer:         out,
			ErrWriter:      out,
			ExitErrHandler: func(context.Context, *cli.Command, error) {},
		}
		root = NewReportCmd(flags, app).Register(root)
		root = NewImportCmd(flags, app).Register(root)
		root = NewLsCmd(flags, app).Register(root)
		root = NewStatusCmd(flags, app).Register(root)
		root = NewPurgeCmd(flags, app).Register(root)
		root = NewConfigValidateCmd(flags).Register(root)
		return root.Run(context.Background(), append([]string{"errq"}, args...))
	}
	return h
}

func (h *harness) lsJSON(t *testing.T) []map[string]any {
	t.Helper()
	require.NoError(t, h.run("ls", "--json"))

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(h.out.Bytes()))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestReport_SpoolsRecord(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("report", "--message", "disk full", "--type", "3", "--code", "20002"))
	assert.Equal(t, "queued record 1001\n", h.out.String())

	recs := h.lsJSON(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "disk full", recs[0][record.KeyMessage])
	assert.Equal(t, "cfg-user", recs[0][record.KeyUserID])
	assert.EqualValues(t, 3, recs[0][record.KeyErrorType])
	assert.EqualValues(t, 20002, recs[0][record.KeyInternalCode])
	assert.EqualValues(t, 1001, recs[0][record.KeyID])
	assert.Contains(t, recs[0][record.KeyLocation], "cmd_report.go in ")
}

func TestReport_ExplicitUserAndLocation(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("report", "-m", "x", "-u", "u-9", "--location", "app.go in main:1"))

	recs := h.lsJSON(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "u-9", recs[0][record.KeyUserID])
	assert.Equal(t, "app.go in main:1", recs[0][record.KeyLocation])
}

func TestReport_RequiresMessage(t *testing.T) {
	h := newHarness(t)

	assert.Error(t, h.run("report"))
	assert.Error(t, h.run("report", "--message", "   "))
}

func TestReport_IDsIncrease(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("report", "-m", "a"))
	require.NoError(t, h.run("report", "-m", "b"))

	recs := h.lsJSON(t)
	require.Len(t, recs, 2)
	assert.EqualValues(t, 1001, recs[0][record.KeyID])
	assert.EqualValues(t, 1002, recs[1][record.KeyID])
}

func TestImport_FromFile(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "records.json")
	body := `[
		{"recordID": 5001, "message": "kept id", "errorType": 2},
		{},
		{"message": "new id"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	require.NoError(t, h.run("import", "-f", path))
	assert.Equal(t, "queued 2 record(s)\n", h.out.String())

	recs := h.lsJSON(t)
	require.Len(t, recs, 2)
	assert.EqualValues(t, 5001, recs[0][record.KeyID])
	assert.EqualValues(t, 2, recs[0][record.KeyErrorType])
	assert.Equal(t, "new id", recs[1][record.KeyMessage])
	assert.Equal(t, record.DefaultUserID, recs[1][record.KeyUserID])
}

func TestImport_ThenReportDoesNotReuseImportedID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"recordID": 1001, "message": "imported"}]`), 0o644))

	require.NoError(t, h.run("import", "-f", path))
	require.NoError(t, h.run("report", "-m", "reported"))
	assert.Equal(t, "queued record 1002\n", h.out.String())

	rep := h.app.NewReporter(nil)
	n, err := h.app.Ingest(ctx, rep)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := rep.All()
	require.Len(t, all, 2)
	assert.Equal(t, "imported", all[0].Message)
	assert.Equal(t, "reported", all[1].Message)
}

func TestLs_Table(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.app.Records.Save(ctx, []map[string]any{
		h.app.Factory.NewAt("a.go in A:1", "u1", "persisted").ToMap(),
	}))
	require.NoError(t, h.run("report", "-m", "spooled"))

	require.NoError(t, h.run("ls"))
	out := h.out.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "queued")
	assert.Contains(t, out, "persisted")
	assert.Contains(t, out, "spooled")
}

func TestLs_Empty(t *testing.T) {
	h := newHarness(t)

	assert.Empty(t, h.lsJSON(t))
}

func TestStatus_JSON(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("report", "-m", "a"))
	require.NoError(t, h.run("status", "--format", "json"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &got))
	assert.EqualValues(t, 0, got["queued"])
	assert.EqualValues(t, 1, got["spooled"])
	assert.EqualValues(t, 1001, got["last_id"])
	assert.NotContains(t, got, "last_run")
}

func TestStatus_Text(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("status"))
	assert.Contains(t, h.out.String(), "last run: never")
}

func TestPurge(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("report", "-m", "a"))
	require.Error(t, h.run("purge"))

	require.NoError(t, h.run("purge", "--yes"))
	assert.Equal(t, "purged 1 record(s)\n", h.out.String())
	assert.Empty(t, h.lsJSON(t))
}

func TestConfigValidate(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("config", "validate"))
	assert.Contains(t, h.out.String(), "Configuration is valid")
	assert.Contains(t, h.out.String(), "warning: Delivery")

	h.app.Config.Netmon.Host = "no-port"
	err := h.run("config", "validate", "--format", "json")
	require.Error(t, err)

	var got struct {
		Valid  bool              `json:"valid"`
		Errors []validationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &got))
	assert.False(t, got.Valid)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "netmon.host", got.Errors[0].Field)
}

func TestCollectErrors(t *testing.T) {
	assert.Nil(t, collectErrors(nil))

	plain := collectErrors(errors.New("data directory cannot be empty"))
	assert.Equal(t, []validationError{{Field: "config", Message: "data directory cannot be empty"}}, plain)

	fields := collectErrors(criterio.NewFieldErrors("delivery.endpoint", errors.New("bad")))
	assert.Equal(t, []validationError{{Field: "delivery.endpoint", Message: "bad"}}, fields)
}

func TestQueueHandler(t *testing.T) {
	h := newHarness(t)
	rep := h.app.NewReporter(nil)
	rep.Report(h.app.Factory.NewAt("loc", "u", "x"))

	srv := httptest.NewServer(queueHandler(rep))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var stats reporter.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Known)
	assert.Equal(t, 1, stats.Pending)
}

func TestReport_RejectsWhitespaceUser(t *testing.T) {
	h := newHarness(t)

	err := h.run("report", "-m", "x", "-u", "two words")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whitespace")
}
