package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"latex_doc_editor/intent"
	"latex_doc_editor/journal"
	"latex_doc_editor/keypool"
	"latex_doc_editor/layout"
	"latex_doc_editor/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const table = "\\begin{tabular}{ll}\nName & Value \\\\\n\\hline\nalpha & 1 \\\\\n\\end{tabular}"

type fixture struct {
	srv     *Server
	handler http.Handler
	journal *journal.Journal
	pool    *keypool.Pool
}

func setup(t *testing.T) fixture {
	t.Helper()
	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	pool := keypool.New([]keypool.Credential{{Name: "primary", Key: "secret"}})
	logger := zaptest.NewLogger(t)
	ed := workflow.New(nil, nil, workflow.WithRecorder(j), workflow.WithLogger(logger))
	srv, err := New(ed, WithJournal(j), WithPool(pool), WithLogger(logger), WithBudget(layout.TwoColumn.WithPositioning(true)))
	require.NoError(t, err)
	return fixture{srv: srv, handler: srv.Routes(), journal: j, pool: pool}
}

func (f fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestNew_RequiresEditor(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestEdit(t *testing.T) {
	f := setup(t)
	var resp editResp
	code := f.do(t, http.MethodPost, "/api/edit", editReq{
		Document:    "Accuracy was high.",
		Instruction: `replace 'accuracy' with 'precision'`,
	}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Precision was high.", resp.Document)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, 1, resp.Results[0].Changes)
	assert.Equal(t, intent.SourceFallback, resp.Results[0].Method)
}

func TestEdit_Batch(t *testing.T) {
	f := setup(t)
	var resp editResp
	code := f.do(t, http.MethodPost, "/api/edit", editReq{
		Document:     "Accuracy was high. Recall was low.",
		Instructions: []string{`replace 'accuracy' with 'precision'`, `remove 'Recall was low.'`},
	}, &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Precision was high.", strings.TrimSpace(resp.Document))
}

func TestEdit_BadRequests(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/edit", editReq{Document: "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/edit", "{not json", nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/resolve", resolveReq{Instruction: "  "}, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/edit", nil, nil))
}

func TestResolve(t *testing.T) {
	f := setup(t)
	var in intent.EditIntent
	code := f.do(t, http.MethodPost, "/api/resolve", resolveReq{Instruction: "highlight 'baseline' in green"}, &in)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, intent.OpFormat, in.Operation)
	assert.Equal(t, intent.Highlight, in.FormatAction)
	assert.Equal(t, "green", in.Color)
	assert.Equal(t, intent.SourceFallback, in.Source)
}

func TestFit(t *testing.T) {
	f := setup(t)

	var resp fitResp
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/fit", fitReq{Table: table}, &resp))
	require.Len(t, resp.Plans, 1)
	assert.Equal(t, layout.Fits, resp.Plans[0].Mode)
	assert.Len(t, resp.Plans[0].Widths, 2)
	assert.Contains(t, resp.Table, "p{")
	assert.True(t, resp.Budget.Positioning)

	off := false
	resp = fitResp{}
	doc := "\\begin{document}\n" + table + "\n\\end{document}"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/fit", fitReq{Document: doc, Profile: "single-column", Positioning: &off}, &resp))
	assert.Equal(t, layout.SingleColumn.Name, resp.Budget.Name)
	assert.False(t, resp.Budget.Positioning)
	assert.Len(t, resp.Plans, 1)
	assert.Contains(t, resp.Document, "p{")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/fit", fitReq{Table: table, Profile: "a3"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/fit", fitReq{}, nil))
}

func TestSessions(t *testing.T) {
	f := setup(t)

	var created sessionResp
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/sessions", sessionCreateReq{Document: "Accuracy was high."}, &created))
	require.NotEmpty(t, created.SessionID)
	assert.Empty(t, created.History)

	base := "/api/sessions/" + created.SessionID
	var edited editResp
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/edits", editReq{Instruction: `replace 'high' with 'low'`}, &edited))
	assert.Equal(t, "Accuracy was low.", edited.Document)

	var got sessionResp
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, base, nil, &got))
	assert.Equal(t, "Accuracy was low.", got.Document)
	require.Len(t, got.History, 1)
	assert.Equal(t, `replace 'high' with 'low'`, got.History[0].Instruction)

	var entries []journal.Entry
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, base+"/edits", nil, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, created.SessionID, entries[0].SessionID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/sessions/missing", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/sessions/missing/edits", editReq{Instruction: "x"}, nil))
}

func TestStats(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/sessions", sessionCreateReq{Document: "a"}, nil))
	_, err := f.journal.Record(context.Background(), journal.Entry{Action: "replace_word", Method: "ai", Success: true, Changes: 2})
	require.NoError(t, err)
	f.pool.MarkRateLimited(keypool.Credential{Name: "primary", Key: "secret"})

	var stats statsResp
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/stats", nil, &stats))
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Limited)
	require.Len(t, stats.Credentials, 1)
	assert.Equal(t, "primary", stats.Credentials[0].Name)
	assert.Equal(t, []journal.ActionStat{{Action: "replace_word", Total: 1, Succeeded: 1, Changes: 2}}, stats.Actions)
}

func TestStats_KeysNeverLeak(t *testing.T) {
	f := setup(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestRealListener(t *testing.T) {
	f := setup(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/edit", "application/json",
		strings.NewReader(`{"document":"\\section{Intro}\nHello.","instruction":"add section \"Related Work\" after Intro"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out editResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Document, `\section{Related Work}`)
	ts.CloseClientConnections()
	http.DefaultClient.CloseIdleConnections()
}
