package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voguh/unichat-sub000/internal/session"
)

type fakeBackend struct {
	records []session.Record
}

func (f *fakeBackend) Ingest(r session.Record) error {
	if r.Source == "nope" {
		return session.ErrUnknownSource
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeBackend) Stats() session.Stats {
	return session.Stats{Ingested: uint64(len(f.records)), Emitted: 3}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) IngestResult {
	t.Helper()
	var res IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	h := New(":0", &fakeBackend{}, nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStats(t *testing.T) {
	h := New(":0", &fakeBackend{}, nil).Handler()
	rec := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.EqualValues(t, 3, raw["emitted"])
	assert.Contains(t, raw, "sink")
}

func TestIngestSingleRecord(t *testing.T) {
	b := &fakeBackend{}
	h := New(":0", b, nil).Handler()

	rec := do(t, h, http.MethodPost, "/ingest", `{"source":"twitch:irc","data":"PING :tmi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, IngestResult{Accepted: 1}, decodeResult(t, rec))
	require.Len(t, b.records, 1)
	assert.Equal(t, "twitch:irc", b.records[0].Source)
	assert.JSONEq(t, `"PING :tmi"`, string(b.records[0].Data))
}

func TestIngestJSONLinesCountsFailures(t *testing.T) {
	b := &fakeBackend{}
	h := New(":0", b, nil).Handler()

	body := strings.Join([]string{
		`{"source":"twitch:irc","data":"a"}`,
		`{"source":"nope","data":{}}`,
		`{"source":"youtube:action","channel":{"id":"UC1","name":"x"},"data":{}}`,
	}, "\n")
	rec := do(t, h, http.MethodPost, "/ingest", body)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], session.ErrUnknownSource.Error())
	assert.Equal(t, "UC1", b.records[1].Channel.ID)
}

func TestIngestMalformedBody(t *testing.T) {
	b := &fakeBackend{}
	h := New(":0", b, nil).Handler()

	rec := do(t, h, http.MethodPost, "/ingest", `{"source":"twitch:irc","data":"a"} {broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeResult(t, rec)
	assert.Equal(t, 1, res.Accepted)
	assert.Len(t, b.records, 1)
}

func TestIngestRequiresPost(t *testing.T) {
	h := New(":0", &fakeBackend{}, nil).Handler()
	rec := do(t, h, http.MethodGet, "/ingest", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
