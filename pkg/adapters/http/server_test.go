package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/sequence"
	seqhttp "github.com/aretw0/sequence/pkg/adapters/http"
	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/aretw0/sequence/pkg/observability"
	"github.com/aretw0/sequence/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	runner  *runner.Runner
	gate    *deferred.Deferred
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	r := runner.NewRunner()
	r.Register("double", sequence.New(
		sequence.WithName("double"),
		sequence.WithLifecycleHooks(metrics.Hooks()),
	).Add(func(c *sequence.Control, arg any) (any, error) {
		return arg.(float64) * 2, nil
	}))
	r.Register("failing", sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		return nil, errors.New("boom")
	}))

	gate := deferred.New()
	r.Register("gated", sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		return gate, nil
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		handler: seqhttp.NewHandler(r, seqhttp.WithGatherer(reg), seqhttp.WithLogger(logger)),
		runner:  r,
		gate:    gate,
	}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) domain.RunRecord {
	t.Helper()
	var rec domain.RunRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	return rec
}

func TestListPipelines(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/pipelines", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list seqhttp.PipelineList
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, []string{"double", "failing", "gated"}, list.Pipelines)
}

func TestStartRun_Wait(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/pipelines/double/runs?wait=true", `{"arg": 21}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec := decodeRecord(t, w)
	assert.Equal(t, domain.RunResolved, rec.Status)
	assert.Equal(t, 42.0, rec.Result)
}

func TestStartRun_WaitRejected(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/pipelines/failing/runs?wait=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	rec := decodeRecord(t, w)
	assert.Equal(t, domain.RunRejected, rec.Status)
	assert.Equal(t, "boom", rec.Error)
}

func TestStartRun_AcceptedThenGet(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/pipelines/gated/runs", `{"arg": "x"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	rec := decodeRecord(t, w)
	assert.Equal(t, domain.RunPending, rec.Status)

	w = f.do(http.MethodGet, "/runs/"+rec.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RunPending, decodeRecord(t, w).Status)

	f.gate.Resolve("open")

	w = f.do(http.MethodGet, "/runs/"+rec.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeRecord(t, w)
	assert.Equal(t, domain.RunResolved, got.Status)
	assert.Equal(t, "open", got.Result)
}

func TestStartRun_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/pipelines/missing/runs", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/pipelines/double/runs", "{").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/pipelines/double/runs?wait=maybe", "").Code)
}

func TestGetRun_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body seqhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body.Error, "not found")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/pipelines/double/runs?wait=true", `{"arg": 1}`).Code)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sequence_runs_total{sequence="double",status="resolved"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodOptions, "/pipelines", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
