package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/prices"
	"github.com/wonny/indexrep/internal/replication"
	"github.com/wonny/indexrep/internal/store"
	"github.com/wonny/indexrep/pkg/config"
)

type fakeSource struct{ name string }

func (s fakeSource) Name() string { return s.name }

func (s fakeSource) Load(context.Context, contracts.PriceQuery) (*contracts.PriceMatrix, error) {
	return nil, errors.New("not used")
}

type fakeRunner struct {
	lastReq orchestrator.Request
	resp    *orchestrator.Response
	err     error
	stored  map[string]*contracts.ReplicationResult
	getErr  error
}

func (f *fakeRunner) Run(_ context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeRunner) Get(_ context.Context, id string) (*contracts.ReplicationResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	res, ok := f.stored[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	return res, nil
}

func testDefaults() config.ReplicationConfig {
	return config.ReplicationConfig{
		PriceSource:  "csv",
		PriceFile:    "prices.csv",
		DataDir:      "data",
		SubsetSize:   3,
		Workers:      2,
		MaxCondition: 1e10,
	}
}

func fileSources(kind, file string) (contracts.PriceSource, error) {
	if kind != "csv" && kind != "http" {
		return nil, fmt.Errorf("unknown price source %q", kind)
	}
	return fakeSource{name: kind + ":" + file}, nil
}

func sampleResult() *contracts.ReplicationResult {
	return &contracts.ReplicationResult{
		RunID:       "run-1",
		IndexSymbol: "DJI",
		SubsetSize:  2,
		Ranked:      []contracts.RankedAsset{{Symbol: "A", Correlation: 0.9}, {Symbol: "B", Correlation: 0.8}},
		Accepted:    contracts.Candidate{Positions: []int{0, 1}, Symbols: []string{"A", "B"}},
		Model:       contracts.RegressionResult{Coefficients: []contracts.Coefficient{{Symbol: "A", Value: 0.6}, {Symbol: "B", Value: 0.4}}, RSquared: 1},
		Weights:     contracts.WeightsTable{{Symbol: "A", Value: 0.6}, {Symbol: "B", Value: 0.4}},
		CreatedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func postReplicate(t *testing.T, h *ReplicationHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/replications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Replicate(rec, req)
	return rec
}

func TestReplicate_Success(t *testing.T) {
	runner := &fakeRunner{resp: &orchestrator.Response{Result: sampleResult(), Cached: true}}
	h := NewReplicationHandler(runner, fileSources, testDefaults(), nil)

	rec := postReplicate(t, h, `{"index":"DJI","n":2,"max_candidates":50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Success bool                         `json:"success"`
		Result  *contracts.ReplicationResult `json:"result"`
		Cached  bool                         `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.True(t, got.Cached)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"A", "B"}, got.Result.Weights.Symbols())

	assert.Equal(t, "DJI", runner.lastReq.IndexSymbol)
	assert.Equal(t, 2, runner.lastReq.SubsetSize)
	assert.Equal(t, "csv:prices.csv", runner.lastReq.Source.Name())
	assert.Equal(t, 2, runner.lastReq.Search.Workers)
	assert.Equal(t, 50, runner.lastReq.Search.MaxCandidates)
}

func TestReplicate_AppliesDefaults(t *testing.T) {
	runner := &fakeRunner{resp: &orchestrator.Response{Result: sampleResult()}}
	h := NewReplicationHandler(runner, fileSources, testDefaults(), nil)

	rec := postReplicate(t, h, `{"index":"DJI","file":"other.csv","symbols":["A","B"],"from":"2024-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, runner.lastReq.SubsetSize)
	assert.Equal(t, "csv:data/other.csv", runner.lastReq.Source.Name())
	assert.Equal(t, []string{"A", "B", "DJI"}, runner.lastReq.Query.Symbols)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), runner.lastReq.Query.From)
	assert.True(t, runner.lastReq.Query.To.IsZero())
}

func TestReplicate_BadRequests(t *testing.T) {
	h := NewReplicationHandler(&fakeRunner{}, fileSources, testDefaults(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing index", `{"n":2}`},
		{"unknown source", `{"index":"DJI","source":"ftp"}`},
		{"bad date", `{"index":"DJI","to":"01/02/2024"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postReplicate(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestReplicate_FileConfinedToDataDir(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"absolute path", "/etc/passwd"},
		{"parent traversal", "../secrets.env"},
		{"nested traversal", "prices/../../.env"},
		{"data dir itself", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{resp: &orchestrator.Response{Result: sampleResult()}}
			h := NewReplicationHandler(runner, fileSources, testDefaults(), nil)

			body, err := json.Marshal(ReplicateRequest{Index: "DJI", N: 2, File: tt.file})
			require.NoError(t, err)
			rec := postReplicate(t, h, string(body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), ErrFileOutsideDataDir.Error())
			assert.Nil(t, runner.lastReq.Source, "no source is opened")
		})
	}

	t.Run("nested file inside", func(t *testing.T) {
		runner := &fakeRunner{resp: &orchestrator.Response{Result: sampleResult()}}
		h := NewReplicationHandler(runner, fileSources, testDefaults(), nil)

		rec := postReplicate(t, h, `{"index":"DJI","file":"2024/../dow.csv"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "csv:data/dow.csv", runner.lastReq.Source.Name())
	})

	t.Run("no data dir", func(t *testing.T) {
		defaults := testDefaults()
		defaults.DataDir = ""
		h := NewReplicationHandler(&fakeRunner{}, fileSources, defaults, nil)

		rec := postReplicate(t, h, `{"index":"DJI","file":"dow.csv"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReplicate_HTTPSourceOnlyConfiguredURL(t *testing.T) {
	rec := postReplicate(t, NewReplicationHandler(&fakeRunner{}, fileSources, testDefaults(), nil),
		`{"index":"DJI","source":"http","file":"http://169.254.169.254/latest"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	defaults := testDefaults()
	defaults.PriceSource = "http"
	defaults.PriceFile = "https://prices.example.com/dow.csv"

	rec = postReplicate(t, NewReplicationHandler(&fakeRunner{}, fileSources, defaults, nil),
		`{"index":"DJI","file":"http://169.254.169.254/latest"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	runner := &fakeRunner{resp: &orchestrator.Response{Result: sampleResult()}}
	rec = postReplicate(t, NewReplicationHandler(runner, fileSources, defaults, nil), `{"index":"DJI"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http:https://prices.example.com/dow.csv", runner.lastReq.Source.Name())
}

func TestReplicate_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid n", fmt.Errorf("%w: %w", replication.ErrConfiguration, replication.ErrInvalidSubsetSize), http.StatusBadRequest},
		{"empty dataset", prices.ErrEmptyDataset, http.StatusBadRequest},
		{"exhausted", replication.ErrSearchExhausted, http.StatusUnprocessableEntity},
		{"limit", replication.ErrCandidateLimit, http.StatusUnprocessableEntity},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReplicationHandler(&fakeRunner{err: tt.err}, fileSources, testDefaults(), nil)
			rec := postReplicate(t, h, `{"index":"DJI","n":2}`)
			assert.Equal(t, tt.want, rec.Code)

			var got contracts.Outcome
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.False(t, got.Success)
			assert.Equal(t, tt.err.Error(), got.Message)
		})
	}
}

func TestGetRun(t *testing.T) {
	runner := &fakeRunner{stored: map[string]*contracts.ReplicationResult{"run-1": sampleResult()}}
	h := NewReplicationHandler(runner, fileSources, testDefaults(), nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/replications/{id}", h.GetRun)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replications/run-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replications/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	runner.getErr = errors.New("db down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replications/run-1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
