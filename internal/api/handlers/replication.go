package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/internal/orchestrator"
	"github.com/wonny/indexrep/internal/prices"
	"github.com/wonny/indexrep/internal/replication"
	"github.com/wonny/indexrep/internal/report"
	"github.com/wonny/indexrep/internal/store"
	"github.com/wonny/indexrep/pkg/config"
	"github.com/wonny/indexrep/pkg/logger"
)

// ErrFileOutsideDataDir rejects request paths that escape API_DATA_DIR
var ErrFileOutsideDataDir = errors.New("file must be a relative path inside the data directory")

// Runner is the part of the orchestrator the handler needs
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
	Get(ctx context.Context, runID string) (*contracts.ReplicationResult, error)
}

// SourceFactory builds a price source from a request's kind and file
type SourceFactory func(kind, file string) (contracts.PriceSource, error)

// ReplicationHandler handles replication API endpoints
// ⭐ SSOT: 복제 API 핸들러는 이 구조체에서만
type ReplicationHandler struct {
	runner   Runner
	sources  SourceFactory
	defaults config.ReplicationConfig
	logger   *logger.Logger
}

// NewReplicationHandler creates a new replication handler
func NewReplicationHandler(runner Runner, sources SourceFactory, defaults config.ReplicationConfig, log *logger.Logger) *ReplicationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReplicationHandler{
		runner:   runner,
		sources:  sources,
		defaults: defaults,
		logger:   log,
	}
}

// ReplicateRequest is the body of POST /api/replications
type ReplicateRequest struct {
	Index         string   `json:"index"`
	N             int      `json:"n"`
	Source        string   `json:"source,omitempty"` // csv, postgres
	File          string   `json:"file,omitempty"`   // relative to API_DATA_DIR
	From          string   `json:"from,omitempty"` // YYYY-MM-DD
	To            string   `json:"to,omitempty"`   // YYYY-MM-DD
	Symbols       []string `json:"symbols,omitempty"`
	Workers       int      `json:"workers,omitempty"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
	Save          bool     `json:"save,omitempty"`
}

// ReplicateResponse wraps the outcome with reporting fields
type ReplicateResponse struct {
	contracts.Outcome
	Tracking *report.TrackingStats `json:"tracking,omitempty"`
	Cached   bool                  `json:"cached"`
	Saved    bool                  `json:"saved"`
}

// Replicate runs one replication search
// POST /api/replications
func (h *ReplicationHandler) Replicate(w http.ResponseWriter, r *http.Request) {
	var body ReplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := h.buildRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Replication failed")
		}
		respondJSON(w, status, ReplicateResponse{Outcome: contracts.NewOutcome(nil, err)})
		return
	}

	respondJSON(w, http.StatusOK, ReplicateResponse{
		Outcome:  contracts.NewOutcome(resp.Result, nil),
		Tracking: &resp.Tracking,
		Cached:   resp.Cached,
		Saved:    resp.Saved,
	})
}

// GetRun returns a stored replication run
// GET /api/replications/{id}
func (h *ReplicationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.runner.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	respondJSON(w, http.StatusOK, contracts.NewOutcome(result, nil))
}

func (h *ReplicationHandler) buildRequest(body ReplicateRequest) (orchestrator.Request, error) {
	index := strings.TrimSpace(body.Index)
	if index == "" {
		return orchestrator.Request{}, errors.New("index is required")
	}

	n := body.N
	if n == 0 {
		n = h.defaults.SubsetSize
	}

	kind := body.Source
	if kind == "" {
		kind = h.defaults.PriceSource
	}
	// http 소스는 서버 설정의 PRICE_FILE URL 만 허용
	if kind == prices.KindHTTP && (h.defaults.PriceSource != prices.KindHTTP || body.File != "") {
		return orchestrator.Request{}, errors.New("http source only serves the configured PRICE_FILE")
	}

	file := h.defaults.PriceFile
	if body.File != "" {
		resolved, err := h.resolveFile(body.File)
		if err != nil {
			return orchestrator.Request{}, err
		}
		file = resolved
	}

	source, err := h.sources(kind, file)
	if err != nil {
		return orchestrator.Request{}, err
	}

	query := contracts.PriceQuery{Symbols: body.Symbols}
	if query.From, err = parseDay(body.From); err != nil {
		return orchestrator.Request{}, err
	}
	if query.To, err = parseDay(body.To); err != nil {
		return orchestrator.Request{}, err
	}
	if len(query.Symbols) > 0 && !containsSymbol(query.Symbols, index) {
		query.Symbols = append(query.Symbols, index)
	}

	search := replication.SearchConfig{
		Workers:       h.defaults.Workers,
		MaxCandidates: h.defaults.MaxCandidates,
		MaxCondition:  h.defaults.MaxCondition,
	}
	if body.Workers > 0 {
		search.Workers = body.Workers
	}
	if body.MaxCandidates > 0 {
		search.MaxCandidates = body.MaxCandidates
	}

	return orchestrator.Request{
		Source:      source,
		Query:       query,
		IndexSymbol: index,
		SubsetSize:  n,
		Search:      search,
		Save:        body.Save,
	}, nil
}

// resolveFile joins a client path onto the data directory and refuses escapes
func (h *ReplicationHandler) resolveFile(file string) (string, error) {
	if h.defaults.DataDir == "" {
		return "", errors.New("file selection is disabled: API_DATA_DIR is not set")
	}
	if filepath.IsAbs(file) {
		return "", ErrFileOutsideDataDir
	}

	root := filepath.Clean(h.defaults.DataDir)
	path := filepath.Join(root, file)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrFileOutsideDataDir
	}
	return path, nil
}

// statusFor maps the search error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case replication.IsConfiguration(err),
		errors.Is(err, prices.ErrEmptyDataset),
		errors.Is(err, prices.ErrDuplicateRow),
		errors.Is(err, prices.ErrMalformedInput),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, replication.ErrSearchExhausted), errors.Is(err, replication.ErrCandidateLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD")
	}
	return t, nil
}

func containsSymbol(symbols []string, want string) bool {
	for _, s := range symbols {
		if s == want {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
