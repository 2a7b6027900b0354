package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/query"
	"github.com/goran-ethernal/BuildersIndexer/internal/scanner"
)

const maxBodyBytes = 1 << 20

// Pinger probes the store with a trivial query.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckpointCounter counts the chains holding a committed checkpoint.
type CheckpointCounter interface {
	Count(ctx context.Context) (int, error)
}

// ChainStatusProvider reports the scanner status of every chain.
type ChainStatusProvider interface {
	Statuses() []scanner.Status
}

// Deps are the read-side components served by the API.
type Deps struct {
	Engine      *query.Engine
	GraphQL     *query.GraphQL
	Store       Pinger
	Checkpoints CheckpointCounter
	Chains      ChainStatusProvider
}

// Handler handles HTTP requests for the API.
type Handler struct {
	deps          Deps
	healthTimeout time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, healthTimeout time.Duration, log *logger.Logger) *Handler {
	if deps.Store == nil && deps.Engine != nil {
		deps.Store = deps.Engine
	}

	return &Handler{
		deps:          deps,
		healthTimeout: healthTimeout,
		log:           log,
		now:           time.Now,
	}
}

// Healthz reports liveness. It always answers 200; the body tells whether the store answered.
// @Summary Liveness probe
// @Description Always 200. Probes the store with a bounded trivial query and reports healthy or degraded.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Liveness status"
// @Router /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		h.log.Warnf("health probe failed: %v", err)
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:    StatusDegraded,
			Timestamp: h.now().UnixMilli(),
			Error:     truncate(err.Error(), maxHealthError),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: h.now().UnixMilli(),
		Schema:    schemaConnected,
	})
}

// Readyz reports readiness: the store answers, at least one chain committed a checkpoint
// and no chain is halted.
// @Summary Readiness probe
// @Description 503 until the store is reachable, a checkpoint is committed and no chain is halted.
// @Tags Health
// @Produce json
// @Success 200 {object} ReadyResponse "Ready"
// @Failure 503 {object} ReadyResponse "Not ready, with a diagnostic"
// @Router /readyz [get]
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.readiness(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: StatusNotReady,
			Error:  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, ReadyResponse{
		Status:    StatusReady,
		Timestamp: h.now().UnixMilli(),
	})
}

func (h *Handler) readiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.healthTimeout)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		return err
	}

	n, err := h.deps.Checkpoints.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no checkpoint committed yet")
	}

	var halted []string
	for _, s := range h.deps.Chains.Statuses() {
		if s.Halted {
			halted = append(halted, fmt.Sprintf("chain %d (%s) halted: %s", s.ChainID, s.Chain, s.HaltReason))
		}
	}
	if len(halted) > 0 {
		return errors.New(strings.Join(halted, "; "))
	}

	return nil
}

// ListChains returns the sync status of every chain.
// @Summary List chains
// @Description Checkpoint, head, scanner state, batch size and halt reason per chain
// @Tags Chains
// @Produce json
// @Success 200 {object} ChainsResponse "Chain statuses"
// @Router /api/v1/chains [get]
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	statuses := h.deps.Chains.Statuses()
	if statuses == nil {
		statuses = []scanner.Status{}
	}

	respondJSON(w, http.StatusOK, ChainsResponse{Chains: statuses})
}

// ListTables returns the queryable tables and their columns.
// @Summary List tables
// @Description Catalog of queryable tables and their columns
// @Tags Tables
// @Produce json
// @Success 200 {object} TablesResponse "Table catalog"
// @Router /api/v1/tables [get]
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, TablesResponse{Tables: h.deps.Engine.Catalog().Tables()})
}

// GetRecords returns rows of one table. Query parameters other than the reserved
// pagination and sorting ones are equality filters on columns.
// @Summary Query table records
// @Description Paginated rows of a table, never beyond the committed checkpoint of their chain
// @Tags Tables
// @Produce json
// @Param table path string true "Table name"
// @Param limit query integer false "Number of rows to return (default: 100, max: 1000)"
// @Param offset query integer false "Number of rows to skip (default: 0)"
// @Param sort_by query string false "Column to sort by (default: block_number)"
// @Param sort_order query string false "Sort order: asc or desc (default: asc)"
// @Param chain_id query integer false "Only rows of this chain"
// @Success 200 {object} RecordsResponse "Table rows with pagination"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Table not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/tables/{table}/records [get]
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if table == "" {
		respondError(w, http.StatusBadRequest, "table name is required")
		return
	}

	q, err := parseRecordsQuery(r, table)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	page, err := h.deps.Engine.Records(r.Context(), q)
	switch {
	case errors.Is(err, query.ErrUnknownTable):
		respondError(w, http.StatusNotFound, fmt.Sprintf("table '%s' not found", table))
		return
	case errors.Is(err, query.ErrUnknownColumn), errors.Is(err, query.ErrInvalidParams):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Errorf("Failed to query records of %s: %v", table, err)
		respondError(w, http.StatusInternalServerError, "failed to query records")
		return
	}

	respondJSON(w, http.StatusOK, RecordsResponse{
		Table:   table,
		Records: page.Records,
		Pagination: PaginationResult{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

// ExecuteSQL runs a read-only SQL query.
// @Summary Read-only SQL
// @Description Runs a single SELECT or WITH statement in a read-only transaction; rows are capped
// @Tags Query
// @Accept json
// @Produce json
// @Param request body SQLRequest true "SQL query"
// @Success 200 {object} query.SQLResult "Query result"
// @Failure 400 {object} ErrorResponse "Rejected or failed query"
// @Router /sql [post]
func (h *Handler) ExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := h.deps.Engine.SQL(r.Context(), req.Query)
	if err != nil {
		h.log.Debugf("SQL query rejected: %v", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// GraphQL runs a GraphQL query over the table catalog.
// @Summary GraphQL
// @Description Graph-style query; every table is a root field with limit, offset, sortBy, sortOrder, chainId and where arguments
// @Tags Query
// @Accept json
// @Produce json
// @Param request body query.GraphQLRequest false "GraphQL request (POST)"
// @Param query query string false "GraphQL query (GET)"
// @Success 200 {object} GraphQLResponse "Query result"
// @Failure 400 {object} GraphQLResponse "Invalid query"
// @Router /graphql [post]
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	req, err := parseGraphQLRequest(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.deps.GraphQL.Execute(r.Context(), req)

	status := http.StatusOK
	if res.Data == nil && res.HasErrors() {
		status = http.StatusBadRequest
	}

	respondJSON(w, status, GraphQLResponse{Data: res.Data, Errors: res.Errors})
}

func parseGraphQLRequest(w http.ResponseWriter, r *http.Request) (query.GraphQLRequest, error) {
	var req query.GraphQLRequest

	if r.Method == http.MethodGet {
		values := r.URL.Query()
		req.Query = values.Get("query")
		req.OperationName = values.Get("operationName")
		if vars := values.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, fmt.Errorf("invalid variables: %w", err)
			}
		}
	} else if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("query is required")
	}

	return req, nil
}

var reservedParams = map[string]struct{}{
	"limit": {}, "offset": {}, "sort_by": {}, "sort_order": {}, "chain_id": {},
}

// parseRecordsQuery parses HTTP query parameters into a RecordsQuery.
func parseRecordsQuery(r *http.Request, table string) (query.RecordsQuery, error) {
	values := r.URL.Query()
	q := query.RecordsQuery{
		Table:     table,
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
	}

	if limitStr := values.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > query.MaxLimit {
			return q, fmt.Errorf("invalid limit: must be between 1 and %d", query.MaxLimit)
		}
		q.Limit = limit
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return q, errors.New("invalid offset: must be non-negative")
		}
		q.Offset = offset
	}

	if chainStr := values.Get("chain_id"); chainStr != "" {
		chainID, err := strconv.ParseUint(chainStr, 10, 64)
		if err != nil {
			return q, errors.New("invalid chain_id")
		}
		q.ChainID = &chainID
	}

	for key, vals := range values {
		if _, ok := reservedParams[key]; ok || len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key] = vals[0]
	}

	return q, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	// Headers are sent; a failed write can only be dropped
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
