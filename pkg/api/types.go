package api

import (
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/goran-ethernal/BuildersIndexer/internal/query"
	"github.com/goran-ethernal/BuildersIndexer/internal/scanner"
)

// Liveness and readiness states.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusReady    = "ready"
	StatusNotReady = "not ready"

	schemaConnected = "connected"
	maxHealthError  = 100
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse is the liveness probe body. Timestamp is in unix milliseconds.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Schema    string `json:"schema,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReadyResponse is the readiness probe body. Timestamp is in unix milliseconds.
type ReadyResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChainsResponse lists the sync status of every chain.
type ChainsResponse struct {
	Chains []scanner.Status `json:"chains"`
}

// TablesResponse lists the queryable tables.
type TablesResponse struct {
	Tables []query.Table `json:"tables"`
}

// RecordsResponse is one page of table rows.
type RecordsResponse struct {
	Table      string           `json:"table"`
	Records    []map[string]any `json:"records"`
	Pagination PaginationResult `json:"pagination"`
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// SQLRequest is the body of a raw SQL query.
type SQLRequest struct {
	Query string `json:"query" example:"SELECT * FROM builders_projects LIMIT 10"`
}

// GraphQLResponse is the body of a GraphQL response.
type GraphQLResponse struct {
	Data   any                        `json:"data,omitempty"`
	Errors []gqlerrors.FormattedError `json:"errors,omitempty"`
}
