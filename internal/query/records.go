package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// RecordsQuery selects rows of one catalog table.
type RecordsQuery struct {
	Table     string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
	ChainID   *uint64
	// Filters are equality filters on columns, compared as text.
	Filters map[string]string
}

// RecordsPage is one page of a RecordsQuery.
type RecordsPage struct {
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

// Engine answers structured, SQL and GraphQL queries over the catalog. It only reads.
type Engine struct {
	db      *sqlx.DB
	catalog *Catalog
	maxRows int
	log     *logger.Logger
}

// NewEngine creates a query engine. maxRows caps the rows returned by a raw SQL query.
func NewEngine(database *sqlx.DB, catalog *Catalog, maxRows int, log *logger.Logger) *Engine {
	if maxRows <= 0 {
		maxRows = MaxLimit
	}

	return &Engine{
		db:      database,
		catalog: catalog,
		maxRows: maxRows,
		log:     log.WithComponent(common.ComponentAPI),
	}
}

// Catalog returns the served catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Ping runs a trivial query against the store.
func (e *Engine) Ping(ctx context.Context) error {
	var one int
	if err := e.db.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	return nil
}

// Records runs a structured query. Rows of materialized tables above the committed
// checkpoint of their chain are never returned.
func (e *Engine) Records(ctx context.Context, q RecordsQuery) (RecordsPage, error) {
	t, ok := e.catalog.Table(q.Table)
	if !ok {
		return RecordsPage{}, fmt.Errorf("%w: %s", ErrUnknownTable, q.Table)
	}

	if err := normalize(&q, t); err != nil {
		return RecordsPage{}, err
	}

	where, args := whereClause(q, t)

	var total int
	countQuery := e.db.Rebind(fmt.Sprintf(`SELECT COUNT(*) FROM %s t%s`, t.Name, where))
	if err := e.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return RecordsPage{}, fmt.Errorf("failed to count %s: %w", t.Name, err)
	}

	selectQuery := e.db.Rebind(fmt.Sprintf(`SELECT t.* FROM %s t%s ORDER BY t.%s %s LIMIT ? OFFSET ?`,
		t.Name, where, q.SortBy, strings.ToUpper(q.SortOrder)))

	rows, err := e.db.QueryxContext(ctx, selectQuery, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return RecordsPage{}, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	defer rows.Close()

	records, _, err := scanMaps(rows, q.Limit)
	if err != nil {
		return RecordsPage{}, fmt.Errorf("failed to read %s: %w", t.Name, err)
	}

	return RecordsPage{
		Records: records,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: q.Offset+len(records) < total,
	}, nil
}

func normalize(q *RecordsQuery, t Table) error {
	switch {
	case q.Limit == 0:
		q.Limit = DefaultLimit
	case q.Limit < 0 || q.Limit > MaxLimit:
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParams, MaxLimit)
	}

	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative", ErrInvalidParams)
	}

	if q.SortBy == "" {
		q.SortBy = defaultSort(t)
	} else if !t.HasColumn(q.SortBy) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, q.SortBy)
	}

	q.SortOrder = strings.ToLower(q.SortOrder)
	switch q.SortOrder {
	case "":
		q.SortOrder = "asc"
	case "asc", "desc":
	default:
		return fmt.Errorf("%w: sort_order must be 'asc' or 'desc'", ErrInvalidParams)
	}

	if q.ChainID != nil && !t.HasColumn("chain_id") {
		return fmt.Errorf("%w: %s.chain_id", ErrUnknownColumn, t.Name)
	}

	for col := range q.Filters {
		if !t.HasColumn(col) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, col)
		}
	}

	return nil
}

func defaultSort(t Table) string {
	if t.HasColumn("block_number") {
		return "block_number"
	}

	return t.Columns[0].Name
}

func whereClause(q RecordsQuery, t Table) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if t.Materialized {
		conds = append(conds,
			"t.block_number <= (SELECT c.block_number FROM checkpoints c WHERE c.chain_id = t.chain_id)")
	}

	if q.ChainID != nil {
		conds = append(conds, "t.chain_id = ?")
		args = append(args, *q.ChainID)
	}

	cols := make([]string, 0, len(q.Filters))
	for col := range q.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		conds = append(conds, fmt.Sprintf("CAST(t.%s AS TEXT) = ?", col))
		args = append(args, filterValue(q.Filters[col]))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// filterValue lowercases hex values, matching how addresses and hashes are stored.
func filterValue(v string) string {
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return strings.ToLower(v)
	}

	return v
}

// scanMaps reads at most limit rows and reports whether more rows were available.
func scanMaps(rows *sqlx.Rows, limit int) ([]map[string]any, bool, error) {
	out := make([]map[string]any, 0)

	for rows.Next() {
		if len(out) == limit {
			return out, true, nil
		}

		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, false, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}

	return out, false, rows.Err()
}
