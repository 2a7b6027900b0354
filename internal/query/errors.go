package query

import "errors"

var (
	// ErrUnknownTable is returned for tables missing from the catalog.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when a filter or sort names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidParams is returned for malformed pagination or sort parameters.
	ErrInvalidParams = errors.New("invalid query parameters")

	// ErrNotReadOnly is returned for SQL that is not a single SELECT or WITH statement.
	ErrNotReadOnly = errors.New("only a single read-only SELECT statement is allowed")
)
