package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SQLResult is the outcome of a raw SQL query.
type SQLResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

var (
	leadingKeyword = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
	writeKeyword   = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|upsert|drop|alter|create|truncate|` +
		`attach|detach|pragma|vacuum|reindex|grant|revoke|copy|into)\b`)
)

// CheckReadOnly accepts a single SELECT or WITH statement without write keywords.
// Literals, quoted identifiers and comments are ignored while checking.
func CheckReadOnly(stmt string) (string, error) {
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, "; \t\r\n"))
	if stmt == "" {
		return "", fmt.Errorf("%w: empty query", ErrNotReadOnly)
	}

	code, err := stripLiterals(stmt)
	if err != nil {
		return "", err
	}

	if strings.Contains(code, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	if !leadingKeyword.MatchString(code) {
		return "", fmt.Errorf("%w: query must start with SELECT or WITH", ErrNotReadOnly)
	}
	if kw := writeKeyword.FindString(code); kw != "" {
		return "", fmt.Errorf("%w: %s is not allowed", ErrNotReadOnly, strings.ToUpper(kw))
	}

	return stmt, nil
}

// stripLiterals blanks out string literals, quoted identifiers and comments.
func stripLiterals(stmt string) (string, error) {
	var b strings.Builder
	b.Grow(len(stmt))

	for i := 0; i < len(stmt); i++ {
		c := stmt[i]

		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for ; j < len(stmt); j++ {
				if stmt[j] != c {
					continue
				}
				// a doubled quote escapes itself
				if j+1 < len(stmt) && stmt[j+1] == c {
					j++
					continue
				}
				break
			}
			if j >= len(stmt) {
				return "", fmt.Errorf("%w: unterminated quote", ErrNotReadOnly)
			}
			b.WriteByte(' ')
			i = j
		case c == '-' && i+1 < len(stmt) && stmt[i+1] == '-':
			nl := strings.IndexByte(stmt[i:], '\n')
			if nl < 0 {
				i = len(stmt)
			} else {
				i += nl
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(stmt) && stmt[i+1] == '*':
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated comment", ErrNotReadOnly)
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// SQL runs a read-only query inside a read-only transaction that is always rolled back.
// At most the configured row cap is returned.
func (e *Engine) SQL(ctx context.Context, stmt string) (SQLResult, error) {
	stmt, err := CheckReadOnly(stmt)
	if err != nil {
		return SQLResult{}, err
	}

	tx, err := e.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return SQLResult{}, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.log.Warnf("failed to close read-only transaction: %v", rbErr)
		}
	}()

	rows, err := tx.QueryxContext(ctx, stmt)
	if err != nil {
		return SQLResult{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return SQLResult{}, fmt.Errorf("query failed: %w", err)
	}

	records, truncated, err := scanMaps(rows, e.maxRows)
	if err != nil {
		return SQLResult{}, fmt.Errorf("query failed: %w", err)
	}

	if truncated {
		e.log.Debugf("sql result truncated to %d rows", e.maxRows)
	}

	return SQLResult{
		Columns:   cols,
		Rows:      records,
		RowCount:  len(records),
		Truncated: truncated,
	}, nil
}
