package query

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

// Long carries 64-bit integers such as block numbers, which overflow the GraphQL Int.
var Long = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Long",
	Description: "64-bit signed integer",
	Serialize:   coerceLong,
	ParseValue:  coerceLong,
	ParseLiteral: func(v ast.Value) any {
		switch v := v.(type) {
		case *ast.IntValue:
			return coerceLong(v.Value)
		case *ast.StringValue:
			return coerceLong(v.Value)
		}
		return nil
	},
})

func coerceLong(value any) any {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return nil
		}
		return int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case []byte:
		return coerceLong(string(v))
	}

	return nil
}

// GraphQLRequest is the body of a GraphQL request.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQL exposes every catalog table as a paginated root field.
//
//	{ erc20_transfers(limit: 10, sortOrder: "desc", where: {to_address: "0x..."}) { total hasMore records { value } } }
type GraphQL struct {
	schema graphql.Schema
}

// NewGraphQL builds the schema of the engine's catalog.
func NewGraphQL(e *Engine) (*GraphQL, error) {
	fields := graphql.Fields{}

	for _, t := range e.catalog.Tables() {
		fields[t.Name] = tableField(e, t)
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: fields}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}

	return &GraphQL{schema: schema}, nil
}

// Execute runs a GraphQL request. Errors are reported inside the result.
func (g *GraphQL) Execute(ctx context.Context, req GraphQLRequest) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         g.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func tableField(e *Engine, t Table) *graphql.Field {
	typeName := typeNameOf(t.Name)

	rowFields := graphql.Fields{}
	where := graphql.InputObjectConfigFieldMap{}
	for _, c := range t.Columns {
		var typ graphql.Output = graphql.String
		if c.Type == pkgmaterializer.ColumnInteger {
			typ = Long
		}
		rowFields[c.Name] = &graphql.Field{Type: typ}
		where[c.Name] = &graphql.InputObjectFieldConfig{Type: graphql.String}
	}

	row := graphql.NewObject(graphql.ObjectConfig{Name: typeName, Fields: rowFields})
	page := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName + "Page",
		Fields: graphql.Fields{
			"records": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(row)))},
			"total":   &graphql.Field{Type: graphql.NewNonNull(Long)},
			"hasMore": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	return &graphql.Field{
		Type:        graphql.NewNonNull(page),
		Description: fmt.Sprintf("Rows of %s", t.Name),
		Args: graphql.FieldConfigArgument{
			"limit":     &graphql.ArgumentConfig{Type: graphql.Int},
			"offset":    &graphql.ArgumentConfig{Type: graphql.Int},
			"sortBy":    &graphql.ArgumentConfig{Type: graphql.String},
			"sortOrder": &graphql.ArgumentConfig{Type: graphql.String},
			"chainId":   &graphql.ArgumentConfig{Type: Long},
			"where": &graphql.ArgumentConfig{Type: graphql.NewInputObject(graphql.InputObjectConfig{
				Name:   typeName + "Where",
				Fields: where,
			})},
		},
		Resolve: func(p graphql.ResolveParams) (any, error) {
			q, err := recordsQueryOf(t.Name, p.Args)
			if err != nil {
				return nil, err
			}

			res, err := e.Records(p.Context, q)
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"records": res.Records,
				"total":   int64(res.Total),
				"hasMore": res.HasMore,
			}, nil
		},
	}
}

func recordsQueryOf(table string, args map[string]any) (RecordsQuery, error) {
	q := RecordsQuery{Table: table}

	if v, ok := args["limit"].(int); ok {
		q.Limit = v
	}
	if v, ok := args["offset"].(int); ok {
		q.Offset = v
	}
	if v, ok := args["sortBy"].(string); ok {
		q.SortBy = v
	}
	if v, ok := args["sortOrder"].(string); ok {
		q.SortOrder = v
	}
	if v, ok := args["chainId"]; ok && v != nil {
		id, ok := v.(int64)
		if !ok || id < 0 {
			return q, fmt.Errorf("%w: chainId", ErrInvalidParams)
		}
		chainID := uint64(id)
		q.ChainID = &chainID
	}
	if w, ok := args["where"].(map[string]any); ok {
		q.Filters = make(map[string]string, len(w))
		for col, v := range w {
			if v != nil {
				q.Filters[col] = fmt.Sprint(v)
			}
		}
	}

	return q, nil
}

// typeNameOf turns a table name such as erc20_transfers into Erc20Transfers.
func typeNameOf(table string) string {
	parts := strings.Split(table, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}

	return strings.Join(parts, "")
}
