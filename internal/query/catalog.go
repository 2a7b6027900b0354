package query

import (
	"slices"

	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

// Table is a catalog entry.
type Table struct {
	pkgmaterializer.Table

	// Materialized tables carry (chain_id, block_number) provenance and are served
	// only up to the committed checkpoint of their chain.
	Materialized bool `json:"materialized"`
}

// HasColumn reports whether the table has a column named name.
func (t Table) HasColumn(name string) bool {
	return slices.ContainsFunc(t.Columns, func(c pkgmaterializer.Column) bool { return c.Name == name })
}

var coreTables = []pkgmaterializer.Table{
	{
		Name: "checkpoints",
		Columns: []pkgmaterializer.Column{
			{Name: "chain_id", Type: pkgmaterializer.ColumnInteger},
			{Name: "block_number", Type: pkgmaterializer.ColumnInteger},
			{Name: "block_hash", Type: pkgmaterializer.ColumnText},
			{Name: "committed_at", Type: pkgmaterializer.ColumnInteger},
		},
	},
	{
		Name: "contract_watches",
		Columns: []pkgmaterializer.Column{
			{Name: "chain_id", Type: pkgmaterializer.ColumnInteger},
			{Name: "address", Type: pkgmaterializer.ColumnText},
			{Name: "name", Type: pkgmaterializer.ColumnText},
			{Name: "abi_ref", Type: pkgmaterializer.ColumnText},
			{Name: "handler", Type: pkgmaterializer.ColumnText},
			{Name: "start_block", Type: pkgmaterializer.ColumnInteger},
			{Name: "origin_factory", Type: pkgmaterializer.ColumnText},
			{Name: "discovery_tx", Type: pkgmaterializer.ColumnText},
			{Name: "created_at", Type: pkgmaterializer.ColumnInteger},
		},
	},
}

// TableSource lists materialized tables.
type TableSource interface {
	Tables() []pkgmaterializer.Table
}

// Catalog is the set of tables exposed by the serving layer.
type Catalog struct {
	tables []Table
	byName map[string]int
}

// NewCatalog builds the catalog of the core tables plus every table of src.
func NewCatalog(src TableSource) *Catalog {
	c := &Catalog{byName: make(map[string]int)}

	for _, t := range coreTables {
		c.add(Table{Table: t})
	}
	if src != nil {
		for _, t := range src.Tables() {
			tbl := Table{Table: t}
			tbl.Materialized = tbl.HasColumn("chain_id") && tbl.HasColumn("block_number")
			c.add(tbl)
		}
	}

	return c
}

func (c *Catalog) add(t Table) {
	if _, ok := c.byName[t.Name]; ok {
		return
	}
	c.byName[t.Name] = len(c.tables)
	c.tables = append(c.tables, t)
}

// Tables returns every table in catalog order.
func (c *Catalog) Tables() []Table {
	return slices.Clone(c.tables)
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (Table, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Table{}, false
	}

	return c.tables[i], true
}
