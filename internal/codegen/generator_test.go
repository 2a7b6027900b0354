package codegen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModule = "github.com/goran-ethernal/BuildersIndexer"

var erc721Events = []string{
	"Transfer(address indexed from, address indexed to, uint256 indexed tokenId)",
	"Approval(address indexed owner, address indexed approved, uint256 indexed tokenId)",
	"ApprovalForAll(address indexed owner, address indexed operator, bool approved)",
}

func TestGenerator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		gen     *Generator
		wantErr string
	}{
		{
			name: "valid configuration",
			gen:  &Generator{Name: "erc721", Events: erc721Events},
		},
		{
			name:    "missing name",
			gen:     &Generator{Events: erc721Events},
			wantErr: "handler name is required",
		},
		{
			name:    "missing events",
			gen:     &Generator{Name: "erc721"},
			wantErr: "at least one event signature",
		},
		{
			name:    "not snake case",
			gen:     &Generator{Name: "MyToken", Events: erc721Events},
			wantErr: "lower snake case",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gen.validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerator_Tables(t *testing.T) {
	gen := &Generator{Name: "erc721", Events: erc721Events}

	tables, err := gen.tables()
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, "erc721_transfers", tables[0].Table)
	assert.Equal(t, "Transfer(address,address,uint256)", tables[0].Signature)
	assert.Equal(t, []ColumnData{
		{Column: "from_address", Arg: "from", Indexed: true},
		{Column: "to_address", Arg: "to", Indexed: true},
		{Column: "token_id", Arg: "tokenId", Indexed: true},
	}, tables[0].Columns)

	assert.Equal(t, "erc721_approval_for_alls", tables[2].Table)
	assert.False(t, tables[2].Columns[2].Indexed)
}

func TestGenerator_TablesErrors(t *testing.T) {
	tests := []struct {
		name    string
		events  []string
		wantErr string
	}{
		{
			name: "duplicate event names",
			events: []string{
				"Transfer(address indexed from, address indexed to, uint256 value)",
				"Transfer(address sender, address recipient, uint256 amount)",
			},
			wantErr: "duplicate event name: Transfer",
		},
		{
			name:    "invalid event signature",
			events:  []string{"Invalid Event Signature"},
			wantErr: "invalid event signature #1",
		},
		{
			name:    "colliding columns",
			events:  []string{"Moved(address from, address fromAddress)"},
			wantErr: "both map to column from_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &Generator{Name: "test", Events: tt.events}
			_, err := gen.tables()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "erc721")
	var out bytes.Buffer

	gen := &Generator{
		Name:       "erc721",
		Events:     erc721Events,
		OutputDir:  outDir,
		ModulePath: testModule,
		Out:        &out,
	}

	files, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "erc721.go"), files.HandlerFile)
	assert.Equal(t, filepath.Join(outDir, "001_erc721.sql"), files.MigrationFile)

	src, err := os.ReadFile(files.HandlerFile)
	require.NoError(t, err)
	handler := string(src)
	assert.Contains(t, handler, "package erc721")
	assert.Contains(t, handler, `"`+testModule+`/pkg/materializer"`)
	assert.Contains(t, handler, "//go:embed 001_erc721.sql")
	assert.Contains(t, handler, `Table:  "erc721_transfers"`)
	assert.Contains(t, handler, `{Column: "token_id", Arg: "tokenId"}`)
	assert.Contains(t, handler, `{Column: "contract_address", Arg: materializer.ArgAddress}`)

	sql, err := os.ReadFile(files.MigrationFile)
	require.NoError(t, err)
	assert.Contains(t, string(sql), "CREATE TABLE IF NOT EXISTS erc721_approval_for_alls")
	assert.Contains(t, string(sql), "CREATE INDEX IF NOT EXISTS idx_erc721_transfers_token_id")
	assert.NotContains(t, string(sql), "idx_erc721_approval_for_alls_approved ")

	assert.Contains(t, out.String(), "Generated: "+files.HandlerFile)

	out.Reset()
	gen.PrintSummary(files)
	assert.Contains(t, out.String(), `handler: "erc721"`)
	assert.Contains(t, out.String(), `_ "`+testModule+`/`)
}

func TestGenerator_MigrationApplies(t *testing.T) {
	gen := &Generator{
		Name:       "erc721",
		Events:     erc721Events,
		OutputDir:  filepath.Join(t.TempDir(), "erc721"),
		ModulePath: testModule,
		Out:        &bytes.Buffer{},
	}

	files, err := gen.Generate()
	require.NoError(t, err)

	sql, err := os.ReadFile(files.MigrationFile)
	require.NoError(t, err)

	database := helpers.NewTestDB(t, "codegen.sqlite",
		db.Migration{ID: "001_erc721.sql", SQL: string(sql), Prefix: "erc721"})

	_, err = database.Exec(`INSERT INTO erc721_transfers
		(chain_id, block_number, tx_hash, log_index, contract_address, from_address, to_address, token_id)
		VALUES (1, 10, '0xaa', 0, '0xc0', '0x01', '0x02', '7')`)
	require.NoError(t, err)

	var tokenID string
	require.NoError(t, database.Get(&tokenID, `SELECT token_id FROM erc721_transfers WHERE block_number = 10`))
	assert.Equal(t, "7", tokenID)
}

func TestGenerator_DryRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "erc721")
	var out bytes.Buffer

	gen := &Generator{
		Name:       "erc721",
		Events:     erc721Events,
		OutputDir:  outDir,
		ModulePath: testModule,
		DryRun:     true,
		Out:        &out,
	}

	_, err := gen.Generate()
	require.NoError(t, err)
	assert.NoDirExists(t, outDir)
	assert.Contains(t, out.String(), "Would create: "+filepath.Join(outDir, "erc721.go"))
}

func TestGenerator_ExistingOutput(t *testing.T) {
	outDir := t.TempDir()

	gen := &Generator{
		Name:       "erc721",
		Events:     erc721Events,
		OutputDir:  outDir,
		ModulePath: testModule,
		Out:        &bytes.Buffer{},
	}

	_, err := gen.Generate()
	require.ErrorContains(t, err, "output directory already exists")

	gen.Force = true
	_, err = gen.Generate()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "erc721.go"))
}

func TestRenderHandler_DefaultPackage(t *testing.T) {
	gen := &Generator{Name: "fee_config", Events: []string{"FeeSet(uint256 fee)"}}
	require.NoError(t, gen.validate())

	tables, err := gen.tables()
	require.NoError(t, err)

	src, err := RenderHandler(&TemplateData{
		Name:          gen.Name,
		Package:       PackageName(gen.Name),
		ModulePath:    testModule,
		MigrationFile: "001_fee_config.sql",
		Tables:        tables,
	})
	require.NoError(t, err)
	assert.Contains(t, src, "package feeconfig")
	assert.Contains(t, src, `const Name = "fee_config"`)
	assert.Contains(t, src, `Table:  "fee_config_fee_sets"`)
}
