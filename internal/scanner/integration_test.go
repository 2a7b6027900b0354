package scanner_test

import (
	"context"
	"testing"

	"github.com/goran-ethernal/BuildersIndexer/internal/abis"
	"github.com/goran-ethernal/BuildersIndexer/internal/checkpoint"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/materializer"
	"github.com/goran-ethernal/BuildersIndexer/internal/registry"
	"github.com/goran-ethernal/BuildersIndexer/internal/reorg"
	"github.com/goran-ethernal/BuildersIndexer/internal/rpc"
	"github.com/goran-ethernal/BuildersIndexer/internal/scanner"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	"github.com/goran-ethernal/BuildersIndexer/tests/helpers"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const emitterSQL = `
-- +migrate Down
DROP TABLE IF EXISTS emitter_events;

-- +migrate Up
CREATE TABLE IF NOT EXISTS emitter_events (
    chain_id         BIGINT NOT NULL,
    block_number     BIGINT NOT NULL,
    tx_hash          TEXT   NOT NULL,
    log_index        BIGINT NOT NULL,
    contract_address TEXT,
    event_id         TEXT,
    sender           TEXT,
    data             TEXT,
    PRIMARY KEY (chain_id, tx_hash, log_index)
);
`

type anvilEnv struct {
	anvil   *helpers.AnvilInstance
	emitter *helpers.Emitter
	scanner *scanner.Scanner
	store   *checkpoint.Store
	db      *sqlx.DB
	chainID uint64
}

func setupAnvilScanner(t *testing.T, extraEndpoints ...config.EndpointConfig) *anvilEnv {
	t.Helper()
	helpers.SkipIfAnvilNotAvailable(t)

	ctx := context.Background()
	log := logger.NewNopLogger()

	anvil := helpers.StartAnvil(t)
	emitter := helpers.DeployEmitter(t, anvil)
	chainID := anvil.ChainID.Uint64()

	handler := pkgmaterializer.NewTableHandler("emitter", log,
		[]db.Migration{{ID: "001_emitter.sql", SQL: emitterSQL, Prefix: "emitter"}},
		pkgmaterializer.EventTable{
			Table:  "emitter_events",
			Events: []string{"TestEvent"},
			Mappings: []pkgmaterializer.Mapping{
				{Column: "contract_address", Arg: pkgmaterializer.ArgAddress},
				{Column: "event_id", Arg: "id"},
				{Column: "sender", Arg: "sender"},
				{Column: "data", Arg: "data"},
			},
		},
	)

	database := helpers.NewTestDB(t, "anvil.sqlite", handler.Migrations()...)
	reg := registry.New(database, log, nil)
	mat := materializer.New(abis.NewResolver(""), reg, log, handler)
	store := checkpoint.NewStore(database, log, nil)

	_, err := reg.RegisterStatic(ctx, registry.ContractWatch{
		ChainID:    chainID,
		Address:    emitter.Address,
		Name:       "Emitter",
		ABIRef:     "events:" + helpers.EmitterEventSignature,
		Handler:    "emitter",
		StartBlock: anvil.BlockNumber(t),
	})
	require.NoError(t, err)

	chain := config.ChainConfig{
		Name:      "anvil",
		ChainID:   chainID,
		Finality:  "latest",
		Endpoints: append([]config.EndpointConfig{{URL: anvil.URL, Weight: 1}}, extraEndpoints...),
	}
	transportCfg := config.TransportConfig{}
	transportCfg.ApplyDefaults()

	transport, err := rpc.NewTransportFromConfig(ctx, chain, transportCfg, log)
	require.NoError(t, err)
	t.Cleanup(transport.Close)
	require.NoError(t, transport.VerifyChainID(ctx))

	scanCfg := config.ScannerConfig{BatchSize: 5, MaxReorgDepth: 32}
	scanCfg.ApplyDefaults()

	s, err := scanner.New(chain, scanCfg, scanner.Deps{
		RPC:          transport,
		Registry:     reg,
		Store:        store,
		Detector:     reorg.NewDetector(chainID, transport, store, scanCfg.MaxReorgDepth, log),
		Materializer: mat,
	}, log)
	require.NoError(t, err)

	return &anvilEnv{anvil: anvil, emitter: emitter, scanner: s, store: store, db: database, chainID: chainID}
}

// catchUp steps until the scanner reports it reached the head.
func (e *anvilEnv) catchUp(t *testing.T) {
	t.Helper()

	for range 100 {
		progressed, err := e.scanner.Step(context.Background())
		require.NoError(t, err)
		if !progressed {
			return
		}
	}
	t.Fatal("scanner did not catch up")
}

func (e *anvilEnv) eventIDs(t *testing.T) []string {
	t.Helper()

	var ids []string
	require.NoError(t, e.db.Select(&ids, `SELECT event_id FROM emitter_events ORDER BY block_number, log_index`))

	return ids
}

func (e *anvilEnv) requireCheckpointAtHead(t *testing.T) {
	t.Helper()

	head := e.anvil.BlockNumber(t)
	cp, err := e.store.Load(context.Background(), e.chainID)
	require.NoError(t, err)
	require.NotNil(t, cp)
	require.Equal(t, head, cp.BlockNumber)
	require.Equal(t, e.anvil.BlockHash(t, head), cp.BlockHash)
}

func TestAnvil_IndexesEvents(t *testing.T) {
	env := setupAnvilScanner(t)

	env.emitter.Emit(t, 1, "first")
	env.emitter.EmitMany(t, 2, 3, "batch")
	env.catchUp(t)

	require.Equal(t, []string{"1", "2", "3", "4"}, env.eventIDs(t))
	env.requireCheckpointAtHead(t)

	// a second pass over the same head changes nothing
	env.catchUp(t)
	require.Len(t, env.eventIDs(t), 4)
}

func TestAnvil_Reorg(t *testing.T) {
	env := setupAnvilScanner(t)
	env.anvil.Mine(t, 3)

	forkPoint := env.anvil.BlockNumber(t)
	snapshot := env.anvil.Snapshot(t)

	env.emitter.Emit(t, 1, "original-1")
	env.emitter.Emit(t, 2, "original-2")
	env.catchUp(t)
	require.Equal(t, []string{"1", "2"}, env.eventIDs(t))
	originalHash := env.anvil.BlockHash(t, forkPoint+1)

	// replace both blocks, then extend past the old tip so the scanner sees the fork
	env.anvil.Revert(t, snapshot)
	require.Equal(t, forkPoint, env.anvil.BlockNumber(t))
	env.emitter.Emit(t, 3, "reorg-1")
	env.emitter.Emit(t, 4, "reorg-2")
	env.anvil.Mine(t, 1)
	require.NotEqual(t, originalHash, env.anvil.BlockHash(t, forkPoint+1))

	env.catchUp(t)
	require.Equal(t, []string{"3", "4"}, env.eventIDs(t))
	env.requireCheckpointAtHead(t)
}

func TestAnvil_FailoverToHealthyEndpoint(t *testing.T) {
	// nothing listens on port 1, so every call routed there fails over to anvil
	env := setupAnvilScanner(t, config.EndpointConfig{URL: "http://127.0.0.1:1", Weight: 5})

	env.emitter.Emit(t, 7, "failover")
	env.catchUp(t)

	require.Equal(t, []string{"7"}, env.eventIDs(t))
	env.requireCheckpointAtHead(t)
}
