package db

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

type discoveredChild struct {
	ID      int64           `meddler:"id,pk"`
	Address common.Address  `meddler:"address,address"`
	Factory *common.Address `meddler:"factory,address"`
	TxHash  common.Hash     `meddler:"tx_hash,hash"`
	Parent  *common.Hash    `meddler:"parent,hash"`
}

func TestHexMeddlers_RoundTrip(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "meddler.sqlite")}
	cfg.ApplyDefaults()

	store, err := NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Exec(`CREATE TABLE children (
		id INTEGER PRIMARY KEY, address TEXT NOT NULL, factory TEXT, tx_hash TEXT NOT NULL, parent TEXT)`)
	require.NoError(t, err)

	factory := common.HexToAddress("0x37B94Bd80b6012FB214bB6790B31A5C40d6Eb7A5")
	withFactory := &discoveredChild{
		Address: common.HexToAddress("0xC0eD68f163d44B6e9985F0041fDf6f67c6BCFF3f"),
		Factory: &factory,
		TxHash:  common.HexToHash("0xabc1"),
	}
	static := &discoveredChild{
		Address: common.HexToAddress("0x092bAaDB7DEf4C3981454dD9c0A0D7FF07bCFc86"),
		TxHash:  common.HexToHash("0xabc2"),
	}
	require.NoError(t, meddler.Insert(store, "children", withFactory))
	require.NoError(t, meddler.Insert(store, "children", static))

	var stored string
	require.NoError(t, store.Get(&stored, `SELECT address FROM children WHERE id = ?`, withFactory.ID))
	require.Equal(t, "0xc0ed68f163d44b6e9985f0041fdf6f67c6bcff3f", stored)

	var got []*discoveredChild
	require.NoError(t, meddler.QueryAll(store, &got, `SELECT * FROM children ORDER BY id`))
	require.Len(t, got, 2)

	require.Equal(t, withFactory.Address, got[0].Address)
	require.Equal(t, &factory, got[0].Factory)
	require.Equal(t, withFactory.TxHash, got[0].TxHash)
	require.Nil(t, got[0].Parent)

	require.Nil(t, got[1].Factory)
	require.Equal(t, static.Address, got[1].Address)
}

func TestHexMeddler_RejectsWrongType(t *testing.T) {
	m := hexMeddler[common.Hash]{decode: common.HexToHash, encode: common.Hash.Hex}

	_, err := m.PreWrite("0xabc")
	require.Error(t, err)

	target, err := m.PreRead(nil)
	require.NoError(t, err)
	var wrong string
	require.Error(t, m.PostRead(&wrong, target))
}
