package helpers

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

const (
	// first prefunded account of anvil
	anvilPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	anvilStartTimeout = 10 * time.Second
	receiptTimeout    = 10 * time.Second
	pollInterval      = 50 * time.Millisecond
)

// AnvilInstance is a local anvil node mining one block per transaction.
type AnvilInstance struct {
	cmd     *exec.Cmd
	URL     string
	Client  *ethclient.Client
	Signer  *bind.TransactOpts
	ChainID *big.Int
	key     *ecdsa.PrivateKey
}

// SkipIfAnvilNotAvailable skips the test if anvil is not in PATH.
func SkipIfAnvilNotAvailable(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("anvil"); err != nil {
		t.Skip("anvil not found in PATH, skipping integration test")
	}
}

// StartAnvil starts anvil on a free port and waits until it answers RPC calls.
func StartAnvil(t *testing.T) *AnvilInstance {
	t.Helper()

	port := freePort(t)
	url := fmt.Sprintf("http://127.0.0.1:%d", port)

	cmd := exec.Command("anvil", "--port", fmt.Sprint(port), "--silent")
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start(), "failed to start anvil")

	a := &AnvilInstance{cmd: cmd, URL: url}
	t.Cleanup(a.Stop)

	client, err := ethclient.Dial(url)
	require.NoError(t, err, "failed to dial anvil")
	a.Client = client

	require.Eventually(t, func() bool {
		id, err := client.ChainID(t.Context())
		if err != nil {
			return false
		}
		a.ChainID = id
		return true
	}, anvilStartTimeout, pollInterval, "anvil did not become ready")

	a.key, err = crypto.HexToECDSA(anvilPrivateKey)
	require.NoError(t, err)

	a.Signer, err = bind.NewKeyedTransactorWithChainID(a.key, a.ChainID)
	require.NoError(t, err)

	return a
}

// Stop kills the node.
func (a *AnvilInstance) Stop() {
	if a.Client != nil {
		a.Client.Close()
	}
	if a.cmd != nil && a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
		_ = a.cmd.Wait()
	}
}

// WaitMined waits for the receipt of tx.
func (a *AnvilInstance) WaitMined(t *testing.T, tx *types.Transaction) *types.Receipt {
	t.Helper()

	var receipt *types.Receipt
	require.Eventually(t, func() bool {
		r, err := a.Client.TransactionReceipt(t.Context(), tx.Hash())
		if err != nil {
			return false
		}
		receipt = r
		return true
	}, receiptTimeout, pollInterval, "transaction %s was not mined", tx.Hash().Hex())

	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status, "transaction %s reverted", tx.Hash().Hex())
	return receipt
}

// Snapshot records the current chain state.
func (a *AnvilInstance) Snapshot(t *testing.T) string {
	t.Helper()

	var id string
	require.NoError(t, a.Client.Client().Call(&id, "evm_snapshot"), "failed to create snapshot")

	return id
}

// Revert drops every block mined after the snapshot. Transactions sent afterwards
// build an alternative chain at the same heights, which is a reorganization for
// anyone who has seen the dropped blocks.
func (a *AnvilInstance) Revert(t *testing.T, snapshotID string) {
	t.Helper()

	var ok bool
	require.NoError(t, a.Client.Client().Call(&ok, "evm_revert", snapshotID), "failed to revert snapshot")
	require.True(t, ok, "snapshot revert returned false")
}

// Mine mines n empty blocks.
func (a *AnvilInstance) Mine(t *testing.T, n int) {
	t.Helper()

	for range n {
		require.NoError(t, a.Client.Client().Call(nil, "evm_mine"), "failed to mine block")
	}
}

// BlockNumber returns the current head.
func (a *AnvilInstance) BlockNumber(t *testing.T) uint64 {
	t.Helper()

	n, err := a.Client.BlockNumber(t.Context())
	require.NoError(t, err)

	return n
}

// BlockHash returns the hash of block n.
func (a *AnvilInstance) BlockHash(t *testing.T, n uint64) common.Hash {
	t.Helper()

	header, err := a.Client.HeaderByNumber(t.Context(), new(big.Int).SetUint64(n))
	require.NoError(t, err)

	return header.Hash()
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to get free port")
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}
