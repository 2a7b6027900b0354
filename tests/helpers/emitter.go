package helpers

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// EmitterEventSignature is the event emitted by the emitter contract.
const EmitterEventSignature = "TestEvent(uint256 indexed id, address indexed sender, string data)"

const emitterABI = `[
  {"type":"function","name":"emitEvent","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"name":"id","type":"uint256"},{"name":"data","type":"string"}]},
  {"type":"function","name":"emitMultipleEvents","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"name":"startId","type":"uint256"},{"name":"count","type":"uint256"},{"name":"data","type":"string"}]},
  {"type":"event","name":"TestEvent","anonymous":false,
   "inputs":[{"indexed":true,"name":"id","type":"uint256"},{"indexed":true,"name":"sender","type":"address"},
             {"indexed":false,"name":"data","type":"string"}]}
]`

const emitterBin = "0x608060405234801561001057600080fd5b5061038a806100206000396000f3fe608060405234801561001057600080fd5b50600436106100365760003560e01c806352925e461461003b5780635447e6a014610100575b600080fd5b6100fe6004803603604081101561005157600080fd5b81019080803590602001909291908035906020019064010000000081111561007857600080fd5b82018360208201111561008a57600080fd5b803590602001918460018302840111640100000000831117156100ac57600080fd5b91908080601f016020809104026020016040519081016040528093929190818152602001838380828437600081840152601f19601f8201169050808301925050505050505091929192905050506101cf565b005b6101cd6004803603606081101561011657600080fd5b8101908080359060200190929190803590602001909291908035906020019064010000000081111561014757600080fd5b82018360208201111561015957600080fd5b8035906020019184600183028401116401000000008311171561017b57600080fd5b91908080601f016020809104026020016040519081016040528093929190818152602001838380828437600081840152601f19601f820116905080830192505050505050509192919290505050610287565b005b3373ffffffffffffffffffffffffffffffffffffffff16827f09f09c482a293eae240f90f0a4c7ae23ba44da9a1c7965aa0a3e30472cbca237836040518080602001828103825283818151815260200191508051906020019080838360005b8381101561024957808201518184015260208101905061022e565b50505050905090810190601f1680156102765780820380516001836020036101000a031916815260200191505b509250505060405180910390a35050565b60008090505b82811015610358573373ffffffffffffffffffffffffffffffffffffffff168185017f09f09c482a293eae240f90f0a4c7ae23ba44da9a1c7965aa0a3e30472cbca237846040518080602001828103825283818151815260200191508051906020019080838360005b838110156103115780820151818401526020810190506102f6565b50505050905090810190601f16801561033e5780820380516001836020036101000a031916815260200191505b509250505060405180910390a3808060010191505061028d565b5050505056fea165627a7a723058203eeb6001009d4cc5b3da2241b5bf6732bc46719768401a85afc7772c2eeadb540029" //nolint:lll

// Emitter is a deployed contract emitting TestEvent on demand.
type Emitter struct {
	Address  common.Address
	contract *bind.BoundContract
	anvil    *AnvilInstance
}

// DeployEmitter deploys the emitter contract and waits for it to be mined.
func DeployEmitter(t *testing.T, anvil *AnvilInstance) *Emitter {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(emitterABI))
	require.NoError(t, err)

	addr, tx, contract, err := bind.DeployContract(anvil.Signer, parsed, common.FromHex(emitterBin), anvil.Client)
	require.NoError(t, err, "failed to deploy emitter")
	anvil.WaitMined(t, tx)

	return &Emitter{Address: addr, contract: contract, anvil: anvil}
}

// Emit emits one TestEvent and returns the receipt of its transaction.
func (e *Emitter) Emit(t *testing.T, id int64, data string) *types.Receipt {
	t.Helper()

	tx, err := e.contract.Transact(e.anvil.Signer, "emitEvent", big.NewInt(id), data)
	require.NoError(t, err, "failed to emit event %d", id)

	return e.anvil.WaitMined(t, tx)
}

// EmitMany emits count events with consecutive ids in a single transaction.
func (e *Emitter) EmitMany(t *testing.T, startID, count int64, data string) *types.Receipt {
	t.Helper()

	tx, err := e.contract.Transact(e.anvil.Signer, "emitMultipleEvents", big.NewInt(startID), big.NewInt(count), data)
	require.NoError(t, err, "failed to emit %d events", count)

	return e.anvil.WaitMined(t, tx)
}
