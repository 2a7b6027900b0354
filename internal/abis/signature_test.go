package abis

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestParseEventSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		want      *EventSignature
		wantErr   bool
	}{
		{
			name:      "canonical form",
			signature: "Transfer(address,address,uint256)",
			want: &EventSignature{
				Raw:  "Transfer(address,address,uint256)",
				Name: "Transfer",
				Params: []EventParam{
					{Name: "param0", Type: "address"},
					{Name: "param1", Type: "address"},
					{Name: "param2", Type: "uint256"},
				},
			},
		},
		{
			name:      "indexed and named",
			signature: "UserDeposited(bytes32 indexed builderPoolId, address indexed user, uint256 amount)",
			want: &EventSignature{
				Raw:  "UserDeposited(bytes32 indexed builderPoolId, address indexed user, uint256 amount)",
				Name: "UserDeposited",
				Params: []EventParam{
					{Name: "builderPoolId", Type: "bytes32", Indexed: true},
					{Name: "user", Type: "address", Indexed: true},
					{Name: "amount", Type: "uint256"},
				},
			},
		},
		{
			name:      "indexed without name",
			signature: "Paused(address indexed)",
			want: &EventSignature{
				Raw:    "Paused(address indexed)",
				Name:   "Paused",
				Params: []EventParam{{Name: "param0", Type: "address", Indexed: true}},
			},
		},
		{
			name:      "no parameters",
			signature: "Initialized()",
			want:      &EventSignature{Raw: "Initialized()", Name: "Initialized"},
		},
		{name: "empty", signature: "", wantErr: true},
		{name: "lower case name", signature: "transfer(address)", wantErr: true},
		{name: "missing paren", signature: "Transfer(address", wantErr: true},
		{name: "unknown type", signature: "Transfer(uint7 value)", wantErr: true},
		{name: "duplicate names", signature: "Transfer(address a, address a)", wantErr: true},
		{name: "bad keyword", signature: "Transfer(address foo bar)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEventSignature(tt.signature)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEventSignature_Event(t *testing.T) {
	sig, err := ParseEventSignature("Transfer(address indexed from, address indexed to, uint256 value)")
	require.NoError(t, err)
	require.Equal(t, "Transfer(address,address,uint256)", sig.CanonicalSignature())

	ev, err := sig.Event()
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), ev.ID)
	require.Len(t, ev.Inputs, 3)
	require.True(t, ev.Inputs[0].Indexed)
	require.False(t, ev.Inputs[2].Indexed)
}

func TestFromSignatures(t *testing.T) {
	parsed, err := FromSignatures([]string{
		"Transfer(address indexed from, address indexed to, uint256 value)",
		"Approval(address indexed owner, address indexed spender, uint256 value)",
	})
	require.NoError(t, err)
	require.Len(t, parsed.Events, 2)

	_, err = FromSignatures([]string{"Transfer(address)", "Transfer(uint256)"})
	require.Error(t, err)
}

func TestIsValidSolidityType(t *testing.T) {
	for _, typ := range []string{"address", "bool", "string", "bytes", "bytes32", "uint", "uint8", "int256", "address[]", "uint256[3]"} {
		require.True(t, isValidSolidityType(typ), typ)
	}
	for _, typ := range []string{"bytes33", "uint7", "tuple", "mapping", "(address,uint256)"} {
		require.False(t, isValidSolidityType(typ), typ)
	}
}

func TestHumanSignature_RoundTrip(t *testing.T) {
	erc20, err := NewResolver(".").Resolve(ERC20)
	require.NoError(t, err)

	transfer := erc20.Events["Transfer"]
	sig := HumanSignature(transfer)
	require.Equal(t, "Transfer(address indexed from, address indexed to, uint256 value)", sig)

	parsed, err := ParseEventSignature(sig)
	require.NoError(t, err)
	ev, err := parsed.Event()
	require.NoError(t, err)
	require.Equal(t, transfer.ID, ev.ID)
}
