package materializer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArg(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nil big int", (*big.Int)(nil), nil},
		{"uint256", huge, huge.String()},
		{"address lowercased", common.HexToAddress("0x7431ADA8A591C955A994A21710752ef9b882b8e3"),
			"0x7431ada8a591c955a994a21710752ef9b882b8e3"},
		{"hash", common.HexToHash("0x01"), "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"bytes", []byte{0xde, 0xad}, "0xdead"},
		{"bytes4", [4]byte{0xca, 0xfe, 0xba, 0xbe}, "0xcafebabe"},
		{"small int", uint8(7), "7"},
		{"negative int", int64(-3), "-3"},
		{"bool", true, true},
		{"string", "hello", "hello"},
		{"list", []*big.Int{big.NewInt(1), big.NewInt(2)}, []any{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeArg(tt.in))
		})
	}
}

func TestNormalizeArgs(t *testing.T) {
	out := NormalizeArgs(map[string]any{"value": big.NewInt(10), "flag": false})
	require.Equal(t, map[string]any{"value": "10", "flag": false}, out)
}

func TestColumnValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil stays NULL", nil, nil},
		{"string", "0xabc", "0xabc"},
		{"bool", true, "true"},
		{"list as json", []any{"1", "0xab"}, `["1","0xab"]`},
		{"other", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ColumnValue(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
