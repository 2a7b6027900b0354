package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"from", "from_address"},
		{"to", "to_address"},
		{"previousOwner", "previous_owner_address"},
		{"tokenId", "token_id"},
		{"value", "value"},
		{"index", "arg_index"},
		{"blockNumber", "arg_block_number"},
		{"param0", "param0"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnName(tt.arg))
		})
	}
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "erc721_transfers", TableName("erc721", "Transfer"))
	assert.Equal(t, "pools_pool_created_events", TableName("pools", "PoolCreatedEvent"))
	assert.Equal(t, "vault_deposit_histories", TableName("vault", "DepositHistory"))
	assert.Equal(t, "nft_nft_minteds", TableName("nft", "NFTMinted"))
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Transfer":             "transfer",
		"tokenId":              "token_id",
		"NFTMinted":            "nft_minted",
		"OwnershipTransferred": "ownership_transferred",
		"already_snake":        "already_snake",
		"value2":               "value2",
	}

	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}

func TestPluralize(t *testing.T) {
	tests := map[string]string{
		"transfer": "transfers",
		"box":      "boxes",
		"batch":    "batches",
		"policy":   "policies",
		"day":      "days",
		"status":   "statuses",
	}

	for in, want := range tests {
		assert.Equal(t, want, Pluralize(in), in)
	}
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "feeconfig", PackageName("fee_config"))
	assert.Equal(t, "erc721", PackageName("erc721"))
}
