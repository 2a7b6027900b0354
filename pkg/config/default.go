package config

// ArbitrumOneChainID is the chain id of Arbitrum One.
const ArbitrumOneChainID = 42161

// Default returns the configuration of the Morpheus Builders deployment on Arbitrum One.
// Every contract address and start block can be overridden through the environment.
func Default() *Config {
	cfg := &Config{
		Chains: []ChainConfig{
			{
				Name:    "arbitrumOne",
				ChainID: ArbitrumOneChainID,
				Endpoints: []EndpointConfig{
					{URL: "https://arb1.arbitrum.io/rpc", Weight: 1},
					{URL: "https://arbitrum-one-rpc.publicnode.com", Weight: 1, RequestsPerSecond: 25}, //nolint:mnd
				},
				Finality: "latest",
			},
		},
		Contracts: []ContractConfig{
			{
				Name:       "Builders",
				Chain:      "arbitrumOne",
				Address:    "0xC0eD68f163d44B6e9985F0041fDf6f67c6BCFF3f",
				ABI:        "builders",
				Handler:    "builders",
				StartBlock: 286160080, //nolint:mnd
			},
			{
				Name:       "MorToken",
				Chain:      "arbitrumOne",
				Address:    "0x7431ADA8A591C955A994A21710752ef9b882b8e3",
				ABI:        "erc20",
				Handler:    "erc20",
				StartBlock: 286160080, //nolint:mnd
			},
			{
				Name:       "BuildersTreasury",
				Chain:      "arbitrumOne",
				Address:    "0xCBE3d2c3AdE62cf7aa396e8cA93D2A8bff96E257",
				ABI:        "builders",
				Handler:    "builders",
				StartBlock: 286160108, //nolint:mnd
			},
			{
				Name:       "FeeConfig",
				Chain:      "arbitrumOne",
				Address:    "0xc03d87085E254695754a74D2CF76579e167Eb895",
				ABI:        "fee-config",
				Handler:    "fee-config",
				StartBlock: 286160130, //nolint:mnd
			},
		},
		API: &APIConfig{Enabled: true},
	}

	cfg.ApplyDefaults()

	return cfg
}
