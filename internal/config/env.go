package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	pkgconfig "github.com/goran-ethernal/BuildersIndexer/pkg/config"
)

// EnvReader looks up an environment variable. os.LookupEnv satisfies it.
type EnvReader func(key string) (string, bool)

// OSEnv reads the process environment.
var OSEnv EnvReader = os.LookupEnv

// MapEnv returns an EnvReader over a fixed set of variables.
func MapEnv(vars map[string]string) EnvReader {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

const (
	envDatabaseURL   = "DATABASE_URL"
	envRPCURLPrefix  = "PONDER_RPC_URL_"
	envAddressSuffix = "_ADDRESS"
	envStartSuffix   = "_START_BLOCK"
)

// ApplyEnvOverrides applies the deployment environment on top of the file configuration:
//
//	DATABASE_URL                 persistent store connection string
//	PONDER_RPC_URL_<chainId>     replaces the first endpoint of the chain
//	<NAME>_ADDRESS               contract address (also <NAME>_CONTRACT_ADDRESS)
//	<NAME>_START_BLOCK           contract start block
//
// where <NAME> is the contract name in upper snake case (MorToken -> MOR_TOKEN).
func ApplyEnvOverrides(cfg *pkgconfig.Config, env EnvReader) error {
	if env == nil {
		return nil
	}

	if url, ok := lookupNonEmpty(env, envDatabaseURL); ok {
		cfg.Database.URL = url
	}

	for i := range cfg.Chains {
		chain := &cfg.Chains[i]
		url, ok := lookupNonEmpty(env, envRPCURLPrefix+strconv.FormatUint(chain.ChainID, 10))
		if !ok {
			continue
		}
		if len(chain.Endpoints) == 0 {
			chain.Endpoints = append(chain.Endpoints, pkgconfig.EndpointConfig{Weight: 1})
		}
		chain.Endpoints[0].URL = url
	}

	for i := range cfg.Contracts {
		contract := &cfg.Contracts[i]
		key := common.EnvKey(contract.Name)

		if addr, ok := lookupNonEmpty(env, key+envAddressSuffix); ok {
			contract.Address = addr
		} else if addr, ok := lookupNonEmpty(env, key+"_CONTRACT"+envAddressSuffix); ok {
			contract.Address = addr
		}

		if raw, ok := lookupNonEmpty(env, key+envStartSuffix); ok {
			block, err := common.ParseUint64orHex(&raw)
			if err != nil {
				return fmt.Errorf("%s%s: %w", key, envStartSuffix, err)
			}
			contract.StartBlock = block
		}
	}

	return nil
}

func lookupNonEmpty(env EnvReader, key string) (string, bool) {
	v, ok := env(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)

	return v, v != ""
}
