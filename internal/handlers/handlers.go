// Package handlers links every built-in materializer handler into the binary.
package handlers

import (
	_ "github.com/goran-ethernal/BuildersIndexer/internal/handlers/builders"  // builders pools
	_ "github.com/goran-ethernal/BuildersIndexer/internal/handlers/erc20"     // token transfers
	_ "github.com/goran-ethernal/BuildersIndexer/internal/handlers/feeconfig" // fee settings
)
