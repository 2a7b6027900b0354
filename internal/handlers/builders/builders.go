// Package builders materializes the Builders pool contracts: project creation,
// user stakes, admin claims and paid fees.
package builders

import (
	_ "embed"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

// Name is the handler name used in contract configuration.
const Name = "builders"

//go:embed 001_builders.sql
var mig001 string

func init() {
	materializer.Register(Name, New)
}

// New creates the builders handler.
func New(log *logger.Logger) (materializer.Handler, error) {
	return materializer.NewTableHandler(Name, log,
		[]db.Migration{{ID: "001_builders.sql", SQL: mig001, Prefix: Name}},
		materializer.EventTable{
			Table:  "builders_projects",
			Events: []string{"BuilderPoolCreated"},
			Mappings: []materializer.Mapping{
				{Column: "contract", Arg: materializer.ArgAddress},
				{Column: "builder_pool_id", Arg: "builderPoolId"},
				{Column: "name", Arg: "name"},
				{Column: "admin", Arg: "admin"},
				{Column: "minimal_deposit", Arg: "minimalDeposit"},
				{Column: "claim_lock_end", Arg: "claimLockEnd"},
			},
		},
		materializer.EventTable{
			Table:  "builders_stakes",
			Events: []string{"UserDeposited", "UserWithdrawn"},
			Mappings: []materializer.Mapping{
				{Column: "contract", Arg: materializer.ArgAddress},
				{Column: "kind", Arg: materializer.ArgEventName},
				{Column: "builder_pool_id", Arg: "builderPoolId"},
				{Column: "user_address", Arg: "user"},
				{Column: "amount", Arg: "amount"},
			},
		},
		materializer.EventTable{
			Table:  "builders_claims",
			Events: []string{"AdminClaimed"},
			Mappings: []materializer.Mapping{
				{Column: "contract", Arg: materializer.ArgAddress},
				{Column: "builder_pool_id", Arg: "builderPoolId"},
				{Column: "receiver", Arg: "receiver"},
				{Column: "amount", Arg: "amount"},
			},
		},
		materializer.EventTable{
			Table:  "builders_fees",
			Events: []string{"FeePaid"},
			Mappings: []materializer.Mapping{
				{Column: "contract", Arg: materializer.ArgAddress},
				{Column: "user_address", Arg: "user"},
				{Column: "operation", Arg: "operation"},
				{Column: "amount", Arg: "amount"},
				{Column: "treasury", Arg: "treasury"},
			},
		},
	), nil
}
