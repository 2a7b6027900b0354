package erc20

import (
	_ "embed"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

// Name is the handler name used in contract configuration.
const Name = "erc20"

//go:embed 001_erc20.sql
var mig001 string

func init() {
	materializer.Register(Name, New)
}

// New creates the ERC20 transfer and approval handler.
func New(log *logger.Logger) (materializer.Handler, error) {
	return materializer.NewTableHandler(Name, log,
		[]db.Migration{{ID: "001_erc20.sql", SQL: mig001, Prefix: Name}},
		materializer.EventTable{
			Table:  "erc20_transfers",
			Events: []string{"Transfer"},
			Mappings: []materializer.Mapping{
				{Column: "token", Arg: materializer.ArgAddress},
				{Column: "from_address", Arg: "from"},
				{Column: "to_address", Arg: "to"},
				{Column: "value", Arg: "value"},
			},
		},
		materializer.EventTable{
			Table:  "erc20_approvals",
			Events: []string{"Approval"},
			Mappings: []materializer.Mapping{
				{Column: "token", Arg: materializer.ArgAddress},
				{Column: "owner", Arg: "owner"},
				{Column: "spender", Arg: "spender"},
				{Column: "value", Arg: "value"},
			},
		},
	), nil
}
