package feeconfig

import (
	_ "embed"

	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
)

// Name is the handler name used in contract configuration.
const Name = "fee-config"

//go:embed 001_fee_config.sql
var mig001 string

func init() {
	materializer.Register(Name, New)
}

// New creates the fee configuration handler. Every fee or treasury change is one row;
// arguments absent from an event are stored as NULL.
func New(log *logger.Logger) (materializer.Handler, error) {
	return materializer.NewTableHandler(Name, log,
		[]db.Migration{{ID: "001_fee_config.sql", SQL: mig001, Prefix: "fee_config"}},
		materializer.EventTable{
			Table:  "fee_config_changes",
			Events: []string{"FeeSet", "FeeForOperationSet", "TreasurySet"},
			Mappings: []materializer.Mapping{
				{Column: "contract", Arg: materializer.ArgAddress},
				{Column: "kind", Arg: materializer.ArgEventName},
				{Column: "sender", Arg: "sender"},
				{Column: "operation", Arg: "operation"},
				{Column: "fee", Arg: "fee"},
				{Column: "treasury", Arg: "treasury"},
			},
		},
	), nil
}
