package common

const (
	ComponentTransport    = "transport"
	ComponentRegistry     = "registry"
	ComponentCheckpoint   = "checkpoint"
	ComponentScanner      = "scanner"
	ComponentReorg        = "reorg"
	ComponentMaterializer = "materializer"
	ComponentAPI          = "api"
	ComponentMaintenance  = "maintenance"
	ComponentStartup      = "startup"
)

var AllComponents = map[string]struct{}{
	ComponentTransport:    {},
	ComponentRegistry:     {},
	ComponentCheckpoint:   {},
	ComponentScanner:      {},
	ComponentReorg:        {},
	ComponentMaterializer: {},
	ComponentAPI:          {},
	ComponentMaintenance:  {},
	ComponentStartup:      {},
}
