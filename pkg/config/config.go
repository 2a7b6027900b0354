package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	icommon "github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	itypes "github.com/goran-ethernal/BuildersIndexer/internal/types"
)

// Config represents the complete configuration for the indexer.
type Config struct {
	// Chains lists the chains to index and the RPC endpoints serving each of them
	Chains []ChainConfig `yaml:"chains" json:"chains" toml:"chains"`

	// Contracts lists the statically configured contracts to watch
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Transport configures endpoint selection, failover and backoff
	Transport TransportConfig `yaml:"transport" json:"transport" toml:"transport"`

	// Scanner configures the block range scanner
	Scanner ScannerConfig `yaml:"scanner" json:"scanner" toml:"scanner"`

	// Database configures the materialized store
	Database DatabaseConfig `yaml:"database" json:"database" toml:"database"`

	// API configures the serving layer
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig represents a single chain and its RPC endpoints.
type ChainConfig struct {
	// Name is the chain alias referenced by contracts (e.g. "arbitrumOne")
	Name string `yaml:"name" json:"name" toml:"name"`

	// ChainID is the EVM chain id
	ChainID uint64 `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// Endpoints is the ordered list of RPC endpoints for this chain
	Endpoints []EndpointConfig `yaml:"endpoints" json:"endpoints" toml:"endpoints"`

	// Finality specifies the head used for scanning: "finalized", "safe", or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// Confirmations is subtracted from the head when Finality is "latest"
	Confirmations uint64 `yaml:"confirmations" json:"confirmations" toml:"confirmations"`
}

// EndpointConfig represents a single RPC endpoint.
type EndpointConfig struct {
	// URL is the JSON-RPC endpoint URL
	URL string `yaml:"url" json:"url" toml:"url"`

	// Weight is the relative share of requests sent to this endpoint
	Weight int `yaml:"weight" json:"weight" toml:"weight"`

	// RequestsPerSecond limits the request rate against this endpoint (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" toml:"requests_per_second,omitempty"` //nolint:lll

	// Burst is the token bucket size (defaults to 1 when rate limited)
	Burst int `yaml:"burst,omitempty" json:"burst,omitempty" toml:"burst,omitempty"`
}

// TransportConfig configures the multi-endpoint RPC transport.
type TransportConfig struct {
	// CallTimeout bounds every single RPC attempt
	CallTimeout icommon.Duration `yaml:"call_timeout" json:"call_timeout" toml:"call_timeout"`

	// MaxSwitches is the maximum number of endpoint attempts for one call (0 = 2x endpoints)
	MaxSwitches int `yaml:"max_switches" json:"max_switches" toml:"max_switches"`

	// InitialBackoff is the first backoff window of an unhealthy endpoint
	InitialBackoff icommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff caps the exponential backoff window
	MaxBackoff icommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// MaxConcurrentPerEndpoint caps in-flight requests per endpoint
	MaxConcurrentPerEndpoint int `yaml:"max_concurrent_per_endpoint" json:"max_concurrent_per_endpoint" toml:"max_concurrent_per_endpoint"` //nolint:lll
}

// ApplyDefaults sets default values for transport configuration.
func (t *TransportConfig) ApplyDefaults() {
	if t.CallTimeout.Duration == 0 {
		t.CallTimeout = icommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if t.InitialBackoff.Duration == 0 {
		t.InitialBackoff = icommon.NewDuration(1 * time.Second)
	}
	if t.MaxBackoff.Duration == 0 {
		t.MaxBackoff = icommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if t.MaxConcurrentPerEndpoint == 0 {
		t.MaxConcurrentPerEndpoint = 4
	}
}

// ScannerConfig configures the block range scanner and its adaptive batching.
type ScannerConfig struct {
	// BatchSize is the initial number of blocks per range
	BatchSize uint64 `yaml:"batch_size" json:"batch_size" toml:"batch_size"`

	// MinBatchSize is the floor for batch halving
	MinBatchSize uint64 `yaml:"min_batch_size" json:"min_batch_size" toml:"min_batch_size"`

	// MaxBatchSize caps batch growth
	MaxBatchSize uint64 `yaml:"max_batch_size" json:"max_batch_size" toml:"max_batch_size"`

	// BatchStep is the additive increase applied after GrowAfter clean ranges
	BatchStep uint64 `yaml:"batch_step" json:"batch_step" toml:"batch_step"`

	// GrowAfter is the number of consecutive clean ranges before growing the batch
	GrowAfter int `yaml:"grow_after" json:"grow_after" toml:"grow_after"`

	// ShrinkAfter is the number of consecutive timeout or rate-limit outcomes before halving the batch
	ShrinkAfter int `yaml:"shrink_after" json:"shrink_after" toml:"shrink_after"`

	// MaxReorgDepth bounds the ancestor search on a reorganization
	MaxReorgDepth uint64 `yaml:"max_reorg_depth" json:"max_reorg_depth" toml:"max_reorg_depth"`

	// PollInterval is how long to wait when the scanner has caught up with the head
	PollInterval icommon.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// ExhaustedCooldown is how long a chain pauses after all its endpoints were exhausted
	ExhaustedCooldown icommon.Duration `yaml:"exhausted_cooldown" json:"exhausted_cooldown" toml:"exhausted_cooldown"`
}

// ApplyDefaults sets default values for scanner configuration.
func (s *ScannerConfig) ApplyDefaults() {
	if s.BatchSize == 0 {
		s.BatchSize = 1000
	}
	if s.MinBatchSize == 0 {
		s.MinBatchSize = 1
	}
	if s.MaxBatchSize == 0 {
		s.MaxBatchSize = 10000
	}
	if s.BatchStep == 0 {
		s.BatchStep = 250
	}
	if s.GrowAfter == 0 {
		s.GrowAfter = 5
	}
	if s.ShrinkAfter == 0 {
		s.ShrinkAfter = 2
	}
	if s.MaxReorgDepth == 0 {
		s.MaxReorgDepth = 256
	}
	if s.PollInterval.Duration == 0 {
		s.PollInterval = icommon.NewDuration(2 * time.Second) //nolint:mnd
	}
	if s.ExhaustedCooldown.Duration == 0 {
		s.ExhaustedCooldown = icommon.NewDuration(30 * time.Second) //nolint:mnd
	}
}

// Validate checks if the scanner configuration is valid.
func (s *ScannerConfig) Validate() error {
	if s.MinBatchSize > s.MaxBatchSize {
		return fmt.Errorf("min_batch_size (%d) must not exceed max_batch_size (%d)", s.MinBatchSize, s.MaxBatchSize)
	}
	if s.BatchSize < s.MinBatchSize || s.BatchSize > s.MaxBatchSize {
		return fmt.Errorf("batch_size (%d) must be within [%d, %d]", s.BatchSize, s.MinBatchSize, s.MaxBatchSize)
	}

	return nil
}

// DatabaseConfig represents the materialized store configuration.
// When URL is set a PostgreSQL database is used, otherwise a SQLite file at Path.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (persistent store)
	URL string `yaml:"url,omitempty" json:"url,omitempty" toml:"url,omitempty"`

	// Path is the file path to the SQLite database (ephemeral local fallback)
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the SQLite synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// Maintenance contains optional SQLite maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`
}

// IsPersistent reports whether a persistent (PostgreSQL) store is configured.
func (d *DatabaseConfig) IsPersistent() bool {
	return strings.TrimSpace(d.URL) != ""
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.Path == "" {
		d.Path = "./.data/indexer.sqlite"
	}
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 10
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	if d.Maintenance != nil {
		d.Maintenance.ApplyDefaults()
	}
}

// Validate checks if the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}
	if d.Maintenance != nil {
		if err := d.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	return nil
}

// MaintenanceConfig configures SQLite maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval icommon.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = icommon.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// ContractConfig represents a statically configured contract.
type ContractConfig struct {
	// Name identifies the contract (e.g. "Builders") and prefixes its env overrides
	Name string `yaml:"name" json:"name" toml:"name"`

	// Chain is the name of the chain the contract lives on
	Chain string `yaml:"chain" json:"chain" toml:"chain"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`

	// ABI is a built-in ABI name (builders, erc20, fee-config, subnet-factory, l2-factory)
	// or a path to an ABI JSON file
	ABI string `yaml:"abi,omitempty" json:"abi,omitempty" toml:"abi,omitempty"`

	// Events is an optional list of event signatures used instead of an ABI
	// Format: "Transfer(address indexed from, address indexed to, uint256 value)"
	Events []string `yaml:"events,omitempty" json:"events,omitempty" toml:"events,omitempty"`

	// Handler is the name of the materializer handler for decoded events (optional)
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty" toml:"handler,omitempty"`

	// StartBlock is the block number to start indexing from
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// Factory turns this contract into a factory whose children are watched too
	Factory *FactoryConfig `yaml:"factory,omitempty" json:"factory,omitempty" toml:"factory,omitempty"`
}

// ABIRef returns the reference used to resolve the contract ABI.
// Event lists are encoded inline ("events:Sig1;Sig2") so the reference stays
// resolvable from the stored watch alone.
func (c *ContractConfig) ABIRef() string {
	if c.ABI != "" {
		return c.ABI
	}

	return EventsABIPrefix + strings.Join(c.Events, ";")
}

// EventsABIPrefix marks an ABI reference made of event signatures.
const EventsABIPrefix = "events:"

// FactoryConfig describes how child contracts are discovered from factory events.
type FactoryConfig struct {
	// Event is the name of the child creation event (e.g. "SubnetCreated")
	Event string `yaml:"event" json:"event" toml:"event"`

	// ChildAddressArg is the event argument carrying the child address
	ChildAddressArg string `yaml:"child_address_arg" json:"child_address_arg" toml:"child_address_arg"`

	// ChildABI is the ABI reference used for discovered children
	ChildABI string `yaml:"child_abi" json:"child_abi" toml:"child_abi"`

	// ChildHandler is the materializer handler for children events (optional)
	ChildHandler string `yaml:"child_handler,omitempty" json:"child_handler,omitempty" toml:"child_handler,omitempty"`
}

// APIConfig configures the HTTP serving layer.
type APIConfig struct {
	// Enabled controls whether the API server is started
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout icommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout icommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout icommon.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// HealthTimeout bounds the database probe of the liveness endpoint
	HealthTimeout icommon.Duration `yaml:"health_timeout" json:"health_timeout" toml:"health_timeout"`

	// MaxSQLRows caps the number of rows returned by the SQL endpoint
	MaxSQLRows int `yaml:"max_sql_rows" json:"max_sql_rows" toml:"max_sql_rows"`

	// CORS configures cross-origin requests
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":42069"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = icommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = icommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = icommon.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.HealthTimeout.Duration == 0 {
		a.HealthTimeout = icommon.NewDuration(5 * time.Second) //nolint:mnd
	}
	if a.MaxSQLRows == 0 {
		a.MaxSQLRows = 1000
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components: transport, registry, checkpoint, scanner, reorg,
	// materializer, api, maintenance, startup
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := icommon.AllComponents[icommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return icommon.ToLowerWithTrim(level)
	}
	return icommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return icommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ChainByName returns the chain with the given name.
func (c *Config) ChainByName(name string) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].Name == name {
			return &c.Chains[i], true
		}
	}

	return nil, false
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	for i := range c.Chains {
		if c.Chains[i].Finality == "" {
			c.Chains[i].Finality = string(itypes.FinalityLatest)
		}
		for j := range c.Chains[i].Endpoints {
			ep := &c.Chains[i].Endpoints[j]
			if ep.Weight == 0 {
				ep.Weight = 1
			}
			if ep.RequestsPerSecond > 0 && ep.Burst == 0 {
				ep.Burst = 1
			}
		}
	}

	c.Transport.ApplyDefaults()
	c.Scanner.ApplyDefaults()
	c.Database.ApplyDefaults()

	if c.API != nil {
		c.API.ApplyDefaults()
	}

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	chainNames := make(map[string]bool)
	for i, chain := range c.Chains {
		if chain.Name == "" {
			return fmt.Errorf("chains[%d]: name is required", i)
		}
		if chainNames[chain.Name] {
			return fmt.Errorf("chains[%d]: duplicate chain name '%s'", i, chain.Name)
		}
		chainNames[chain.Name] = true

		if chain.ChainID == 0 {
			return fmt.Errorf("chains[%d] (%s): chain_id is required", i, chain.Name)
		}
		if _, err := itypes.ParseFinality(chain.Finality); err != nil {
			return fmt.Errorf("chains[%d] (%s): %w", i, chain.Name, err)
		}
		if len(chain.Endpoints) == 0 {
			return fmt.Errorf("chains[%d] (%s): at least one endpoint must be configured", i, chain.Name)
		}
		for j, ep := range chain.Endpoints {
			if ep.URL == "" {
				return fmt.Errorf("chains[%d] (%s), endpoints[%d]: url is required", i, chain.Name, j)
			}
			if ep.Weight < 0 || ep.RequestsPerSecond < 0 {
				return fmt.Errorf("chains[%d] (%s), endpoints[%d]: weight and requests_per_second must not be negative",
					i, chain.Name, j)
			}
		}
	}

	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	contractNames := make(map[string]bool)
	for i, contract := range c.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("contracts[%d]: name is required", i)
		}
		if contractNames[contract.Name] {
			return fmt.Errorf("contracts[%d]: duplicate contract name '%s'", i, contract.Name)
		}
		contractNames[contract.Name] = true

		if !chainNames[contract.Chain] {
			return fmt.Errorf("contracts[%d] (%s): unknown chain '%s'", i, contract.Name, contract.Chain)
		}
		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("contracts[%d] (%s): invalid address '%s'", i, contract.Name, contract.Address)
		}
		if contract.ABI == "" && len(contract.Events) == 0 {
			return fmt.Errorf("contracts[%d] (%s): either abi or events must be configured", i, contract.Name)
		}
		if f := contract.Factory; f != nil {
			if f.Event == "" || f.ChildAddressArg == "" || f.ChildABI == "" {
				return fmt.Errorf("contracts[%d] (%s): factory requires event, child_address_arg and child_abi",
					i, contract.Name)
			}
		}
	}

	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
