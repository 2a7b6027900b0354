package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/goran-ethernal/BuildersIndexer/internal/abis"
	"github.com/goran-ethernal/BuildersIndexer/internal/checkpoint"
	"github.com/goran-ethernal/BuildersIndexer/internal/common"
	"github.com/goran-ethernal/BuildersIndexer/internal/config"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
	_ "github.com/goran-ethernal/BuildersIndexer/internal/handlers" // built-in handlers
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/goran-ethernal/BuildersIndexer/internal/materializer"
	"github.com/goran-ethernal/BuildersIndexer/internal/metrics"
	"github.com/goran-ethernal/BuildersIndexer/internal/migrations"
	"github.com/goran-ethernal/BuildersIndexer/internal/query"
	"github.com/goran-ethernal/BuildersIndexer/internal/registry"
	"github.com/goran-ethernal/BuildersIndexer/internal/reorg"
	"github.com/goran-ethernal/BuildersIndexer/internal/rpc"
	"github.com/goran-ethernal/BuildersIndexer/internal/scanner"
	"github.com/goran-ethernal/BuildersIndexer/pkg/api"
	pkgconfig "github.com/goran-ethernal/BuildersIndexer/pkg/config"
	pkgmaterializer "github.com/goran-ethernal/BuildersIndexer/pkg/materializer"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║        BuildersIndexer v%s             ║
║    Multi-chain EVM Event Indexer          ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "BuildersIndexer - multi-chain EVM event indexer",
	Long: `BuildersIndexer scans EVM chains for the events of configured and factory-deployed
contracts, survives chain reorganizations, materializes decoded events into SQL tables
and serves them over REST, SQL and GraphQL.`,
	Version: version,
	RunE:    runIndexer,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available handlers and built-in ABIs",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available handlers:")
		names := pkgmaterializer.ListRegistered()
		if len(names) == 0 {
			fmt.Println("  (no handlers registered)")
		}
		for _, n := range names {
			fmt.Printf("  - %s\n", n)
		}

		fmt.Println("Built-in ABIs:")
		for _, n := range abis.BuiltinNames() {
			fmt.Printf("  - %s\n", n)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexer (same as the root command)",
	RunE:  runIndexer,
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List the contracts watched by the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, config.OSEnv)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCHAIN\tADDRESS\tABI\tHANDLER\tSTART BLOCK\tFACTORY EVENT")
		for _, c := range cfg.Contracts {
			factoryEvent := "-"
			if c.Factory != nil {
				factoryEvent = c.Factory.Event
			}
			handler := c.Handler
			if handler == "" {
				handler = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				c.Name, c.Chain, c.Address, c.ABIRef(), handler, c.StartBlock, factoryEvent)
		}

		return w.Flush()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, config.OSEnv)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		fmt.Printf("configuration is valid: %d chain(s), %d contract(s)\n", len(cfg.Chains), len(cfg.Contracts))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(jsonschema.Reflect(&pkgconfig.Config{}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (.yaml, .json or .toml); the built-in configuration is used when empty")
	rootCmd.AddCommand(runCmd, listCmd, contractsCmd, validateCmd, schemaCmd)
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	// Load configuration
	cfg, err := config.Load(configPath, config.OSEnv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Logging == nil {
		cfg.Logging = &pkgconfig.LoggingConfig{}
		cfg.Logging.ApplyDefaults()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLoggerFromConfig(common.ComponentStartup, cfg.Logging)
	componentLog := func(component string) *logger.Logger {
		return logger.NewComponentLoggerFromConfig(component, cfg.Logging)
	}

	// Refuse to run production on an ephemeral store
	if _, err := config.ValidateStorage(config.OSEnv, cfg.Database.IsPersistent(), log); err != nil {
		return err
	}

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	// Handlers and materializer
	handlers, err := pkgmaterializer.CreateAll(componentLog(common.ComponentMaterializer))
	if err != nil {
		return fmt.Errorf("failed to create handlers: %w", err)
	}

	baseDir := "."
	if configPath != "" {
		baseDir = filepath.Dir(configPath)
	}
	resolver := abis.NewResolver(baseDir)

	maintenance := db.NewMaintenanceCoordinator(
		cfg.Database.Path,
		database,
		cfg.Database.Maintenance,
		componentLog(common.ComponentMaintenance),
	)

	reg := registry.New(database, componentLog(common.ComponentRegistry), maintenance)
	mat := materializer.New(resolver, reg, componentLog(common.ComponentMaterializer), handlers...)

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(log, database, mat.Migrations()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := maintenance.Stop(); err != nil {
			log.Warnf("Failed to stop database maintenance: %v", err)
		}
	}()

	if err := reg.RegisterConfigured(ctx, cfg, resolver); err != nil {
		return fmt.Errorf("failed to register contracts: %w", err)
	}

	store := checkpoint.NewStore(database, componentLog(common.ComponentCheckpoint), maintenance)

	// One transport, detector and scanner per chain
	scanners := make([]*scanner.Scanner, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		transport, err := rpc.NewTransportFromConfig(ctx, chain, cfg.Transport, componentLog(common.ComponentTransport))
		if err != nil {
			return fmt.Errorf("failed to connect to chain %s: %w", chain.Name, err)
		}
		defer transport.Close()

		if err := transport.VerifyChainID(ctx); err != nil {
			return fmt.Errorf("chain %s: %w", chain.Name, err)
		}
		log.Infof("Connected to chain %s (%d) through %d endpoint(s)", chain.Name, chain.ChainID, len(chain.Endpoints))

		detector := reorg.NewDetector(chain.ChainID, transport, store, cfg.Scanner.MaxReorgDepth,
			componentLog(common.ComponentReorg))

		s, err := scanner.New(chain, cfg.Scanner, scanner.Deps{
			RPC:          transport,
			Registry:     reg,
			Store:        store,
			Detector:     detector,
			Materializer: mat,
		}, componentLog(common.ComponentScanner))
		if err != nil {
			return fmt.Errorf("failed to create scanner for chain %s: %w", chain.Name, err)
		}
		scanners = append(scanners, s)
	}
	group := scanner.NewGroup(log, scanners...)

	// Metrics server
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	// Serving layer
	if cfg.API != nil && cfg.API.Enabled {
		engine := query.NewEngine(database, query.NewCatalog(mat), cfg.API.MaxSQLRows, componentLog(common.ComponentAPI))
		gql, err := query.NewGraphQL(engine)
		if err != nil {
			return fmt.Errorf("failed to build GraphQL schema: %w", err)
		}

		apiServer := api.NewServer(cfg.API, api.Deps{
			Engine:      engine,
			GraphQL:     gql,
			Checkpoints: store,
			Chains:      group,
		}, componentLog(common.ComponentAPI))
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				log.Errorf("API server error: %v", err)
			}
		}()
	}

	log.Infof("Starting indexer for %d chain(s)...", len(scanners))
	if err := group.Run(ctx); err != nil {
		return fmt.Errorf("indexer failed: %w", err)
	}

	log.Info("Indexer stopped successfully")
	return nil
}
