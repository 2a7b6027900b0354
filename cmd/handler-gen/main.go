package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goran-ethernal/BuildersIndexer/internal/abis"
	"github.com/goran-ethernal/BuildersIndexer/internal/codegen"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	gen := &codegen.Generator{}
	var abiRef string

	cmd := &cobra.Command{
		Use:     "handler-gen",
		Short:   "Generate materializer handlers from event signatures",
		Version: version,
		Long: `handler-gen writes a materializer handler package: one table per event keyed by
(chain_id, tx_hash, log_index), the migration creating those tables and the
registration of the handler. Events come from --event signatures, from every
event of an ABI given with --abi, or both.`,
		Example: `  handler-gen --name erc721 \
    --event "Transfer(address indexed from, address indexed to, uint256 indexed tokenId)" \
    --event "Approval(address indexed owner, address indexed approved, uint256 indexed tokenId)"

  handler-gen --name fee_config --abi fee-config --dry-run
  handler-gen --name vault --abi ./abis/Vault.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen.Out = cmd.OutOrStdout()

			if abiRef != "" {
				sigs, err := abiEventSignatures(abiRef)
				if err != nil {
					return err
				}
				gen.Events = append(gen.Events, sigs...)
			}
			if len(gen.Events) == 0 {
				return errors.New("no events: pass --event or --abi")
			}

			files, err := gen.Generate()
			if err != nil {
				return err
			}

			if gen.DryRun {
				fmt.Fprintln(gen.Out, "\nDry run complete. No files were created.")
				return nil
			}
			gen.PrintSummary(files)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&gen.Name, "name", "n", "", "handler name, lower snake case (e.g. erc721)")
	f.StringArrayVarP(&gen.Events, "event", "e", nil, "event signature; repeatable")
	f.StringVarP(&abiRef, "abi", "a", "", "built-in ABI name or ABI JSON file whose events are all generated")
	f.StringVarP(&gen.OutputDir, "output", "o", "", "output directory (default ./internal/handlers/<package>)")
	f.StringVarP(&gen.Package, "package", "p", "", "Go package name (default derived from name)")
	f.StringVarP(&gen.ModulePath, "module", "m", "", "Go module path (default read from go.mod)")
	f.BoolVarP(&gen.Force, "force", "f", false, "overwrite existing files")
	f.BoolVar(&gen.DryRun, "dry-run", false, "print the generated files instead of writing them")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// abiEventSignatures lists the events of ref as signatures, ordered by name.
func abiEventSignatures(ref string) ([]string, error) {
	parsed, err := abis.NewResolver(".").Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load ABI %s: %w", ref, err)
	}
	if len(parsed.Events) == 0 {
		return nil, fmt.Errorf("ABI %s declares no events", ref)
	}

	sigs := make([]string, 0, len(parsed.Events))
	for _, ev := range parsed.Events {
		if ev.Anonymous {
			continue
		}
		sigs = append(sigs, abis.HumanSignature(ev))
	}
	slices.Sort(sigs)

	return sigs, nil
}
