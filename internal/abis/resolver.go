package abis

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/BuildersIndexer/pkg/config"
	"github.com/puzpuzpuz/xsync/v4"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Built-in ABI names usable as a contract "abi" reference.
const (
	Builders      = "builders"
	ERC20         = "erc20"
	FeeConfig     = "fee-config"
	SubnetFactory = "subnet-factory"
	L2Factory     = "l2-factory"
)

var builtinFiles = map[string]string{
	Builders:      "builtin/builders.json",
	ERC20:         "builtin/erc20.json",
	FeeConfig:     "builtin/fee_config.json",
	SubnetFactory: "builtin/subnet_factory.json",
	L2Factory:     "builtin/l2_factory.json",
}

// BuiltinNames returns the names of the embedded ABIs.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinFiles))
	for name := range builtinFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Resolver turns ABI references into parsed ABIs. A reference is a built-in name,
// a path to an ABI JSON file (relative paths resolve against the base directory),
// or an inline event list "events:Sig1;Sig2". Parsed ABIs are cached per reference.
type Resolver struct {
	baseDir string
	cache   *xsync.Map[string, *abi.ABI]
}

// NewResolver creates a resolver for file references relative to baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{
		baseDir: baseDir,
		cache:   xsync.NewMap[string, *abi.ABI](),
	}
}

// Resolve returns the ABI behind ref.
func (r *Resolver) Resolve(ref string) (*abi.ABI, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty abi reference")
	}

	if cached, ok := r.cache.Load(ref); ok {
		return cached, nil
	}

	parsed, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}

	actual, _ := r.cache.LoadOrStore(ref, parsed)

	return actual, nil
}

func (r *Resolver) resolve(ref string) (*abi.ABI, error) {
	if sigs, ok := strings.CutPrefix(ref, config.EventsABIPrefix); ok {
		parsed, err := FromSignatures(strings.Split(sigs, ";"))
		if err != nil {
			return nil, fmt.Errorf("abi %q: %w", ref, err)
		}
		return parsed, nil
	}

	var (
		raw []byte
		err error
	)

	if file, ok := builtinFiles[strings.ToLower(ref)]; ok {
		raw, err = builtinFS.ReadFile(file)
	} else {
		path := ref
		if !filepath.IsAbs(path) && r.baseDir != "" {
			path = filepath.Join(r.baseDir, path)
		}
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("abi %q: %w", ref, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("abi %q: %w", ref, err)
	}

	return &parsed, nil
}

// EventByID returns the event whose topic0 is id.
func EventByID(parsed *abi.ABI, id common.Hash) (*abi.Event, bool) {
	ev, err := parsed.EventByID(id)
	if err != nil {
		return nil, false
	}

	return ev, true
}
