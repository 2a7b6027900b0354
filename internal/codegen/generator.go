package codegen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goran-ethernal/BuildersIndexer/internal/abis"
)

const (
	mkdirPerm = 0755
	filePerm  = 0644
)

var handlerNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Generator generates a materializer handler package from event signatures.
type Generator struct {
	Name       string    // handler name (e.g. "erc721")
	Package    string    // Go package name (default: derived from Name)
	Events     []string  // event signatures
	OutputDir  string    // output directory (default: internal/handlers/<package>)
	ModulePath string    // module path (default: read from go.mod)
	Force      bool      // overwrite existing files
	DryRun     bool      // don't write files, just show what would be generated
	Out        io.Writer // progress output (default: os.Stdout)
}

// GeneratedFiles holds the paths of the generated files.
type GeneratedFiles struct {
	HandlerFile   string
	MigrationFile string
	Data          *TemplateData
}

// Generate renders and writes the handler package.
func (g *Generator) Generate() (*GeneratedFiles, error) {
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if g.Out == nil {
		g.Out = os.Stdout
	}
	if g.Package == "" {
		g.Package = PackageName(g.Name)
	}
	if g.OutputDir == "" {
		g.OutputDir = filepath.Join(".", "internal", "handlers", g.Package)
	}
	if g.ModulePath == "" {
		modulePath, err := getModulePath()
		if err != nil {
			return nil, fmt.Errorf("failed to detect module path (use --module): %w", err)
		}
		g.ModulePath = modulePath
	}

	tables, err := g.tables()
	if err != nil {
		return nil, err
	}

	data := &TemplateData{
		Name:          g.Name,
		Package:       g.Package,
		ModulePath:    g.ModulePath,
		MigrationFile: fmt.Sprintf("001_%s.sql", g.Name),
		Tables:        tables,
	}

	if !g.Force {
		if _, err := os.Stat(g.OutputDir); err == nil {
			return nil, fmt.Errorf("output directory already exists: %s (use --force to overwrite)", g.OutputDir)
		}
	}

	handlerSrc, err := RenderHandler(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render handler: %w", err)
	}
	migrationSrc, err := RenderMigration(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render migration: %w", err)
	}

	files := &GeneratedFiles{
		HandlerFile:   filepath.Join(g.OutputDir, g.Package+".go"),
		MigrationFile: filepath.Join(g.OutputDir, data.MigrationFile),
		Data:          data,
	}

	if err := g.writeFile(files.HandlerFile, handlerSrc); err != nil {
		return nil, err
	}
	if err := g.writeFile(files.MigrationFile, migrationSrc); err != nil {
		return nil, err
	}

	return files, nil
}

// validate validates the generator configuration.
func (g *Generator) validate() error {
	if g.Name == "" {
		return fmt.Errorf("handler name is required")
	}
	if !handlerNameRe.MatchString(g.Name) {
		return fmt.Errorf("handler name must be lower snake case: %s", g.Name)
	}
	if len(g.Events) == 0 {
		return fmt.Errorf("at least one event signature is required")
	}

	return nil
}

// tables parses the signatures into one table per event.
func (g *Generator) tables() ([]TableData, error) {
	out := make([]TableData, 0, len(g.Events))
	seen := make(map[string]bool)

	for i, sig := range g.Events {
		ev, err := abis.ParseEventSignature(sig)
		if err != nil {
			return nil, fmt.Errorf("invalid event signature #%d '%s': %w", i+1, sig, err)
		}
		if seen[ev.Name] {
			return nil, fmt.Errorf("duplicate event name: %s", ev.Name)
		}
		seen[ev.Name] = true

		t := TableData{
			Table:     TableName(g.Name, ev.Name),
			Event:     ev.Name,
			Signature: ev.CanonicalSignature(),
		}

		columns := make(map[string]string, len(ev.Params))
		for _, p := range ev.Params {
			col := ColumnName(p.Name)
			if other, dup := columns[col]; dup {
				return nil, fmt.Errorf("event %s: arguments %s and %s both map to column %s", ev.Name, other, p.Name, col)
			}
			columns[col] = p.Name

			t.Columns = append(t.Columns, ColumnData{Column: col, Arg: p.Name, Indexed: p.Indexed})
		}

		out = append(out, t)
	}

	return out, nil
}

// writeFile writes content to a file, respecting DryRun and Force flags.
func (g *Generator) writeFile(path, content string) error {
	if g.DryRun {
		fmt.Fprintf(g.Out, "Would create: %s\n", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, mkdirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if !g.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	fmt.Fprintf(g.Out, "Generated: %s\n", path)
	return nil
}

// getModulePath reads the module path from go.mod file.
func getModulePath() (string, error) {
	data, err := os.ReadFile("go.mod")
	if err != nil {
		return "", err
	}

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module")), nil
		}
	}

	return "", fmt.Errorf("module directive not found in go.mod")
}

// PrintSummary prints the generated files and the configuration needed to use the handler.
func (g *Generator) PrintSummary(files *GeneratedFiles) {
	fmt.Fprintln(g.Out, "\n✓ Successfully generated handler!")
	fmt.Fprintf(g.Out, "\nHandler: %s\n", g.Name)
	fmt.Fprintf(g.Out, "Package: %s\n", g.Package)
	fmt.Fprintf(g.Out, "Output:  %s\n", g.OutputDir)

	fmt.Fprintln(g.Out, "\nTables:")
	for _, t := range files.Data.Tables {
		fmt.Fprintf(g.Out, "  • %s (%s)\n", t.Table, t.Signature)
	}

	sigs := make([]string, 0, len(g.Events))
	for _, e := range g.Events {
		sigs = append(sigs, strings.TrimSpace(e))
	}

	fmt.Fprintln(g.Out, "\nNext steps:")
	fmt.Fprintln(g.Out, "  1. Link the handler in internal/handlers/handlers.go:")
	fmt.Fprintf(g.Out, "     _ \"%s/%s\"\n", g.ModulePath, filepath.ToSlash(filepath.Clean(g.OutputDir)))
	fmt.Fprintln(g.Out, "  2. Add the contract to your config.yaml:")
	fmt.Fprintln(g.Out, "     contracts:")
	fmt.Fprintf(g.Out, "       - name: \"My%s\"\n", strings.ToUpper(g.Name[:1])+g.Name[1:])
	fmt.Fprintln(g.Out, "         chain: \"arbitrumOne\"")
	fmt.Fprintln(g.Out, "         address: \"0xYourContractAddress\"")
	fmt.Fprintf(g.Out, "         abi: \"events:%s\"\n", strings.Join(sigs, ";"))
	fmt.Fprintf(g.Out, "         handler: \"%s\"\n", g.Name)
	fmt.Fprintln(g.Out, "         start_block: 0")
}
