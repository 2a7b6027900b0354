package codegen

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"text/template"
)

//go:embed templates/handler.go.tmpl
var handlerTemplate string

//go:embed templates/migration.sql.tmpl
var migrationTemplate string

// TemplateData is passed to the handler and migration templates.
type TemplateData struct {
	Name          string      // handler name (e.g. "erc721")
	Package       string      // Go package name (e.g. "erc721")
	ModulePath    string      // module the handler package lives in
	MigrationFile string      // embedded migration file name (e.g. "001_erc721.sql")
	Tables        []TableData // one table per event
}

// TableData describes the table an event is stored in.
type TableData struct {
	Table     string
	Event     string
	Signature string
	Columns   []ColumnData
}

// ColumnData maps one event argument to a column.
type ColumnData struct {
	Column  string
	Arg     string
	Indexed bool
}

// RenderHandler generates the gofmt'ed handler source.
func RenderHandler(data *TemplateData) (string, error) {
	tmpl, err := template.New("handler").Delims("[[", "]]").Parse(handlerTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to format generated handler: %w", err)
	}

	return string(src), nil
}

// RenderMigration generates the handler's SQL migration.
func RenderMigration(data *TemplateData) (string, error) {
	tmpl, err := template.New("migration").Parse(migrationTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
