package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/json2relcsv/internal/schema"
)

// Dialect describes the SQL flavour of a target database
type Dialect struct {
	Name string

	quote       byte
	placeholder func(n int) string
}

var (
	// Postgres is the PostgreSQL dialect
	Postgres = Dialect{Name: "postgres", quote: '"', placeholder: dollar}
	// SQLite is the SQLite dialect
	SQLite = Dialect{Name: "sqlite", quote: '"', placeholder: question}
	// MySQL is the MySQL dialect
	MySQL = Dialect{Name: "mysql", quote: '`', placeholder: question}
	// DuckDB is the DuckDB dialect
	DuckDB = Dialect{Name: "duckdb", quote: '"', placeholder: question}
)

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

// Quote quotes an identifier, doubling embedded quote characters
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func (d Dialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = d.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

// CreateTable returns the CREATE TABLE statement for a table, including its
// primary key and foreign key constraints
func (d Dialect) CreateTable(t *schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.Quote(t.Name))

	for _, col := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", d.Quote(col.Name), col.Type)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		b.WriteString(",\n")
	}

	fmt.Fprintf(&b, "  PRIMARY KEY (%s)", d.quoteAll(t.PrimaryKey))
	for _, rel := range t.Relations {
		fmt.Fprintf(&b, ",\n  FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(rel.SourceColumn), d.Quote(rel.TargetTable), d.Quote(rel.TargetColumn))
	}
	b.WriteString("\n)")
	return b.String()
}

// CreateIndexes returns one CREATE INDEX statement per index of the table
func (d Dialect) CreateIndexes(t *schema.Table) []string {
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		unique := ""
		if idx.IsUnique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, d.Quote(idx.Name), d.Quote(t.Name), d.quoteAll(idx.Columns)))
	}
	return stmts
}

// Insert returns a parameterized single-row INSERT statement for the table
func (d Dialect) Insert(t *schema.Table) string {
	params := make([]string, len(t.Columns))
	for i := range params {
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), d.quoteAll(t.ColumnNames()), strings.Join(params, ", "))
}

// CountRows returns the statement counting the rows of a table
func (d Dialect) CountRows(table string) string {
	return "SELECT COUNT(*) FROM " + d.Quote(table)
}

// RowArgs converts a row into driver arguments: integer columns become int64
// (NULL when empty) and text columns stay strings.
func RowArgs(t *schema.Table, row schema.Row) ([]any, error) {
	args := make([]any, len(row.Values))
	for i, v := range row.Values {
		if t.Columns[i].Type != schema.TypeID {
			args[i] = v
			continue
		}
		if v == "" {
			args[i] = nil
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("table %s row %d: column %s: %w", t.Name, row.ID, t.Columns[i].Name, err)
		}
		args[i] = n
	}
	return args, nil
}
