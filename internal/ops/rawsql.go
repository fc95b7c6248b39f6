package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
)

// RawSQLInput contains parameters for the RawSQL operation.
type RawSQLInput struct {
	Query string // required, must begin with SELECT or WITH
}

// RawSQLOutput contains the result of the RawSQL operation.
type RawSQLOutput struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MaxRawRows caps how many rows a raw query returns to any surface.
const MaxRawRows = 500

// RawSQL executes a read-only query against the knowledge base. Only
// statements beginning with SELECT or WITH are accepted; everything
// else is rejected before touching the database.
func RawSQL(database *sql.DB, input RawSQLInput) (*RawSQLOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query must not be empty")
	}

	head := strings.ToUpper(firstWord(query))
	if head != "SELECT" && head != "WITH" {
		return nil, errors.NewInvalidQuery("only SELECT and WITH statements are allowed")
	}

	result, err := db.RawQuery(database, query)
	if err != nil {
		return nil, errors.NewInvalidQuery(err.Error())
	}

	rows := result.Rows
	if len(rows) > MaxRawRows {
		rows = rows[:MaxRawRows]
	}
	return &RawSQLOutput{Columns: result.Columns, Rows: rows}, nil
}

// FormatTable renders the result as an aligned text table.
func (o *RawSQLOutput) FormatTable() string {
	if len(o.Columns) == 0 {
		return "(no results)"
	}

	widths := make([]int, len(o.Columns))
	for i, c := range o.Columns {
		widths[i] = len(c)
	}
	for _, row := range o.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if pad := widths[i] - len(cell); pad > 0 && i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}

	writeRow(o.Columns)
	separators := make([]string, len(o.Columns))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	writeRow(separators)
	for _, row := range o.Rows {
		writeRow(row)
	}
	return b.String()
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' {
			return s[:i]
		}
	}
	return s
}
