package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	inspectFormat     string
	inspectSampleRows int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [database-path]",
	Short: "Inspect the archive database schema and contents",
	Long: `Inspect the schema and contents of a session archive.

This command provides detailed information about:
  • Database schema (tables, columns, types)
  • Row counts per table
  • Sample rows from each table (event payloads are shown as JSON)

Examples:
  cortex-session inspect                          # Inspect the configured archive
  cortex-session inspect ./other.db               # Inspect a specific database
  cortex-session inspect --format json --sample 5 # JSON output with 5 sample rows`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := archivePath
		if len(args) > 0 {
			dbPath = args[0]
		}
		return inspectDatabase(cmd.OutOrStdout(), dbPath)
	},
}

// tableReport is the JSON form of one inspected table
type tableReport struct {
	Name     string            `json:"name"`
	RowCount int64             `json:"row_count"`
	Columns  []internal.Column `json:"columns"`
	Sample   []map[string]any  `json:"sample,omitempty"`
}

func inspectDatabase(out io.Writer, dbPath string) error {
	db, err := internal.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := internal.ListTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	switch inspectFormat {
	case "json":
		reports := make([]tableReport, 0, len(tables))
		for _, tbl := range tables {
			report := tableReport{Name: tbl.Name, RowCount: tbl.RowCount, Columns: tbl.Columns}
			if tbl.RowCount > 0 && inspectSampleRows > 0 {
				if report.Sample, err = sampleRows(db, tbl, inspectSampleRows); err != nil {
					return fmt.Errorf("sample %s: %w", tbl.Name, err)
				}
			}
			reports = append(reports, report)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"database": dbPath, "tables": reports})
	case "text":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
	}

	if len(tables) == 0 {
		_, _ = fmt.Fprintln(out, "⚠️  No tables found in database")
		return nil
	}

	_, _ = fmt.Fprintf(out, "📋 Database: %s\n", dbPath)
	_, _ = fmt.Fprintf(out, "📊 Found %d table(s)\n\n", len(tables))

	for _, tbl := range tables {
		inspectTable(out, db, tbl)
		_, _ = fmt.Fprintln(out)
	}
	return nil
}

func inspectTable(out io.Writer, db *sql.DB, tbl internal.TableInfo) {
	_, _ = fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	_, _ = fmt.Fprintf(out, "📦 Table: %s\n", tbl.Name)
	_, _ = fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	_, _ = fmt.Fprintf(out, "📊 Rows: %d\n\n", tbl.RowCount)

	_, _ = fmt.Fprintf(out, "📐 Schema:\n")
	for _, col := range tbl.Columns {
		pk := ""
		if col.PrimaryKey {
			pk = " [PRIMARY KEY]"
		}
		notNull := ""
		if col.NotNull {
			notNull = " NOT NULL"
		}
		_, _ = fmt.Fprintf(out, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
	}
	_, _ = fmt.Fprintln(out)

	if tbl.RowCount == 0 || inspectSampleRows <= 0 {
		return
	}
	rows, err := sampleRows(db, tbl, inspectSampleRows)
	if err != nil {
		_, _ = fmt.Fprintf(out, "⚠️  Error showing sample data: %v\n", err)
		return
	}

	_, _ = fmt.Fprintf(out, "📄 Sample Data (first %d rows):\n", inspectSampleRows)
	for i, row := range rows {
		_, _ = fmt.Fprintf(out, "\n  Row %d:\n", i+1)
		for _, col := range tbl.Columns {
			_, _ = fmt.Fprintf(out, "    %s: %s\n", col.Name, formatSampleValue(tbl.Name, col.Name, row[col.Name]))
		}
	}
}

func sampleRows(db *sql.DB, tbl internal.TableInfo, limit int) ([]map[string]any, error) {
	if len(tbl.Columns) == 0 {
		return nil, nil
	}
	names := make([]string, len(tbl.Columns))
	for i, col := range tbl.Columns {
		names[i] = fmt.Sprintf("%q", col.Name)
	}

	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %q LIMIT %d", strings.Join(names, ", "), tbl.Name, limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(tbl.Columns))
		ptrs := make([]any, len(tbl.Columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(values))
		for i, col := range tbl.Columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func formatSampleValue(table, column string, val any) string {
	if val == nil {
		return "<NULL>"
	}
	s := fmt.Sprintf("%v", val)

	// event payloads are stored as JSON text
	if table == "events" && column == "data" {
		var payload any
		if json.Unmarshal([]byte(s), &payload) == nil {
			if b, err := json.Marshal(payload); err == nil {
				s = string(b)
			}
		}
	}

	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 3, "Number of sample rows to show")
}
