package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

// Keywords newly reserved in MySQL 8.0.
var reservedKeywords = []string{
	"CUME_DIST", "DENSE_RANK", "EMPTY", "EXCEPT", "FIRST_VALUE",
	"GROUPING", "GROUPS", "LAG", "LAST_VALUE", "LEAD", "NTH_VALUE",
	"NTILE", "OVER", "PERCENT_RANK", "RANK", "RECURSIVE", "ROW_NUMBER",
	"SYSTEM", "WINDOW", "JSON_TABLE", "LATERAL", "MEMBER", "OF",
}

func (c *Checker) checkReservedKeywords(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Reserved Keywords Conflicts",
		"Identifies table and column names that conflict with new MySQL 8.0 reserved keywords")

	keywordList := "'" + strings.Join(reservedKeywords, "', '") + "'"

	type conflict struct {
		Schema string `json:"schema"`
		Object string `json:"object"`
		Column string `json:"column,omitempty"`
		Type   string `json:"object_type"`
	}

	var tables, columns, routines []conflict

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN (%s)
		AND UPPER(table_name) IN (%s)
		ORDER BY table_schema, table_name`, systemSchemas, keywordList))
	if err != nil {
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	for rows.Next() {
		var t conflict
		if err := rows.Scan(&t.Schema, &t.Object); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reserved keywords check failed: %w", err)
		}
		t.Type = "TABLE"
		tables = append(tables, t)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Table name '%s.%s' conflicts with MySQL 8.0 reserved keyword", t.Schema, t.Object))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	rows.Close()

	rows, err = c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name
		FROM information_schema.columns
		WHERE table_schema NOT IN (%s)
		AND UPPER(column_name) IN (%s)
		ORDER BY table_schema, table_name, column_name`, systemSchemas, keywordList))
	if err != nil {
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	for rows.Next() {
		var col conflict
		if err := rows.Scan(&col.Schema, &col.Object, &col.Column); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reserved keywords check failed: %w", err)
		}
		col.Type = "COLUMN"
		columns = append(columns, col)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Column name '%s.%s.%s' conflicts with MySQL 8.0 reserved keyword", col.Schema, col.Object, col.Column))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	rows.Close()

	rows, err = c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT routine_schema, routine_name, routine_type
		FROM information_schema.routines
		WHERE routine_schema NOT IN (%s)
		AND UPPER(routine_name) IN (%s)
		ORDER BY routine_schema, routine_name`, systemSchemas, keywordList))
	if err != nil {
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	for rows.Next() {
		var r conflict
		if err := rows.Scan(&r.Schema, &r.Object, &r.Type); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reserved keywords check failed: %w", err)
		}
		routines = append(routines, r)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%s '%s.%s' conflicts with MySQL 8.0 reserved keyword", r.Type, r.Schema, r.Object))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reserved keywords check failed: %w", err)
	}
	rows.Close()

	result.Details["conflicting_tables"] = tables
	result.Details["conflicting_columns"] = columns
	result.Details["conflicting_routines"] = routines

	if len(tables)+len(columns)+len(routines) > 0 {
		raise(result, types.StatusRed)
		result.Recommendations = append(result.Recommendations,
			"CRITICAL: Rename objects that conflict with reserved keywords before upgrading",
			"Alternatively quote conflicting identifiers with backticks in all queries",
			"Renaming is recommended over backtick quoting",
			"Update application code to handle renamed objects")
	}

	return result, nil
}
