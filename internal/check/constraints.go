package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type foreignKey struct {
	Schema           string `json:"table_schema"`
	Table            string `json:"table_name"`
	Constraint       string `json:"constraint_name"`
	Column           string `json:"column_name"`
	ReferencedSchema string `json:"referenced_table_schema"`
	ReferencedTable  string `json:"referenced_table_name"`
	ReferencedColumn string `json:"referenced_column_name"`
	UpdateRule       string `json:"update_rule"`
	DeleteRule       string `json:"delete_rule"`
	SupportingIndex  string `json:"supporting_index"`
}

func (c *Checker) checkForeignKeys(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Foreign Key Check",
		"Analyzes foreign key constraints for potential compatibility issues and validates referential integrity")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			kcu.referenced_table_schema,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.update_rule,
			rc.delete_rule,
			s.index_name AS supporting_index
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		LEFT JOIN information_schema.statistics s
			ON kcu.table_schema = s.table_schema
			AND kcu.table_name = s.table_name
			AND kcu.column_name = s.column_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema NOT IN (%s)
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("foreign key check failed: %w", err)
	}
	defer rows.Close()

	var fks []foreignKey
	schemas := map[string]struct{}{}
	tables := map[string]struct{}{}
	for rows.Next() {
		var fk foreignKey
		var idx sql.NullString
		if err := rows.Scan(&fk.Schema, &fk.Table, &fk.Constraint, &fk.Column,
			&fk.ReferencedSchema, &fk.ReferencedTable, &fk.ReferencedColumn,
			&fk.UpdateRule, &fk.DeleteRule, &idx); err != nil {
			return nil, fmt.Errorf("foreign key check failed: %w", err)
		}
		fk.SupportingIndex = idx.String
		fks = append(fks, fk)
		schemas[fk.Schema] = struct{}{}
		tables[fk.Schema+"."+fk.Table] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("foreign key check failed: %w", err)
	}

	result.Details["foreign_keys"] = fks
	result.Details["summary"] = map[string]int{
		"total_foreign_keys": len(fks),
		"affected_schemas":   len(schemas),
		"affected_tables":    len(tables),
	}

	if len(fks) > 0 {
		raise(result, types.StatusAmber)
		for _, fk := range fks {
			supporting := fk.SupportingIndex
			if supporting == "" {
				supporting = "None"
			}
			result.Issues = append(result.Issues, fmt.Sprintf(
				"FK %s on %s.%s.%s references %s.%s.%s (update %s, delete %s, supporting index: %s)",
				fk.Constraint, fk.Schema, fk.Table, fk.Column,
				fk.ReferencedSchema, fk.ReferencedTable, fk.ReferencedColumn,
				fk.UpdateRule, fk.DeleteRule, supporting))
		}
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Total foreign keys: %d across %d tables in %d schemas", len(fks), len(tables), len(schemas)),
			"Verify all foreign key constraints before upgrade",
			"Check for missing indexes on foreign key columns",
			"Consider temporarily disabling foreign keys during upgrade (SET foreign_key_checks = 0)",
			"Take backup before modifying any constraints",
			"Test referential integrity after upgrade")
	}

	return result, nil
}
